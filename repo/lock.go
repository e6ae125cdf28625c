// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"
)

// CacheLock is the advisory lock a RepoSack holds over the whole cache
// directory: shared for read-only operations, exclusive for the
// duration of a commit or a metadata fetch. Built on the same
// theckman/go-flock dependency, generalized from "one lockfile per
// ensure/init command" to "shared lock for reads, exclusive lock for
// commit/fetch."
type CacheLock struct {
	fl *flock.Flock
}

// NewCacheLock returns a lock over a `.lock` file inside dir.
func NewCacheLock(dir string) *CacheLock {
	return &CacheLock{fl: flock.NewFlock(filepath.Join(dir, ".lock"))}
}

// LockExclusive blocks until the exclusive lock is held, for commit and
// fetch_metadata.
func (l *CacheLock) LockExclusive() error {
	return errors.Wrap(l.fl.Lock(), "repo: acquire exclusive cache lock")
}

// LockShared blocks until a shared (read) lock is held.
func (l *CacheLock) LockShared() error {
	return errors.Wrap(l.fl.RLock(), "repo: acquire shared cache lock")
}

// TryLockExclusive attempts a non-blocking exclusive lock and reports
// whether it was acquired.
func (l *CacheLock) TryLockExclusive() (bool, error) {
	ok, err := l.fl.TryLock()
	return ok, errors.Wrap(err, "repo: try exclusive cache lock")
}

// Unlock releases whichever lock kind is currently held.
func (l *CacheLock) Unlock() error {
	return errors.Wrap(l.fl.Unlock(), "repo: release cache lock")
}
