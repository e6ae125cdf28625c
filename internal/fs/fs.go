// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fs collects the small filesystem helpers the rest of the
// engine needs for repo cache management: replacing a cache file without
// ever leaving a half-written one behind, and staging a freshly
// downloaded repo tree into its final cache directory. Trimmed to the
// one rename-fallback path this domain actually exercises (no Windows
// long-path or symlink-clone handling, since repo caches never contain
// symlinks).
package fs

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// AtomicWriteFile writes data to a temp file in the same directory as
// path and renames it into place, so a reader can never observe a
// partially written cache file (primary.xml.gz, a .solv snapshot, the
// repo's repomd.xml). Mirrors the common ensure.go pattern of writing
// through a TempFile and renaming over the final destination.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := ioutil.TempFile(dir, ".tmp-"+filepath.Base(path))
	if err != nil {
		return errors.Wrap(err, "fs: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "fs: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "fs: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "fs: close temp file")
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "fs: chmod temp file")
	}

	return RenameWithFallback(tmpName, path)
}

// RenameWithFallback attempts to rename src to dst, falling back to a
// copy-then-remove when the two paths live on different filesystems
// (e.g. the cache dir is a separate bind mount). src is removed either
// way, emulating normal rename semantics.
func RenameWithFallback(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return errors.Wrapf(err, "fs: cannot stat %s", src)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return errors.Wrapf(err, "fs: rename fallback failed: cannot rename %s to %s", src, dst)
	}
	return errors.Wrapf(os.Remove(src), "fs: cannot delete %s after fallback copy", src)
}

// CopyDir recursively copies a directory tree, attempting to preserve
// permissions. Source must exist; destination must not.
func CopyDir(src, dst string) error {
	src = filepath.Clean(src)
	dst = filepath.Clean(dst)

	fi, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "fs: stat %s", src)
	}
	if !fi.IsDir() {
		return errors.Errorf("fs: %q is not a directory", src)
	}
	if _, err := os.Stat(dst); err == nil {
		return errors.Errorf("fs: destination %q already exists", dst)
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "fs: stat %s", dst)
	}

	if err := os.MkdirAll(dst, fi.Mode()); err != nil {
		return errors.Wrapf(err, "fs: mkdir %s", dst)
	}

	entries, err := ioutil.ReadDir(src)
	if err != nil {
		return errors.Wrapf(err, "fs: read directory %s", src)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return errors.Wrap(err, "fs: copying subdirectory failed")
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return errors.Wrap(err, "fs: copying file failed")
		}
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}

	si, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, si.Mode())
}

// IsNonEmptyDir reports whether name is a directory with at least one
// entry, the way a repo cache decides whether a prior sync already
// populated the cache directory.
func IsNonEmptyDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !fi.IsDir() {
		return false, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	switch err {
	case io.EOF:
		return false, nil
	case nil:
		return true, nil
	default:
		return false, err
	}
}
