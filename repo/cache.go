// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/dnfcore/engine/pool"
)

// solvBucket is the single top-level bolt bucket holding one key per
// repo id. bolt gives
// the same "durable, embedded, single-file KV" properties a version-list
// cache needs; here it stores a marshaled solvable snapshot per repo.
var solvBucket = []byte("solv")

// SolvCache is the compact pool-snapshot cache: one entry per repo,
// keyed by repo id and stored with the 32-byte SHA-256 of the repomd.xml
// that produced it, so a reader can validate the cache against the current repomd
// before trusting it.
type SolvCache struct {
	db *bolt.DB
}

// solvEntry is the gob-encoded cache payload: the repomd checksum it was
// built from, plus the solvables themselves.
type solvEntry struct {
	RepomdSHA256 [32]byte
	Solvables    []pool.Solvable
}

// OpenSolvCache opens (creating if absent) the bolt-backed snapshot cache
// file under cacheDir.
func OpenSolvCache(cacheDir string) (*SolvCache, error) {
	path := filepath.Join(cacheDir, "solv-cache.db")
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "repo: open solv cache %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(solvBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "repo: init solv cache bucket")
	}
	return &SolvCache{db: db}, nil
}

// Close releases the underlying bolt file.
func (c *SolvCache) Close() error {
	return errors.Wrap(c.db.Close(), "repo: close solv cache")
}

// Checksum hashes repomdBytes the way a .solv file's trailing 32 bytes
// are defined: a binary pool snapshot plus a trailing 32-byte SHA-256 of
// the source repomd.xml.
func Checksum(repomdBytes []byte) [32]byte {
	return sha256.Sum256(repomdBytes)
}

// Get returns the cached solvables for repoID if present and its stored
// checksum equals want; otherwise ok is false, meaning "not valid,
// caller must reparse".
func (c *SolvCache) Get(repoID string, want [32]byte) (solvables []pool.Solvable, ok bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(solvBucket)
		raw := b.Get([]byte(repoID))
		if raw == nil {
			return nil
		}
		var e solvEntry
		if decErr := gob.NewDecoder(bytes.NewReader(raw)).Decode(&e); decErr != nil {
			return errors.Wrap(decErr, "repo: decode solv cache entry")
		}
		if e.RepomdSHA256 != want {
			return nil
		}
		solvables = e.Solvables
		ok = true
		return nil
	})
	return solvables, ok, err
}

// Put stores solvables under repoID together with checksum, which the
// next Get validates against.
func (c *SolvCache) Put(repoID string, checksum [32]byte, solvables []pool.Solvable) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(solvEntry{RepomdSHA256: checksum, Solvables: solvables}); err != nil {
		return errors.Wrap(err, "repo: encode solv cache entry")
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(solvBucket).Put([]byte(repoID), buf.Bytes())
	})
}
