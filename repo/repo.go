// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package repo implements C2 of the core engine: one software source's
// metadata lifecycle (config, cache freshness, fetch, parse, load into the
// shared Pool) and the RepoSack that schedules bulk refresh across many
// repos.
//
// The sync state machine (SyncState below) and the worker pipeline in
// sack.go follow a source-manager shape (one long-lived manager owning
// per-source caches, a single background cache-warming path, locks held
// for the duration of a write) generalized from "one VCS source per
// import path" to "one repo config per repo id."
package repo

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/dnfcore/engine/pool"
)

// SyncState is where a Repo currently sits in state
// machine: Configured -> CacheProbed -> Fetching -> CacheValid -> Loaded.
type SyncState int

const (
	Configured SyncState = iota
	CacheProbed
	Fetching
	CacheValid
	Loaded
)

func (s SyncState) String() string {
	switch s {
	case Configured:
		return "Configured"
	case CacheProbed:
		return "CacheProbed"
	case Fetching:
		return "Fetching"
	case CacheValid:
		return "CacheValid"
	case Loaded:
		return "Loaded"
	default:
		return "Unknown"
	}
}

// SyncStrategy controls how a Repo's read_metadata_cache/fetch_metadata
// edges behave when the cache is missing or expired.
type SyncStrategy int

const (
	// TryCache reads the cache if fresh, otherwise fetches.
	TryCache SyncStrategy = iota
	// OnlyCache never fetches; a missing or expired cache is an
	// ErrCacheMiss error.
	OnlyCache
	// Lazy treats any existing cache as fresh regardless of expiry.
	Lazy
)

// MetadataKind names one of the metadata files a repo can carry, keyed the
// way repomd.xml's <data type="..."> keys its entries.
type MetadataKind string

const (
	MetaPrimary     MetadataKind = "primary"
	MetaFilelists   MetadataKind = "filelists"
	MetaOther       MetadataKind = "other"
	MetaUpdateinfo  MetadataKind = "updateinfo"
	MetaComps       MetadataKind = "group"
	MetaModules     MetadataKind = "modules"
	MetaPresto      MetadataKind = "prestodelta"
)

// Expire is a Repo's cache-expiry policy: a duration, "never", or an
// explicit expiry instant
type Expire struct {
	Never    bool
	Explicit time.Time
	TTL      time.Duration // zero disables the age check
}

// ErrCacheMiss is returned by RepoSack.UpdateAndLoadRepos when a repo's
// SyncStrategy is OnlyCache and its on-disk metadata is missing or
// expired; the in-sync check against upstream is not made in that case.
var ErrCacheMiss = errors.New("repo: cache miss with OnlyCache strategy")

// Config is one repo's static configuration, the parsed form of one INI
// section (config.go).
type Config struct {
	ID       string
	Type     pool.RepoType
	Enabled  bool
	Cost     int
	Priority int

	BaseURLs  []string
	Metalink  string
	Mirrorlist string

	Expire       Expire
	CacheDir     string
	SyncStrategy SyncStrategy

	// ConfigPath is the file this section was read from, used by the
	// freshness rule's "repo config file itself is newer than primary"
	// check.
	ConfigPath string
}

// idPattern is `[A-Za-z0-9._:-]+` repo id invariant.
func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}

// Repo is one loaded software source: its config, its current sync state,
// and the set of metadata paths it resolved after a successful fetch or
// cache read.
type Repo struct {
	Config Config
	State  SyncState

	// MetadataPaths maps a loaded kind to its on-disk (possibly still
	// compressed) path, populated by EnsureFresh.
	MetadataPaths map[MetadataKind]string

	// Extensions records which optional metadata kinds have been loaded
	// into the Pool already, so loading a repo's extensions stays
	// idempotent across repeated calls.
	Extensions map[MetadataKind]bool

	Handle pool.RepoHandle
}

// NewRepo validates cfg and returns a fresh Repo in the Configured state.
func NewRepo(cfg Config) (*Repo, error) {
	if !validID(cfg.ID) {
		return nil, errors.Errorf("repo: invalid repo id %q", cfg.ID)
	}
	return &Repo{
		Config:        cfg,
		State:         Configured,
		MetadataPaths: make(map[MetadataKind]string),
		Extensions:    make(map[MetadataKind]bool),
	}, nil
}

// repomdPath is where a repo's cache keeps the index metadata file.
func (r *Repo) repomdPath() string {
	return filepath.Join(r.Config.CacheDir, "repodata", "repomd.xml")
}

func (r *Repo) primaryPath() string {
	if p, ok := r.MetadataPaths[MetaPrimary]; ok {
		return p
	}
	return filepath.Join(r.Config.CacheDir, "repodata", "primary.xml.gz")
}

// expired implements freshness rule: metadata is expired
// iff (a) expire is explicitly set, OR (b) now-mtime(primary) exceeds the
// configured TTL, OR (c) the repo config file is newer than primary.
func (r *Repo) expired(now time.Time) (bool, error) {
	if r.Config.Expire.Never {
		return false, nil
	}

	primaryFi, err := os.Stat(r.primaryPath())
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "repo: stat primary metadata")
	}

	if !r.Config.Expire.Explicit.IsZero() && now.After(r.Config.Expire.Explicit) {
		return true, nil
	}

	if r.Config.Expire.TTL > 0 && now.Sub(primaryFi.ModTime()) > r.Config.Expire.TTL {
		return true, nil
	}

	if r.Config.ConfigPath != "" {
		if cfgFi, err := os.Stat(r.Config.ConfigPath); err == nil {
			if cfgFi.ModTime().After(primaryFi.ModTime()) {
				return true, nil
			}
		}
	}

	return false, nil
}

// inSync reports whether the cached repomd.xml's revision still matches
// what upstream currently serves. Callers supply the freshly fetched
// repomd (or nil, meaning "couldn't check, assume out of sync").
func (r *Repo) inSync(cached, upstream *RepoMD) bool {
	if cached == nil || upstream == nil {
		return false
	}
	return cached.Revision == upstream.Revision
}

// touch refreshes primary.xml's mtime without re-fetching, for the
// "expired-but-in-sync" branch of the freshness rule.
func (r *Repo) touch(now time.Time) error {
	return os.Chtimes(r.primaryPath(), now, now)
}
