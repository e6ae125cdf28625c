// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnfcore/engine/comps"
	"github.com/dnfcore/engine/module"
	"github.com/dnfcore/engine/pool"
)

func TestRepoExpiredWithNoCache(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRepo(Config{ID: "fedora", CacheDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	expired, err := r.expired(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !expired {
		t.Fatal("expected a repo with no cached primary.xml to be expired")
	}
}

func TestRepoNeverExpiresWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRepo(Config{ID: "fedora", CacheDir: dir, Expire: Expire{Never: true}})
	if err != nil {
		t.Fatal(err)
	}
	expired, err := r.expired(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if expired {
		t.Fatal("expected Expire.Never to suppress expiry regardless of cache state")
	}
}

func TestRepoExpiresPastTTL(t *testing.T) {
	dir := t.TempDir()
	repodata := filepath.Join(dir, "repodata")
	if err := os.MkdirAll(repodata, 0755); err != nil {
		t.Fatal(err)
	}
	primary := filepath.Join(repodata, "primary.xml.gz")
	if err := os.WriteFile(primary, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(primary, old, old); err != nil {
		t.Fatal(err)
	}

	r, err := NewRepo(Config{ID: "fedora", CacheDir: dir, Expire: Expire{TTL: time.Hour}})
	if err != nil {
		t.Fatal(err)
	}
	expired, err := r.expired(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !expired {
		t.Fatal("expected a primary.xml older than the TTL to be expired")
	}
}

// stubDownloader never actually performs network I/O: it writes
// canned fixture bytes for whichever path is requested, exercising the
// fetch pipeline without a real Downloader collaborator.
type stubDownloader struct {
	repomd  []byte
	primary []byte
}

func (d *stubDownloader) Fetch(ctx context.Context, url, destPath string) error {
	var data []byte
	switch filepath.Base(destPath) {
	case "repomd.xml":
		data = d.repomd
	case "primary.xml":
		data = d.primary
	default:
		data = []byte{}
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0644)
}

func TestUpdateAndLoadReposLoadsPackagesIntoPool(t *testing.T) {
	dir := t.TempDir()

	dl := &stubDownloader{
		repomd: []byte(`<?xml version="1.0"?>
<repomd>
  <revision>1</revision>
  <data type="primary"><location href="repodata/primary.xml"/></data>
</repomd>`),
		primary: []byte(samplePrimary),
	}

	p := pool.New()
	rs := NewRepoSack(p, comps.NewIndex(), module.NewSack(), dl)

	cfg := Config{
		ID:           "fedora",
		Type:         pool.RepoAvailable,
		Enabled:      true,
		BaseURLs:     []string{"https://example.test/fedora"},
		CacheDir:     filepath.Join(dir, "fedora"),
		SyncStrategy: TryCache,
	}
	if _, err := rs.AddRepo(cfg); err != nil {
		t.Fatal(err)
	}

	if err := rs.UpdateAndLoadRepos(context.Background()); err != nil {
		t.Fatal(err)
	}

	if p.Len() != 1 {
		t.Fatalf("expected 1 solvable loaded into the pool, got %d", p.Len())
	}
	r, _ := rs.Get("fedora")
	if r.State != Loaded {
		t.Fatalf("expected repo to reach Loaded state, got %v", r.State)
	}
}

func TestUpdateAndLoadReposOnlyCacheMissWithoutFetch(t *testing.T) {
	dir := t.TempDir()
	p := pool.New()
	rs := NewRepoSack(p, comps.NewIndex(), module.NewSack(), nil)

	cfg := Config{
		ID:           "fedora",
		Enabled:      true,
		CacheDir:     filepath.Join(dir, "fedora"),
		SyncStrategy: OnlyCache,
	}
	if _, err := rs.AddRepo(cfg); err != nil {
		t.Fatal(err)
	}

	err := rs.UpdateAndLoadRepos(context.Background())
	if err == nil {
		t.Fatal("expected a cache-miss error with OnlyCache and no cached metadata")
	}
}
