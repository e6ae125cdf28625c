// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dnfcore/engine/comps"
	"github.com/dnfcore/engine/module"
	"github.com/dnfcore/engine/pool"
)

// Downloader is the external collaborator the core delegates transport
// to: it never speaks HTTP itself, instead asking a Downloader to place
// bytes from a repo's base URLs/metalink/mirrorlist into a local path.
type Downloader interface {
	// Fetch retrieves url into destPath, retrying across mirrors per the
	// caller's own max_mirror_tries budget.
	Fetch(ctx context.Context, url, destPath string) error
}

// RepoSack is a set of Repos indexed by id, plus the scheduler for bulk
// metadata refresh across all of them.
type RepoSack struct {
	Pool  *pool.Pool
	Comps *comps.Index
	Mods  *module.Sack

	repos   map[string]*Repo
	order   []string
	dl      Downloader
	lock    *CacheLock
}

// NewRepoSack builds an empty sack wired to p. dl may be nil for
// OnlyCache-only workloads (tests, offline replays).
func NewRepoSack(p *pool.Pool, ci *comps.Index, ms *module.Sack, dl Downloader) *RepoSack {
	return &RepoSack{
		Pool:  p,
		Comps: ci,
		Mods:  ms,
		repos: make(map[string]*Repo),
		dl:    dl,
	}
}

// AddRepo registers cfg, creates the pool-side repo handle, and returns
// the new Repo in the Configured state.
func (rs *RepoSack) AddRepo(cfg Config) (*Repo, error) {
	if _, exists := rs.repos[cfg.ID]; exists {
		return nil, errors.Errorf("repo: repo %q already registered", cfg.ID)
	}
	r, err := NewRepo(cfg)
	if err != nil {
		return nil, err
	}
	h, err := rs.Pool.AddRepo(cfg.ID, cfg.Type)
	if err != nil {
		return nil, err
	}
	rs.Pool.SetRepoPriority(h, cfg.Priority, cfg.Cost)
	r.Handle = h

	rs.repos[cfg.ID] = r
	rs.order = append(rs.order, cfg.ID)
	if rs.lock == nil && cfg.CacheDir != "" {
		rs.lock = NewCacheLock(filepath.Dir(cfg.CacheDir))
	}
	return r, nil
}

// Get returns the repo registered under id.
func (rs *RepoSack) Get(id string) (*Repo, bool) {
	r, ok := rs.repos[id]
	return r, ok
}

// Enabled returns every enabled repo, in registration order.
func (rs *RepoSack) Enabled() []*Repo {
	out := make([]*Repo, 0, len(rs.order))
	for _, id := range rs.order {
		if r := rs.repos[id]; r.Config.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// sackJob is one unit handed to the single sack-loader worker: a repo
// whose fetch_metadata/read_metadata_cache edge already completed and
// which is now ready to parse+load into the Pool.
type sackJob struct {
	repo *Repo
}

// UpdateAndLoadRepos runs the RepoSack's refresh pipeline for every
// enabled repo: parallel fetch (bounded by errgroup) feeding a single
// sack-loader worker goroutine that does the serial parse+Pool-load
// step. The main goroutine is the sole producer; closing the channel is
// the sentinel; a worker error is captured and returned from this call
// once the worker has fully drained, so partial state never leaks out
// ahead of an error.
func (rs *RepoSack) UpdateAndLoadRepos(ctx context.Context) error {
	repos := rs.Enabled()
	if len(repos) == 0 {
		return nil
	}

	if rs.lock != nil {
		if err := rs.lock.LockExclusive(); err != nil {
			return errors.Wrap(err, "repo: lock cache directory for refresh")
		}
		defer rs.lock.Unlock()
	}

	ch := make(chan sackJob, len(repos))
	var workerErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for job := range ch {
			if workerErr != nil {
				continue // drain remaining jobs without doing more work
			}
			if err := rs.loadOne(job.repo); err != nil {
				workerErr = errors.Wrapf(err, "repo: load %s", job.repo.Config.ID)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range repos {
		r := r
		g.Go(func() error {
			if err := rs.ensureFresh(gctx, r); err != nil {
				return err
			}
			ch <- sackJob{repo: r}
			return nil
		})
	}

	fetchErr := g.Wait()
	close(ch)
	<-done

	if fetchErr != nil {
		return fetchErr
	}
	return workerErr
}

// ensureFresh drives one repo's Configured->CacheProbed->[Fetching]->
// CacheValid transition freshness rule.
func (rs *RepoSack) ensureFresh(ctx context.Context, r *Repo) error {
	r.State = CacheProbed

	now := time.Now()
	expired, err := r.expired(now)
	if err != nil {
		return err
	}
	if expired && r.Config.SyncStrategy == Lazy {
		if _, err := os.Stat(r.primaryPath()); err == nil {
			expired = false
		}
	}

	if !expired {
		r.MetadataPaths[MetaPrimary] = r.primaryPath()
		r.State = CacheValid
		return nil
	}

	if r.Config.SyncStrategy == OnlyCache {
		return errors.Wrapf(ErrCacheMiss, "repo %q", r.Config.ID)
	}

	cachedMD, _ := rs.readCachedRepomd(r)
	upstreamMD, err := rs.fetchRepomd(ctx, r)
	if err != nil {
		return err
	}

	if r.inSync(cachedMD, upstreamMD) {
		if err := r.touch(now); err != nil {
			return err
		}
		r.MetadataPaths[MetaPrimary] = r.primaryPath()
		r.State = CacheValid
		return nil
	}

	r.State = Fetching
	if err := rs.fetchMetadata(ctx, r, upstreamMD); err != nil {
		return err
	}
	r.State = CacheValid
	return nil
}

func (rs *RepoSack) readCachedRepomd(r *Repo) (*RepoMD, error) {
	f, err := os.Open(r.repomdPath())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRepoMD(f)
}

func (rs *RepoSack) fetchRepomd(ctx context.Context, r *Repo) (*RepoMD, error) {
	if rs.dl == nil {
		// No downloader wired: fall back to whatever is already cached,
		// the same degraded behavior OnlyCache gives callers that never
		// configured a Downloader (tests, offline replays).
		return rs.readCachedRepomd(r)
	}
	if len(r.Config.BaseURLs) == 0 {
		return nil, errors.Errorf("repo %q: no baseurl configured", r.Config.ID)
	}
	dest := filepath.Join(r.Config.CacheDir, "repodata", "repomd.xml")
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, errors.Wrap(err, "repo: create repodata dir")
	}
	url := r.Config.BaseURLs[0] + "/repodata/repomd.xml"
	if err := rs.dl.Fetch(ctx, url, dest); err != nil {
		return nil, errors.Wrapf(err, "repo %q: fetch repomd.xml", r.Config.ID)
	}
	f, err := os.Open(dest)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRepoMD(f)
}

func (rs *RepoSack) fetchMetadata(ctx context.Context, r *Repo, md *RepoMD) error {
	if rs.dl == nil {
		return errors.Errorf("repo %q: cache expired and no Downloader configured", r.Config.ID)
	}
	for _, kind := range []MetadataKind{MetaPrimary, MetaFilelists, MetaOther, MetaComps, MetaModules, MetaUpdateinfo} {
		href, ok := md.Location(kind)
		if !ok {
			continue
		}
		dest := filepath.Join(r.Config.CacheDir, href)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return errors.Wrap(err, "repo: create repodata dir")
		}
		url := r.Config.BaseURLs[0] + "/" + href
		if err := rs.dl.Fetch(ctx, url, dest); err != nil {
			return errors.Wrapf(err, "repo %q: fetch %s", r.Config.ID, kind)
		}
		r.MetadataPaths[kind] = dest
	}
	return nil
}

// loadOne parses a ready repo's metadata and loads it into the shared
// Pool/CompsIndex/ModuleSack, in the fixed order requires
// (primary first, then extensions, updateinfo last). Loading is
// idempotent: a repo already in the Loaded state is a no-op.
func (rs *RepoSack) loadOne(r *Repo) error {
	if r.State == Loaded {
		return nil
	}

	if err := rs.loadPrimary(r); err != nil {
		return err
	}
	if err := rs.loadExtension(r, MetaFilelists); err != nil {
		return err
	}
	if err := rs.loadExtension(r, MetaOther); err != nil {
		return err
	}
	if err := rs.loadComps(r); err != nil {
		return err
	}
	if err := rs.loadModules(r); err != nil {
		return err
	}
	if err := rs.loadExtension(r, MetaUpdateinfo); err != nil {
		return err
	}

	r.State = Loaded
	return nil
}

func (rs *RepoSack) openMetadataFile(r *Repo, kind MetadataKind) (io.ReadCloser, bool, error) {
	path, ok := r.MetadataPaths[kind]
	if !ok {
		return nil, false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	dec, err := openMetadata(path, f)
	if err != nil {
		f.Close()
		return nil, false, err
	}
	return dec, true, nil
}

func (rs *RepoSack) loadPrimary(r *Repo) error {
	rc, ok, err := rs.openMetadataFile(r, MetaPrimary)
	if err != nil {
		return errors.Wrap(err, "repo: open primary.xml")
	}
	if !ok {
		return nil
	}
	defer rc.Close()

	solvables, err := ParsePrimary(rc, r.Handle)
	if err != nil {
		return err
	}
	for _, s := range solvables {
		if _, err := rs.Pool.AddSolvable(s); err != nil {
			return err
		}
	}
	return nil
}

// loadExtension parses filelists/other/updateinfo and folds each back
// into the Pool: filelists/other merge their per-package file lists into
// the matching solvable's Files, updateinfo registers Advisory records
// against the solvables they cover so the "advisory" Query filters have
// something to match. Idempotent per r.Extensions.
func (rs *RepoSack) loadExtension(r *Repo, kind MetadataKind) error {
	if r.Extensions[kind] {
		return nil
	}
	rc, ok, err := rs.openMetadataFile(r, kind)
	if err != nil {
		return errors.Wrapf(err, "repo: open %s", kind)
	}
	if !ok {
		r.Extensions[kind] = true
		return nil
	}
	defer rc.Close()

	switch kind {
	case MetaFilelists, MetaOther:
		entries, err := ParseFilelists(rc)
		if err != nil {
			return err
		}
		for _, e := range entries {
			rs.Pool.AppendFiles(e.Name, e.Arch, e.Files)
		}
	case MetaUpdateinfo:
		advisories, err := ParseUpdateinfo(rc)
		if err != nil {
			return err
		}
		for _, a := range advisories {
			rs.Pool.AddAdvisory(pool.Advisory{ID: a.ID, Type: a.Type, Title: a.Title, NEVRAs: a.Packages})
		}
	}
	r.Extensions[kind] = true
	return nil
}

func (rs *RepoSack) loadComps(r *Repo) error {
	if rs.Comps == nil || r.Extensions[MetaComps] {
		return nil
	}
	rc, ok, err := rs.openMetadataFile(r, MetaComps)
	if err != nil {
		return errors.Wrap(err, "repo: open comps.xml")
	}
	if !ok {
		r.Extensions[MetaComps] = true
		return nil
	}
	defer rc.Close()
	if err := rs.Comps.Load(rc); err != nil {
		return err
	}
	r.Extensions[MetaComps] = true
	return nil
}

func (rs *RepoSack) loadModules(r *Repo) error {
	if rs.Mods == nil || r.Extensions[MetaModules] {
		return nil
	}
	rc, ok, err := rs.openMetadataFile(r, MetaModules)
	if err != nil {
		return errors.Wrap(err, "repo: open modules.yaml")
	}
	if !ok {
		r.Extensions[MetaModules] = true
		return nil
	}
	defer rc.Close()
	if err := rs.Mods.LoadModulemd(rc); err != nil {
		return err
	}
	r.Extensions[MetaModules] = true
	return nil
}
