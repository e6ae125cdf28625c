// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pool implements C1 of the core engine: the arena of all
// solvables (packages, comps groups/environments, module items) loaded
// across every repository, stable SolvableId allocation, the provides
// index, and the considered bitmap used to gate modular filtering and user
// excludes.
//
// The arena-of-ids shape is carried over from the atom/ProjectIdentifier
// design (gps/types.go): solvables never hold pointers to each other,
// only SolvableIds resolved back through the Pool that owns them.
package pool

import (
	"strconv"
	"sync"

	"github.com/armon/go-radix"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/dnfcore/engine/rpmver"
)

// SolvableId is a stable index into a Pool's solvable arena. It is valid
// only for the Pool that produced it, and only until that Pool is reset.
type SolvableId uint32

// RepoType distinguishes the three kinds of repo a Pool can track,
// mirroring Repo.Type.
type RepoType int

const (
	RepoAvailable RepoType = iota
	RepoSystem
	RepoCommandline
)

// RepoHandle identifies one loaded repository inside the pool.
type RepoHandle uint32

type repoEntry struct {
	id       string
	kind     RepoType
	priority int
	cost     int
	// generation increments every time solvables are added/removed for
	// this repo; the provides index rebuild fence compares the sum of all
	// generations against its own cached value to decide if it is stale.
	generation uint64
}

// Solvable is one pool element: a package, a comps group/environment
// pseudo-package, or a module item.
type Solvable struct {
	Repo RepoHandle

	Name    string
	EVR     rpmver.EVR
	Arch    string
	Vendor  string

	Provides    []string
	Requires    []string
	Conflicts   []string
	Obsoletes   []string
	Supplements []string
	Recommends  []string
	Enhances    []string
	Suggests    []string
	Files       []string

	// Kind lets callers distinguish a package solvable from a comps
	// group/environment or module-item solvable sharing the same arena.
	Kind SolvableKind
}

// SolvableKind tags what a Solvable represents.
type SolvableKind int

const (
	KindPackage SolvableKind = iota
	KindGroup
	KindEnvironment
	KindModuleItem
)

// Pool owns the solvable arena for one Base/session. It is not safe for
// concurrent mutation, but SolvablesByProvides is safe to call
// concurrently with other readers (see rebuildProvides).
type Pool struct {
	mu sync.RWMutex

	solvables []Solvable
	repos     []repoEntry
	repoByID  map[string]RepoHandle

	installedRepo   RepoHandle
	hasInstalled    bool
	commandlineRepo RepoHandle
	hasCommandline  bool

	multilibAllowed bool

	// considered is the exclusion bitmap: true means "visible to queries".
	// A nil considered bitmap means "everything is considered" (no
	// exclusions configured yet).
	considered []bool

	// provides index, rebuilt lazily; see rebuildProvides.
	providesIdx   *radix.Tree
	providesGen   uint64
	rebuildGroup  singleflight.Group

	advisories  []Advisory
	advisoryIdx map[SolvableId][]int
}

// Advisory is one updateinfo.xml <update> entry indexed against the
// arena: a security/bugfix notice bundling a set of package NEVRAs,
// consumed by PackageSet.Advisories.
type Advisory struct {
	ID     string
	Type   string
	Title  string
	NEVRAs []string
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{
		repoByID:    make(map[string]RepoHandle),
		advisoryIdx: make(map[SolvableId][]int),
	}
}

// AddRepo registers a new repo and returns its handle. RepoSystem must
// be unique; adding a second one is an error.
func (p *Pool) AddRepo(id string, kind RepoType) (RepoHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.repoByID[id]; exists {
		return 0, errors.Errorf("pool: repo %q already registered", id)
	}
	if kind == RepoSystem && p.hasInstalled {
		return 0, errors.New("pool: a System repo is already registered")
	}
	if kind == RepoCommandline && p.hasCommandline {
		return 0, errors.New("pool: a Commandline repo is already registered")
	}

	h := RepoHandle(len(p.repos))
	p.repos = append(p.repos, repoEntry{id: id, kind: kind})
	p.repoByID[id] = h

	if kind == RepoSystem {
		p.installedRepo = h
		p.hasInstalled = true
	}
	if kind == RepoCommandline {
		p.commandlineRepo = h
		p.hasCommandline = true
	}

	return h, nil
}

// MarkInstalled is an alternate way to designate the system/rpmdb view,
// for callers that created the repo before deciding it's the installed
// one (mirrors mark_installed).
func (p *Pool) MarkInstalled(h RepoHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasInstalled && p.installedRepo != h {
		return errors.New("pool: a System repo is already registered")
	}
	if int(h) >= len(p.repos) {
		return errors.Errorf("pool: unknown repo handle %d", h)
	}
	p.repos[h].kind = RepoSystem
	p.installedRepo = h
	p.hasInstalled = true
	return nil
}

// InstalledRepo returns the handle of the System repo, if one is set.
func (p *Pool) InstalledRepo() (RepoHandle, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.installedRepo, p.hasInstalled
}

// SetRepoPriority sets the solver-ordering priority/cost for a repo; lower
// values are preferred.
func (p *Pool) SetRepoPriority(h RepoHandle, priority, cost int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(h) >= len(p.repos) {
		return errors.Errorf("pool: unknown repo handle %d", h)
	}
	p.repos[h].priority = priority
	p.repos[h].cost = cost
	return nil
}

// RepoPriority returns the (priority, cost) pair set for h.
func (p *Pool) RepoPriority(h RepoHandle) (priority, cost int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.repos[h].priority, p.repos[h].cost
}

// RepoID returns the string identifier of a repo handle.
func (p *Pool) RepoID(h RepoHandle) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.repos[h].id
}

// AddSolvable inserts s into the arena and returns its new id. It bumps the
// owning repo's generation counter so the next provides lookup knows to
// rebuild its index.
func (p *Pool) AddSolvable(s Solvable) (SolvableId, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(s.Repo) >= len(p.repos) {
		return 0, errors.Errorf("pool: unknown repo handle %d", s.Repo)
	}

	id := SolvableId(len(p.solvables))
	p.solvables = append(p.solvables, s)
	p.repos[s.Repo].generation++

	if p.considered != nil {
		p.considered = append(p.considered, true)
	}

	return id, nil
}

// Solvable returns a copy of the solvable at id.
func (p *Pool) Solvable(id SolvableId) (Solvable, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(id) >= len(p.solvables) {
		return Solvable{}, errors.Errorf("pool: unknown solvable id %d", id)
	}
	return p.solvables[id], nil
}

// AppendFiles merges extra file paths into every solvable matching
// name/arch, folding filelists.xml/other.xml's separately-shipped file
// lists back into the package record primary.xml left without Files.
func (p *Pool) AppendFiles(name, arch string, files []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.solvables {
		sv := &p.solvables[i]
		if sv.Name == name && sv.Arch == arch {
			sv.Files = mergeUniqueStrings(sv.Files, files)
		}
	}
}

func mergeUniqueStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, f := range base {
		seen[f] = struct{}{}
	}
	out := append([]string(nil), base...)
	for _, f := range extra {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// AddAdvisory registers adv, indexing it against every solvable already
// in the arena whose NEVRA appears in adv.NEVRAs. updateinfo.xml loads
// last among extensions precisely so this index sees every package.
func (p *Pool) AddAdvisory(adv Advisory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	want := make(map[string]struct{}, len(adv.NEVRAs))
	for _, n := range adv.NEVRAs {
		want[n] = struct{}{}
	}
	p.advisories = append(p.advisories, adv)
	idx := len(p.advisories) - 1
	for i, sv := range p.solvables {
		if _, ok := want[nevraString(sv)]; ok {
			id := SolvableId(i)
			p.advisoryIdx[id] = append(p.advisoryIdx[id], idx)
		}
	}
}

// nevraString renders sv's NEVRA the way updateinfo.xml/primary.xml
// package identifiers are built: epoch is only shown when non-zero, the
// same suppression rpm's own display convention uses.
func nevraString(sv Solvable) string {
	evr := sv.EVR.Version
	if sv.EVR.Release != "" {
		evr += "-" + sv.EVR.Release
	}
	if sv.EVR.Epoch != 0 {
		evr = strconv.Itoa(sv.EVR.Epoch) + ":" + evr
	}
	return sv.Name + "-" + evr + "." + sv.Arch
}

// Advisories returns every Advisory indexed against id.
func (p *Pool) Advisories(id SolvableId) []Advisory {
	p.mu.RLock()
	defer p.mu.RUnlock()
	idxs := p.advisoryIdx[id]
	out := make([]Advisory, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, p.advisories[i])
	}
	return out
}

// Len returns the number of solvables currently in the arena.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.solvables)
}

// SetMultilib toggles the global multilib policy flag. This affects
// only the solver, never the provides index.
func (p *Pool) SetMultilib(allowed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.multilibAllowed = allowed
}

// MultilibAllowed reports the current multilib policy flag.
func (p *Pool) MultilibAllowed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.multilibAllowed
}

// SetConsidered replaces the exclusion bitmap wholesale. Callers (the
// module subsystem, user excludes) are expected to start from
// AllConsidered() and flip bits off.
func (p *Pool) SetConsidered(bitmap []bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(bitmap) != len(p.solvables) {
		return errors.Errorf("pool: considered bitmap length %d does not match %d solvables", len(bitmap), len(p.solvables))
	}
	cp := make([]bool, len(bitmap))
	copy(cp, bitmap)
	p.considered = cp
	return nil
}

// AllConsidered returns a fresh bitmap with every current solvable
// considered (visible).
func (p *Pool) AllConsidered() []bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]bool, len(p.solvables))
	for i := range out {
		out[i] = true
	}
	return out
}

// IsConsidered reports whether id is currently visible to queries.
func (p *Pool) IsConsidered(id SolvableId) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.considered == nil {
		return true
	}
	if int(id) >= len(p.considered) {
		return true
	}
	return p.considered[id]
}

func (p *Pool) totalGeneration() uint64 {
	var sum uint64
	for _, r := range p.repos {
		sum += r.generation
	}
	return sum
}

// ensureProvidesIndex rebuilds the radix-backed provides index if any
// repo has changed since the last rebuild, fenced with a singleflight
// group so concurrent callers collapse onto one rebuild and all observe
// either the fully-old or fully-new index, never a torn one.
func (p *Pool) ensureProvidesIndex() *radix.Tree {
	p.mu.RLock()
	gen := p.totalGeneration()
	idx := p.providesIdx
	idxGen := p.providesGen
	p.mu.RUnlock()

	if idx != nil && idxGen == gen {
		return idx
	}

	v, _, _ := p.rebuildGroup.Do("provides", func() (interface{}, error) {
		p.mu.RLock()
		gen := p.totalGeneration()
		if p.providesIdx != nil && p.providesGen == gen {
			idx := p.providesIdx
			p.mu.RUnlock()
			return idx, nil
		}
		solvables := make([]Solvable, len(p.solvables))
		copy(solvables, p.solvables)
		p.mu.RUnlock()

		t := radix.New()
		for i, s := range solvables {
			selfListed := false
			for _, prov := range s.Provides {
				add(t, prov, SolvableId(i))
				if prov == s.Name {
					selfListed = true
				}
			}
			// A package always implicitly provides its own name, per
			// standard RPM semantics.
			if s.Kind == KindPackage && !selfListed {
				add(t, s.Name, SolvableId(i))
			}
		}

		p.mu.Lock()
		p.providesIdx = t
		p.providesGen = gen
		p.mu.Unlock()

		return t, nil
	})

	return v.(*radix.Tree)
}

func add(t *radix.Tree, key string, id SolvableId) {
	if v, ok := t.Get(key); ok {
		ids := v.([]SolvableId)
		t.Insert(key, append(ids, id))
		return
	}
	t.Insert(key, []SolvableId{id})
}

// WhatProvides returns every solvable id that provides depname, ignoring
// the considered bitmap (callers that need filtering compose this with
// Query).
func (p *Pool) WhatProvides(depname string) []SolvableId {
	idx := p.ensureProvidesIndex()
	if v, ok := idx.Get(depname); ok {
		return append([]SolvableId(nil), v.([]SolvableId)...)
	}
	return nil
}

// WhatProvidesPrefix returns every (provide-name, solvable id) pair whose
// provide name has the given prefix; used by Query's glob filters.
func (p *Pool) WhatProvidesPrefix(prefix string) map[string][]SolvableId {
	idx := p.ensureProvidesIndex()
	out := make(map[string][]SolvableId)
	idx.WalkPrefix(prefix, func(k string, v interface{}) bool {
		out[k] = append([]SolvableId(nil), v.([]SolvableId)...)
		return false
	})
	return out
}
