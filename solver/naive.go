// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"sort"

	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/rpmver"
)

// NaiveSolver is a reference Solver implementation: a breadth-first
// requires/provides walk with simple conflict detection and no
// backtracking search. It exists only to make the Solver contract
// testable end-to-end inside this module, standing in for the opaque
// engine the core treats as an external collaborator. Production
// callers are expected to supply a real SAT-style engine satisfying the
// same interface.
type NaiveSolver struct {
	// Favored/Disfavored solvables are preferred/avoided when the solver
	// must pick among multiple candidates providing the same name,
	// corresponding to Job{Kind: JobFavor/JobDisfavor}.
	favored, disfavored map[pool.SolvableId]bool
}

// NewNaiveSolver returns a ready-to-use NaiveSolver.
func NewNaiveSolver() *NaiveSolver {
	return &NaiveSolver{
		favored:    make(map[pool.SolvableId]bool),
		disfavored: make(map[pool.SolvableId]bool),
	}
}

type installedAtom struct {
	id   pool.SolvableId
	name string
	arch string
}

// Solve implements Solver.
func (s *NaiveSolver) Solve(p *pool.Pool, jobs []Job, opts SolveOptions) (Transaction, *ProblemSet) {
	w := &naiveWalk{
		pool:     p,
		solver:   s,
		opts:     opts,
		selected: make(map[string]installedAtom), // key: name.arch
		locked:   make(map[string]bool),
		visited:  make(map[pool.SolvableId]bool),
		outbound: make(map[pool.SolvableId]installedAtom),
		pairedOf: make(map[pool.SolvableId][]pool.SolvableId),
		origin:   make(map[pool.SolvableId]Origin),
	}

	w.seedInstalled()

	var problems []Problem

	for _, j := range jobs {
		directOrigin := OriginDirect
		if j.Group {
			directOrigin = OriginGroup
		}
		switch j.Kind {
		case JobFavor:
			for _, id := range j.Set {
				s.favored[id] = true
			}
		case JobDisfavor:
			for _, id := range j.Set {
				s.disfavored[id] = true
			}
		case JobLock:
			for _, id := range j.Set {
				sv, err := p.Solvable(id)
				if err != nil {
					continue
				}
				w.locked[naKey(sv.Name, sv.Arch)] = true
			}
		case JobVerify:
			// No-op for the reference solver: the seeded installed set is
			// assumed self-consistent.
		case JobInstall, JobBestOf:
			if err := w.install(j.Set, directOrigin); err != nil {
				problems = append(problems, *err)
			}
		case JobProvideInstall:
			ids := p.WhatProvides(j.Depname)
			if len(ids) == 0 {
				problems = append(problems, Problem{Rules: []Rule{{Code: RuleJob, Dep: j.Depname}}})
				continue
			}
			if err := w.install(ids, directOrigin); err != nil {
				problems = append(problems, *err)
			}
		case JobRemove:
			w.remove(j.Set, j.CleanDeps)
		case JobUpgrade, JobDistroSync:
			if err := w.upgrade(j.Set, directOrigin); err != nil {
				problems = append(problems, *err)
			}
		}
	}

	if len(problems) > 0 {
		return Transaction{}, &ProblemSet{Problems: problems}
	}

	return w.finish(), nil
}

type naiveWalk struct {
	pool     *pool.Pool
	solver   *NaiveSolver
	opts     SolveOptions
	selected map[string]installedAtom
	locked   map[string]bool
	visited  map[pool.SolvableId]bool
	outbound map[pool.SolvableId]installedAtom
	// pairedOf maps an inbound id to the installed ids it replaces.
	pairedOf map[pool.SolvableId][]pool.SolvableId
	// origin records the strongest reason any job has selected an id for,
	// per originRank; only meaningful for ids that end up inbound.
	origin  map[pool.SolvableId]Origin
	inbound []pool.SolvableId
}

// originRank orders Origin values from weakest to strongest, matching
// the reason-precedence rule state.Reason follows: a stronger reason
// overwrites a weaker one already recorded for the same id, never the
// reverse.
func originRank(o Origin) int {
	switch o {
	case OriginDirect:
		return 3
	case OriginGroup:
		return 2
	case OriginDependency:
		return 1
	default: // OriginWeakDependency
		return 0
	}
}

func (w *naiveWalk) noteOrigin(id pool.SolvableId, origin Origin) {
	if cur, ok := w.origin[id]; !ok || originRank(origin) > originRank(cur) {
		w.origin[id] = origin
	}
}

func naKey(name, arch string) string { return name + "." + arch }

func (w *naiveWalk) seedInstalled() {
	h, ok := w.pool.InstalledRepo()
	if !ok {
		return
	}
	for i := 0; i < w.pool.Len(); i++ {
		id := pool.SolvableId(i)
		sv, err := w.pool.Solvable(id)
		if err != nil || sv.Repo != h || sv.Kind != pool.KindPackage {
			continue
		}
		w.selected[naKey(sv.Name, sv.Arch)] = installedAtom{id: id, name: sv.Name, arch: sv.Arch}
	}
}

// bestOf picks the most preferable candidate among ids: favored first,
// then highest EVR, then lowest repo cost/priority. Disfavored
// candidates sort last and are picked only when nothing else qualifies;
// non-considered candidates are never picked.
func (w *naiveWalk) bestOf(ids []pool.SolvableId) (pool.SolvableId, pool.Solvable, bool) {
	type cand struct {
		id pool.SolvableId
		sv pool.Solvable
	}
	var cands []cand
	for _, id := range ids {
		if !w.pool.IsConsidered(id) {
			continue
		}
		sv, err := w.pool.Solvable(id)
		if err != nil {
			continue
		}
		cands = append(cands, cand{id, sv})
	}
	if len(cands) == 0 {
		return 0, pool.Solvable{}, false
	}

	sort.SliceStable(cands, func(i, j int) bool {
		fi, fj := w.solver.favored[cands[i].id], w.solver.favored[cands[j].id]
		if fi != fj {
			return fi
		}
		di, dj := w.solver.disfavored[cands[i].id], w.solver.disfavored[cands[j].id]
		if di != dj {
			return !di
		}
		if c := rpmver.Compare(cands[i].sv.EVR, cands[j].sv.EVR); c != 0 {
			return c > 0
		}
		pi, ci := w.pool.RepoPriority(cands[i].sv.Repo)
		pj, cj := w.pool.RepoPriority(cands[j].sv.Repo)
		if pi != pj {
			return pi < pj
		}
		return ci < cj
	})

	return cands[0].id, cands[0].sv, true
}

func (w *naiveWalk) install(candidates []pool.SolvableId, origin Origin) *Problem {
	id, sv, ok := w.bestOf(candidates)
	if !ok {
		return &Problem{Rules: []Rule{{Code: RuleJob}}}
	}
	return w.selectAtom(id, sv, origin)
}

func (w *naiveWalk) selectAtom(id pool.SolvableId, sv pool.Solvable, origin Origin) *Problem {
	key := naKey(sv.Name, sv.Arch)
	w.noteOrigin(id, origin)
	if existing, ok := w.selected[key]; ok && existing.id == id {
		return nil // already selected, idempotent
	}
	if w.locked[key] {
		return &Problem{Rules: []Rule{{Code: RulePackageSameName, Source: id, HasSource: true}}}
	}

	// Conflict check: does sv conflict with anything already selected, or
	// does anything already selected conflict with sv?
	for _, other := range w.selected {
		osv, err := w.pool.Solvable(other.id)
		if err != nil {
			continue
		}
		if conflicts(sv, osv) || conflicts(osv, sv) {
			return &Problem{Rules: []Rule{{Code: RulePackageConflicts, Source: id, HasSource: true, Target: other.id, HasTarget: true}}}
		}
	}

	if prev, had := w.selected[key]; had && prev.id != id {
		w.pairedOf[id] = append(w.pairedOf[id], prev.id)
		w.outbound[prev.id] = prev
	}

	w.selected[key] = installedAtom{id: id, name: sv.Name, arch: sv.Arch}
	if !w.visited[id] {
		w.visited[id] = true
		w.inbound = append(w.inbound, id)

		for _, req := range sv.Requires {
			providers := w.pool.WhatProvides(req)
			if satisfiedBy(w, providers) {
				continue
			}
			if len(providers) == 0 {
				return &Problem{Rules: []Rule{{Code: RulePackageRequires, Source: id, HasSource: true, Dep: req}}}
			}
			if err := w.install(providers, OriginDependency); err != nil {
				return err
			}
		}

		if w.opts.InstallWeakDeps {
			for _, rec := range sv.Recommends {
				providers := w.pool.WhatProvides(rec)
				if satisfiedBy(w, providers) {
					continue
				}
				if len(providers) == 0 {
					if w.opts.Strict {
						return &Problem{Rules: []Rule{{Code: RulePackageRequires, Source: id, HasSource: true, Dep: rec}}}
					}
					continue // lax: an unsatisfiable Recommends is not a failure
				}
				if err := w.install(providers, OriginWeakDependency); err != nil {
					if w.opts.Strict {
						return err
					}
					continue // lax: best-effort, swallow a weak-dep conflict/require failure
				}
			}
		}

		// Obsoletes: anything currently selected that this atom obsoletes
		// becomes an outbound transition paired to this inbound one.
		for _, obs := range sv.Obsoletes {
			for _, other := range w.selected {
				if other.id == id {
					continue
				}
				osv, err := w.pool.Solvable(other.id)
				if err != nil {
					continue
				}
				if osv.Name == obs || containsString(osv.Provides, obs) {
					w.pairedOf[id] = append(w.pairedOf[id], other.id)
					w.outbound[other.id] = other
					delete(w.selected, naKey(osv.Name, osv.Arch))
				}
			}
		}
	}

	return nil
}

func satisfiedBy(w *naiveWalk, providers []pool.SolvableId) bool {
	set := make(map[pool.SolvableId]bool, len(providers))
	for _, id := range providers {
		set[id] = true
	}
	for _, a := range w.selected {
		if set[a.id] {
			return true
		}
	}
	return false
}

func conflicts(a, b pool.Solvable) bool {
	for _, c := range a.Conflicts {
		if c == b.Name || containsString(b.Provides, c) {
			return true
		}
	}
	return false
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func (w *naiveWalk) remove(ids []pool.SolvableId, cleanDeps bool) {
	for _, id := range ids {
		sv, err := w.pool.Solvable(id)
		if err != nil {
			continue
		}
		key := naKey(sv.Name, sv.Arch)
		if a, ok := w.selected[key]; ok && a.id == id {
			delete(w.selected, key)
			w.outbound[id] = a
		}
	}
	_ = cleanDeps // orphan cleanup is a refinement the reference solver does not attempt
}

func (w *naiveWalk) upgrade(candidates []pool.SolvableId, origin Origin) *Problem {
	id, sv, ok := w.bestOf(candidates)
	if !ok {
		return nil // nothing better available is not a failure for upgrade jobs
	}
	key := naKey(sv.Name, sv.Arch)
	if existing, had := w.selected[key]; had {
		existingSv, err := w.pool.Solvable(existing.id)
		if err == nil && rpmver.Compare(sv.EVR, existingSv.EVR) == 0 && existing.id == id {
			w.noteOrigin(id, origin)
			return nil
		}
	}
	return w.selectAtom(id, sv, origin)
}

func (w *naiveWalk) finish() Transaction {
	var t Transaction
	for _, id := range w.inbound {
		t.Transitions = append(t.Transitions, Transition{
			Kind:     TransitionInbound,
			Solvable: id,
			Paired:   w.pairedOf[id],
			Origin:   w.origin[id],
		})
	}
	for id := range w.outbound {
		t.Transitions = append(t.Transitions, Transition{
			Kind:     TransitionOutbound,
			Solvable: id,
		})
	}
	return t
}

