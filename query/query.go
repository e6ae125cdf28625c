// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package query implements C5 of the core engine: a composable, immutable
// filter over a Pool, plus the ordered spec-resolution strategy chain
// that turns a user-typed string into a matched NEVRA.
package query

import (
	"sort"
	"strings"

	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/rpmver"
)

// PackageSet is an immutable bitmap over SolvableIds of one Pool. Cloning
// and refining never mutates the receiver, so independent filters
// commute.
type PackageSet struct {
	p   *pool.Pool
	ids map[pool.SolvableId]struct{}
}

// New returns a PackageSet containing every currently-considered solvable
// in p.
func New(p *pool.Pool) PackageSet {
	ids := make(map[pool.SolvableId]struct{})
	for i := 0; i < p.Len(); i++ {
		id := pool.SolvableId(i)
		if p.IsConsidered(id) {
			ids[id] = struct{}{}
		}
	}
	return PackageSet{p: p, ids: ids}
}

// NewUnfiltered returns a PackageSet over every solvable in p, ignoring the
// considered bitmap. Used by callers that explicitly opt out of modular
// filtering.
func NewUnfiltered(p *pool.Pool) PackageSet {
	ids := make(map[pool.SolvableId]struct{})
	for i := 0; i < p.Len(); i++ {
		ids[pool.SolvableId(i)] = struct{}{}
	}
	return PackageSet{p: p, ids: ids}
}

// clone returns a shallow copy whose map can be mutated without affecting
// the receiver.
func (s PackageSet) clone() PackageSet {
	ids := make(map[pool.SolvableId]struct{}, len(s.ids))
	for id := range s.ids {
		ids[id] = struct{}{}
	}
	return PackageSet{p: s.p, ids: ids}
}

// Ids returns the sorted list of SolvableIds currently in the set. The set
// is only ever materialized on iteration.
func (s PackageSet) Ids() []pool.SolvableId {
	out := make([]pool.SolvableId, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len reports the number of elements in the set.
func (s PackageSet) Len() int { return len(s.ids) }

// filter returns a new PackageSet containing only ids for which keep
// returns true.
func (s PackageSet) filter(keep func(id pool.SolvableId, sv pool.Solvable) bool) PackageSet {
	out := s.clone()
	for id := range s.ids {
		sv, err := s.p.Solvable(id)
		if err != nil || !keep(id, sv) {
			delete(out.ids, id)
		}
	}
	return out
}

// Name keeps only solvables with the exact given name.
func (s PackageSet) Name(name string) PackageSet {
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool { return sv.Name == name })
}

// Arch keeps only solvables with the exact given arch.
func (s PackageSet) Arch(arch string) PackageSet {
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool { return sv.Arch == arch })
}

// EVR keeps only solvables whose EVR satisfies cmp against target.
func (s PackageSet) EVR(cmp rpmver.Comparator, target rpmver.EVR) PackageSet {
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool { return cmp.Match(sv.EVR, target) })
}

// Nevra keeps only solvables matching n exactly under the given forms (the
// arch/evr components of forms that don't carry them are left unfiltered).
func (s PackageSet) Nevra(n rpmver.NEVRA) PackageSet {
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool {
		if sv.Name != n.Name {
			return false
		}
		if n.Arch != "" && sv.Arch != n.Arch {
			return false
		}
		if n.EVR != (rpmver.EVR{}) && rpmver.Compare(sv.EVR, n.EVR) != 0 {
			return false
		}
		return true
	})
}

// Provides keeps only solvables providing depname (including a package's
// implicit self-provide).
func (s PackageSet) Provides(depname string) PackageSet {
	providers := make(map[pool.SolvableId]struct{})
	for _, id := range s.p.WhatProvides(depname) {
		providers[id] = struct{}{}
	}
	return s.filter(func(id pool.SolvableId, _ pool.Solvable) bool {
		_, ok := providers[id]
		return ok
	})
}

// Requires keeps only solvables that declare depname as a requirement.
func (s PackageSet) Requires(depname string) PackageSet {
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool { return containsString(sv.Requires, depname) })
}

// Supplements keeps only solvables that declare depname as a supplement.
func (s PackageSet) Supplements(depname string) PackageSet {
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool { return containsString(sv.Supplements, depname) })
}

// Obsoletes keeps only solvables that declare depname as an obsolete.
func (s PackageSet) Obsoletes(depname string) PackageSet {
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool { return containsString(sv.Obsoletes, depname) })
}

// Advisories keeps only solvables covered by at least one updateinfo
// Advisory, optionally narrowed to a single advisory type ("" matches
// any type, e.g. "security"/"bugfix"/"enhancement").
func (s PackageSet) Advisories(advisoryType string) PackageSet {
	return s.filter(func(id pool.SolvableId, _ pool.Solvable) bool {
		for _, adv := range s.p.Advisories(id) {
			if advisoryType == "" || adv.Type == advisoryType {
				return true
			}
		}
		return false
	})
}

// RepoID keeps only solvables sourced from the given repo id.
func (s PackageSet) RepoID(id string) PackageSet {
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool { return s.p.RepoID(sv.Repo) == id })
}

// Installed keeps only solvables from the Pool's System repo.
func (s PackageSet) Installed() PackageSet {
	h, ok := s.p.InstalledRepo()
	if !ok {
		return s.clone().filter(func(pool.SolvableId, pool.Solvable) bool { return false })
	}
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool { return sv.Repo == h })
}

// Available keeps only solvables NOT from the Pool's System repo.
func (s PackageSet) Available() PackageSet {
	h, hasInstalled := s.p.InstalledRepo()
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool {
		return !hasInstalled || sv.Repo != h
	})
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Union returns the set union of s and other. Both must share the same
// Pool.
func (s PackageSet) Union(other PackageSet) PackageSet {
	out := s.clone()
	for id := range other.ids {
		out.ids[id] = struct{}{}
	}
	return out
}

// Intersect returns the set intersection of s and other.
func (s PackageSet) Intersect(other PackageSet) PackageSet {
	out := s.clone()
	for id := range out.ids {
		if _, ok := other.ids[id]; !ok {
			delete(out.ids, id)
		}
	}
	return out
}

// Difference returns every element of s not present in other.
func (s PackageSet) Difference(other PackageSet) PackageSet {
	out := s.clone()
	for id := range other.ids {
		delete(out.ids, id)
	}
	return out
}

// Priority keeps, for each name, only the solvables sourced from the
// highest-priority (lowest priority number) repo that provides that name,
// applied before Latest in upgrade paths so lower-priority repos are
// never considered "best".
func (s PackageSet) Priority() PackageSet {
	type best struct {
		priority int
		cost     int
		ok       bool
	}
	bestByName := make(map[string]best)

	for id := range s.ids {
		sv, err := s.p.Solvable(id)
		if err != nil {
			continue
		}
		pr, cost := s.p.RepoPriority(sv.Repo)
		b, ok := bestByName[sv.Name]
		if !ok || pr < b.priority || (pr == b.priority && cost < b.cost) {
			bestByName[sv.Name] = best{priority: pr, cost: cost, ok: true}
		}
	}

	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool {
		pr, cost := s.p.RepoPriority(sv.Repo)
		b := bestByName[sv.Name]
		return pr == b.priority && cost == b.cost
	})
}

// bucketKey groups solvables for Latest/Earliest by name/arch bucket.
func bucketKey(sv pool.Solvable) string { return sv.Name + "." + sv.Arch }

// Latest keeps, within each (name, arch) bucket, the N highest EVRs. N<0
// keeps all but the |N| highest; N=0 empties the set.
func (s PackageSet) Latest(n int) PackageSet {
	return s.latestOrEarliest(n, true)
}

// Earliest is Latest's mirror image: keeps the N lowest EVRs per bucket.
func (s PackageSet) Earliest(n int) PackageSet {
	return s.latestOrEarliest(n, false)
}

func (s PackageSet) latestOrEarliest(n int, highest bool) PackageSet {
	if n == 0 {
		out := s.clone()
		out.ids = make(map[pool.SolvableId]struct{})
		return out
	}

	type entry struct {
		id pool.SolvableId
		sv pool.Solvable
	}
	buckets := make(map[string][]entry)
	for id := range s.ids {
		sv, err := s.p.Solvable(id)
		if err != nil {
			continue
		}
		k := bucketKey(sv)
		buckets[k] = append(buckets[k], entry{id, sv})
	}

	out := s.clone()
	out.ids = make(map[pool.SolvableId]struct{})

	for _, entries := range buckets {
		sort.SliceStable(entries, func(i, j int) bool {
			c := rpmver.Compare(entries[i].sv.EVR, entries[j].sv.EVR)
			if highest {
				return c > 0
			}
			return c < 0
		})

		start, keep := 0, n
		if n < 0 {
			start, keep = -n, len(entries) // n<0: all but the |n| highest-ranked
		}
		if keep > len(entries) {
			keep = len(entries)
		}
		for i := start; i < keep; i++ {
			out.ids[entries[i].id] = struct{}{}
		}
	}

	return out
}

// Upgrades keeps only available solvables that are a strict EVR upgrade
// over some installed solvable of the same name/arch.
func (s PackageSet) Upgrades() PackageSet {
	installedBest := make(map[string]rpmver.EVR)
	h, hasInstalled := s.p.InstalledRepo()
	if hasInstalled {
		for i := 0; i < s.p.Len(); i++ {
			id := pool.SolvableId(i)
			sv, err := s.p.Solvable(id)
			if err != nil || sv.Repo != h {
				continue
			}
			k := bucketKey(sv)
			if cur, ok := installedBest[k]; !ok || rpmver.Less(cur, sv.EVR) {
				installedBest[k] = sv.EVR
			}
		}
	}

	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool {
		cur, ok := installedBest[bucketKey(sv)]
		return ok && rpmver.Less(cur, sv.EVR)
	})
}

// Downgrades is Upgrades' mirror image.
func (s PackageSet) Downgrades() PackageSet {
	installedBest := make(map[string]rpmver.EVR)
	h, hasInstalled := s.p.InstalledRepo()
	if hasInstalled {
		for i := 0; i < s.p.Len(); i++ {
			id := pool.SolvableId(i)
			sv, err := s.p.Solvable(id)
			if err != nil || sv.Repo != h {
				continue
			}
			k := bucketKey(sv)
			if cur, ok := installedBest[k]; !ok || rpmver.Less(sv.EVR, cur) {
				installedBest[k] = sv.EVR
			}
		}
	}

	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool {
		cur, ok := installedBest[bucketKey(sv)]
		return ok && rpmver.Less(sv.EVR, cur)
	})
}

// GlobNames keeps only solvables whose name matches the glob pattern
// (supporting '*' and '?', case-sensitive). A pattern that is a plain
// prefix followed by a single trailing '*' (the common "foo*" case) is
// resolved via the Pool's provides radix index instead of a full scan,
// reusing the same prefix walk the provides lookup already maintains.
func (s PackageSet) GlobNames(pattern string) PackageSet {
	if prefix, ok := trailingStarPrefix(pattern); ok {
		matched := make(map[pool.SolvableId]struct{})
		for _, ids := range s.p.WhatProvidesPrefix(prefix) {
			for _, id := range ids {
				matched[id] = struct{}{}
			}
		}
		return s.filter(func(id pool.SolvableId, sv pool.Solvable) bool {
			if _, ok := matched[id]; !ok {
				return false
			}
			ok, _ := globMatch(pattern, sv.Name)
			return ok
		})
	}
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool {
		ok, _ := globMatch(pattern, sv.Name)
		return ok
	})
}

// GlobNamesFold is GlobNames case-folded (IGLOB comparator).
func (s PackageSet) GlobNamesFold(pattern string) PackageSet {
	lp := strings.ToLower(pattern)
	return s.filter(func(_ pool.SolvableId, sv pool.Solvable) bool {
		ok, _ := globMatch(lp, strings.ToLower(sv.Name))
		return ok
	})
}

// trailingStarPrefix reports whether pattern is a literal prefix followed
// by exactly one trailing '*' and no other glob metacharacters, in which
// case the radix-backed provides prefix walk can narrow the scan.
func trailingStarPrefix(pattern string) (string, bool) {
	if pattern == "" || pattern[len(pattern)-1] != '*' {
		return "", false
	}
	prefix := pattern[:len(pattern)-1]
	if strings.ContainsAny(prefix, "*?") {
		return "", false
	}
	return prefix, true
}

// globMatch is a minimal '*'/'?' glob matcher; used instead of
// filepath.Match because package names may legitimately contain
// characters filepath.Match treats specially on some platforms (e.g. the
// Windows separator), and because IGLOB needs pre-folded case-insensitive
// comparison, which filepath.Match cannot do.
func globMatch(pattern, name string) (bool, error) {
	return matchHere(pattern, name), nil
}

func matchHere(pattern, s string) bool {
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '*':
		if matchHere(pattern[1:], s) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if matchHere(pattern[1:], s[i+1:]) {
				return true
			}
		}
		return false
	case '?':
		if s == "" {
			return false
		}
		return matchHere(pattern[1:], s[1:])
	default:
		if s == "" || s[0] != pattern[0] {
			return false
		}
		return matchHere(pattern[1:], s[1:])
	}
}
