// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import (
	"strings"

	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/rpmver"
)

// ResolveSpecSettings gates which fallback strategies ResolvePkgSpec is
// allowed to try, beyond the always-on exact-NEVRA and name.arch
// strategies. Each field enables the fallback strategy it names; a
// strategy whose field is false is never tried, so a caller can turn a
// strategy off even for a spec that looks like it would match.
type ResolveSpecSettings struct {
	ExpandGlobs   bool
	WithProvides  bool
	WithFilenames bool
	WithBinaries  bool
}

// DefaultResolveSpecSettings enables every fallback strategy, matching
// a typical interactive CLI invocation.
func DefaultResolveSpecSettings() ResolveSpecSettings {
	return ResolveSpecSettings{
		ExpandGlobs:   true,
		WithProvides:  true,
		WithFilenames: true,
		WithBinaries:  true,
	}
}

// resolveStrategy is one link in the resolve_pkg_spec fallback chain,
// modeled on an ordered-strategy-chain idiom for turning one user-typed
// string into a concrete result (deducers.go/deduce.go: each deduceFrom*
// func tries its own interpretation and reports ok=false to fall through
// to the next).
type resolveStrategy func(base PackageSet, spec string) (PackageSet, bool)

// ResolvePkgSpec runs spec through the ordered fallback chain: exact
// NEVRA, then name.arch (always tried), then glob expansion, provides
// lookup, filename, and /usr/bin,/usr/sbin binary lookup (each tried
// only if settings enables it). The first strategy to produce a
// non-empty set wins; callers that need every interpretation tried
// regardless of emptiness should call the individual PackageSet filters
// directly.
func ResolvePkgSpec(p *pool.Pool, base PackageSet, spec string, settings ResolveSpecSettings) (PackageSet, bool) {
	strategies := []resolveStrategy{resolveExactNevra, resolveNameArch}
	if settings.ExpandGlobs {
		strategies = append(strategies, resolveGlob)
	}
	if settings.WithProvides {
		strategies = append(strategies, resolveProvides)
	}
	if settings.WithFilenames {
		strategies = append(strategies, resolveFilename)
	}
	if settings.WithBinaries {
		strategies = append(strategies, resolveBinary)
	}

	for _, strat := range strategies {
		if out, ok := strat(base, spec); ok && out.Len() > 0 {
			return out, true
		}
	}
	return PackageSet{}, false
}

func resolveExactNevra(base PackageSet, spec string) (PackageSet, bool) {
	n, _, ok := rpmver.ParseNEVRA(spec, rpmver.FormNEVRA, rpmver.FormNEVR)
	if !ok {
		return PackageSet{}, false
	}
	return base.Nevra(n), true
}

func resolveNameArch(base PackageSet, spec string) (PackageSet, bool) {
	n, _, ok := rpmver.ParseNEVRA(spec, rpmver.FormNA)
	if !ok {
		return PackageSet{}, false
	}
	return base.Nevra(n), true
}

func resolveGlob(base PackageSet, spec string) (PackageSet, bool) {
	if !strings.ContainsAny(spec, "*?") {
		return PackageSet{}, false
	}
	return base.GlobNames(spec), true
}

// resolveProvides tries spec as a Provides capability verbatim,
// including plain names that don't parse as a NEVRA form — gated only
// by ResolveSpecSettings.WithProvides, never by the spec string's own
// shape, so a bare capability name can reach this strategy.
func resolveProvides(base PackageSet, spec string) (PackageSet, bool) {
	return base.Provides(spec), true
}

func resolveFilename(base PackageSet, spec string) (PackageSet, bool) {
	if !strings.HasPrefix(spec, "/") {
		return PackageSet{}, false
	}
	return base.filter(func(_ pool.SolvableId, sv pool.Solvable) bool {
		return containsString(sv.Files, spec)
	}), true
}

func resolveBinary(base PackageSet, spec string) (PackageSet, bool) {
	if strings.ContainsAny(spec, "/") {
		return PackageSet{}, false
	}
	candidates := []string{"/usr/bin/" + spec, "/usr/sbin/" + spec}
	return base.filter(func(_ pool.SolvableId, sv pool.Solvable) bool {
		for _, c := range candidates {
			if containsString(sv.Files, c) {
				return true
			}
		}
		return false
	}), true
}
