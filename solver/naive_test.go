// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"testing"

	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/rpmver"
)

func evr(t *testing.T, s string) rpmver.EVR {
	t.Helper()
	e, err := rpmver.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// TestSimpleInstall mirrors scenario 1: installing a package
// with no dependencies yields exactly one inbound transition.
func TestSimpleInstall(t *testing.T) {
	p := pool.New()
	h, _ := p.AddRepo("fedora", pool.RepoAvailable)
	id, _ := p.AddSolvable(pool.Solvable{
		Repo: h, Name: "meson", EVR: evr(t, "1.0-1"), Arch: "x86_64",
		Provides: []string{"meson"}, Kind: pool.KindPackage,
	})

	s := NewNaiveSolver()
	tx, probs := s.Solve(p, []Job{{Kind: JobInstall, Set: []pool.SolvableId{id}}}, SolveOptions{})
	if probs != nil {
		t.Fatalf("unexpected problems: %+v", probs.Problems)
	}
	if len(tx.Transitions) != 1 || tx.Transitions[0].Kind != TransitionInbound || tx.Transitions[0].Solvable != id {
		t.Fatalf("got %+v", tx.Transitions)
	}
}

// TestInstallPullsInRequires verifies transitive dependency resolution.
func TestInstallPullsInRequires(t *testing.T) {
	p := pool.New()
	h, _ := p.AddRepo("fedora", pool.RepoAvailable)
	libID, _ := p.AddSolvable(pool.Solvable{
		Repo: h, Name: "libfoo", EVR: evr(t, "1-1"), Arch: "x86_64",
		Provides: []string{"libfoo"}, Kind: pool.KindPackage,
	})
	appID, _ := p.AddSolvable(pool.Solvable{
		Repo: h, Name: "app", EVR: evr(t, "1-1"), Arch: "x86_64",
		Provides: []string{"app"}, Requires: []string{"libfoo"}, Kind: pool.KindPackage,
	})

	s := NewNaiveSolver()
	tx, probs := s.Solve(p, []Job{{Kind: JobInstall, Set: []pool.SolvableId{appID}}}, SolveOptions{})
	if probs != nil {
		t.Fatalf("unexpected problems: %+v", probs.Problems)
	}

	got := map[pool.SolvableId]bool{}
	for _, tr := range tx.Transitions {
		got[tr.Solvable] = true
	}
	if !got[appID] || !got[libID] {
		t.Fatalf("expected both app and libfoo installed, got %+v", tx.Transitions)
	}
}

// TestMissingRequireIsAProblem ensures an unsatisfiable require surfaces a
// ProblemSet rather than a partial transaction.
func TestMissingRequireIsAProblem(t *testing.T) {
	p := pool.New()
	h, _ := p.AddRepo("fedora", pool.RepoAvailable)
	appID, _ := p.AddSolvable(pool.Solvable{
		Repo: h, Name: "app", EVR: evr(t, "1-1"), Arch: "x86_64",
		Requires: []string{"missing-lib"}, Kind: pool.KindPackage,
	})

	s := NewNaiveSolver()
	_, probs := s.Solve(p, []Job{{Kind: JobInstall, Set: []pool.SolvableId{appID}}}, SolveOptions{})
	if probs == nil {
		t.Fatal("expected a problem set for the missing require")
	}
}

// TestUpgradeWithObsoletes mirrors scenario 3.
func TestUpgradeWithObsoletes(t *testing.T) {
	p := pool.New()
	sysH, _ := p.AddRepo("system", pool.RepoSystem)
	fooOld, _ := p.AddSolvable(pool.Solvable{
		Repo: sysH, Name: "foo", EVR: evr(t, "1-1"), Arch: "x86_64",
		Provides: []string{"foo"}, Kind: pool.KindPackage,
	})

	availH, _ := p.AddRepo("fedora", pool.RepoAvailable)
	barNew, _ := p.AddSolvable(pool.Solvable{
		Repo: availH, Name: "bar", EVR: evr(t, "2-1"), Arch: "x86_64",
		Provides: []string{"bar"}, Obsoletes: []string{"foo"}, Kind: pool.KindPackage,
	})

	s := NewNaiveSolver()
	tx, probs := s.Solve(p, []Job{{Kind: JobInstall, Set: []pool.SolvableId{barNew}}}, SolveOptions{})
	if probs != nil {
		t.Fatalf("unexpected problems: %+v", probs.Problems)
	}

	var sawInboundWithPair, sawOutbound bool
	for _, tr := range tx.Transitions {
		if tr.Kind == TransitionInbound && tr.Solvable == barNew {
			for _, pid := range tr.Paired {
				if pid == fooOld {
					sawInboundWithPair = true
				}
			}
		}
		if tr.Kind == TransitionOutbound && tr.Solvable == fooOld {
			sawOutbound = true
		}
	}
	if !sawInboundWithPair || !sawOutbound {
		t.Fatalf("expected bar to obsolete foo, got %+v", tx.Transitions)
	}
}

func TestRemove(t *testing.T) {
	p := pool.New()
	h, _ := p.AddRepo("system", pool.RepoSystem)
	id, _ := p.AddSolvable(pool.Solvable{Repo: h, Name: "old", Arch: "x86_64", Kind: pool.KindPackage})

	s := NewNaiveSolver()
	tx, probs := s.Solve(p, []Job{{Kind: JobRemove, Set: []pool.SolvableId{id}}}, SolveOptions{})
	if probs != nil {
		t.Fatalf("unexpected problems: %+v", probs.Problems)
	}
	if len(tx.Transitions) != 1 || tx.Transitions[0].Kind != TransitionOutbound {
		t.Fatalf("got %+v", tx.Transitions)
	}
}

func TestConflictIsAProblem(t *testing.T) {
	p := pool.New()
	h, _ := p.AddRepo("fedora", pool.RepoAvailable)
	a, _ := p.AddSolvable(pool.Solvable{Repo: h, Name: "a", Arch: "x86_64", Provides: []string{"a"}, Conflicts: []string{"b"}, Kind: pool.KindPackage})
	b, _ := p.AddSolvable(pool.Solvable{Repo: h, Name: "b", Arch: "x86_64", Provides: []string{"b"}, Kind: pool.KindPackage})

	s := NewNaiveSolver()
	_, probs := s.Solve(p, []Job{
		{Kind: JobInstall, Set: []pool.SolvableId{a}},
		{Kind: JobInstall, Set: []pool.SolvableId{b}},
	}, SolveOptions{})
	if probs == nil {
		t.Fatal("expected a conflict problem")
	}
}

// TestMissingRecommendIsLaxOnlyUnderStrict verifies that an unsatisfiable
// Recommends is swallowed in lax mode but surfaces as a Problem once
// SolveOptions.Strict is set, the divergence step 9's lax/strict re-run
// relies on to produce two independent reports.
func TestMissingRecommendIsLaxOnlyUnderStrict(t *testing.T) {
	p := pool.New()
	h, _ := p.AddRepo("fedora", pool.RepoAvailable)
	appID, _ := p.AddSolvable(pool.Solvable{
		Repo: h, Name: "app", EVR: evr(t, "1-1"), Arch: "x86_64",
		Provides: []string{"app"}, Recommends: []string{"missing-extra"}, Kind: pool.KindPackage,
	})

	s := NewNaiveSolver()
	_, probs := s.Solve(p, []Job{{Kind: JobInstall, Set: []pool.SolvableId{appID}}},
		SolveOptions{InstallWeakDeps: true, Strict: false})
	if probs != nil {
		t.Fatalf("expected lax mode to swallow the missing recommend, got %+v", probs.Problems)
	}

	_, probs = s.Solve(p, []Job{{Kind: JobInstall, Set: []pool.SolvableId{appID}}},
		SolveOptions{InstallWeakDeps: true, Strict: true})
	if probs == nil {
		t.Fatal("expected strict mode to surface the missing recommend as a problem")
	}
}

// TestRecommendPullsInWeakDependencyOrigin verifies a satisfiable
// Recommends is only walked when InstallWeakDeps is set, and the
// resulting Transition is tagged OriginWeakDependency.
func TestRecommendPullsInWeakDependencyOrigin(t *testing.T) {
	p := pool.New()
	h, _ := p.AddRepo("fedora", pool.RepoAvailable)
	extraID, _ := p.AddSolvable(pool.Solvable{
		Repo: h, Name: "extra", EVR: evr(t, "1-1"), Arch: "x86_64",
		Provides: []string{"extra"}, Kind: pool.KindPackage,
	})
	appID, _ := p.AddSolvable(pool.Solvable{
		Repo: h, Name: "app", EVR: evr(t, "1-1"), Arch: "x86_64",
		Provides: []string{"app"}, Recommends: []string{"extra"}, Kind: pool.KindPackage,
	})

	s := NewNaiveSolver()
	tx, probs := s.Solve(p, []Job{{Kind: JobInstall, Set: []pool.SolvableId{appID}}}, SolveOptions{})
	if probs != nil {
		t.Fatalf("unexpected problems: %+v", probs.Problems)
	}
	for _, tr := range tx.Transitions {
		if tr.Solvable == extraID {
			t.Fatalf("expected extra not to be pulled in without InstallWeakDeps, got %+v", tx.Transitions)
		}
	}

	s = NewNaiveSolver()
	tx, probs = s.Solve(p, []Job{{Kind: JobInstall, Set: []pool.SolvableId{appID}}}, SolveOptions{InstallWeakDeps: true})
	if probs != nil {
		t.Fatalf("unexpected problems: %+v", probs.Problems)
	}
	var sawExtra bool
	for _, tr := range tx.Transitions {
		if tr.Solvable == extraID {
			sawExtra = true
			if tr.Origin != OriginWeakDependency {
				t.Fatalf("expected extra's origin to be OriginWeakDependency, got %v", tr.Origin)
			}
		}
	}
	if !sawExtra {
		t.Fatal("expected extra to be pulled in with InstallWeakDeps set")
	}
}
