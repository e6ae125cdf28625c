// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package module

import (
	"strings"
	"testing"

	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/rpmver"
	"github.com/dnfcore/engine/solver"
)

func mustEVR(t *testing.T, s string) rpmver.EVR {
	t.Helper()
	e, err := rpmver.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

const sampleModulesYAML = `---
document: modulemd
version: 2
data:
  name: nodejs
  stream: "16"
  version: 1
  context: abc123
  arch: x86_64
  artifacts:
    rpms:
      - nodejs-0:16.0.0-1.x86_64
  profiles:
    default:
      rpms:
        - nodejs
---
document: modulemd
version: 2
data:
  name: nodejs
  stream: "18"
  version: 1
  context: def456
  arch: x86_64
  artifacts:
    rpms:
      - nodejs-0:18.0.0-1.x86_64
---
document: modulemd-defaults
version: 1
data:
  module: nodejs
  stream: "18"
`

func loadSampleSack(t *testing.T) *Sack {
	t.Helper()
	s := NewSack()
	if err := s.LoadModulemd(strings.NewReader(sampleModulesYAML)); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadModulemdParsesItemsAndDefaults(t *testing.T) {
	s := loadSampleSack(t)
	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 module items, got %d", len(items))
	}

	d, ok := s.Defaults("nodejs")
	if !ok || d.DefaultStream != "18" {
		t.Fatalf("expected default stream 18, got %+v ok=%v", d, ok)
	}
}

func TestActiveSetPicksDefaultStreamWhenUntouched(t *testing.T) {
	s := loadSampleSack(t)
	active, probs := s.ActiveSet(solverStub{})
	if probs != nil {
		t.Fatalf("unexpected problems: %+v", probs.Problems)
	}
	item, ok := active["nodejs.x86_64"]
	if !ok || item.Stream != "18" {
		t.Fatalf("expected default stream 18 active, got %+v ok=%v", item, ok)
	}
}

func TestEnableOverridesDefault(t *testing.T) {
	s := loadSampleSack(t)
	req := NewRequest()
	s.Enable(req, "nodejs", "16")
	if err := s.ApplyRequest(req, false); err != nil {
		t.Fatal(err)
	}

	active, probs := s.ActiveSet(solverStub{})
	if probs != nil {
		t.Fatalf("unexpected problems: %+v", probs.Problems)
	}
	item, ok := active["nodejs.x86_64"]
	if !ok || item.Stream != "16" {
		t.Fatalf("expected enabled stream 16 active, got %+v ok=%v", item, ok)
	}
}

func TestMultipleStreamsInOneRequestIsAnError(t *testing.T) {
	s := loadSampleSack(t)
	req := NewRequest()
	s.Enable(req, "nodejs", "16")
	s.Enable(req, "nodejs", "18")
	if err := s.ApplyRequest(req, false); err == nil {
		t.Fatal("expected EnableMultipleStreamsError")
	} else if _, ok := err.(*EnableMultipleStreamsError); !ok {
		t.Fatalf("expected *EnableMultipleStreamsError, got %T: %v", err, err)
	}
}

func TestStreamSwitchDeniedWithoutPermission(t *testing.T) {
	s := loadSampleSack(t)

	first := NewRequest()
	s.Enable(first, "nodejs", "16")
	if err := s.ApplyRequest(first, false); err != nil {
		t.Fatal(err)
	}

	second := NewRequest()
	s.Enable(second, "nodejs", "18")
	err := s.ApplyRequest(second, false)
	if err == nil {
		t.Fatal("expected ModuleCannotSwitchStreams")
	}
	if _, ok := err.(*ModuleCannotSwitchStreams); !ok {
		t.Fatalf("expected *ModuleCannotSwitchStreams, got %T: %v", err, err)
	}
}

func TestStreamSwitchAllowedWithPermission(t *testing.T) {
	s := loadSampleSack(t)

	first := NewRequest()
	s.Enable(first, "nodejs", "16")
	if err := s.ApplyRequest(first, false); err != nil {
		t.Fatal(err)
	}

	second := NewRequest()
	s.Enable(second, "nodejs", "18")
	if err := s.ApplyRequest(second, true); err != nil {
		t.Fatalf("expected stream switch to succeed with permission: %v", err)
	}
}

func TestResetClearsEnabledStream(t *testing.T) {
	s := loadSampleSack(t)
	enable := NewRequest()
	s.Enable(enable, "nodejs", "16")
	if err := s.ApplyRequest(enable, false); err != nil {
		t.Fatal(err)
	}

	reset := NewRequest()
	s.Reset(reset, "nodejs")
	if err := s.ApplyRequest(reset, false); err != nil {
		t.Fatal(err)
	}

	st := s.State()["nodejs"]
	if st.Status != Available {
		t.Fatalf("expected Available after reset, got %v", st.Status)
	}
}

func TestApplyConsideredExcludesInactiveArtifacts(t *testing.T) {
	s := loadSampleSack(t)
	active, probs := s.ActiveSet(solverStub{})
	if probs != nil {
		t.Fatalf("unexpected problems: %+v", probs.Problems)
	}

	p := pool.New()
	h, _ := p.AddRepo("fedora", pool.RepoAvailable)
	old, _ := p.AddSolvable(pool.Solvable{Repo: h, Name: "nodejs", EVR: mustEVR(t, "0:16.0.0-1"), Arch: "x86_64", Kind: pool.KindPackage})
	active18, _ := p.AddSolvable(pool.Solvable{Repo: h, Name: "nodejs", EVR: mustEVR(t, "0:18.0.0-1"), Arch: "x86_64", Kind: pool.KindPackage})

	if err := ApplyConsidered(p, s.Items(), active); err != nil {
		t.Fatal(err)
	}

	if p.IsConsidered(old) {
		t.Fatal("expected the inactive-stream artifact to be excluded")
	}
	if !p.IsConsidered(active18) {
		t.Fatal("expected the active-stream artifact to remain considered")
	}
}

const conflictingDefaultsYAML = `---
document: modulemd
version: 2
data:
  name: nodejs
  stream: "18"
  version: 1
  context: def456
  arch: x86_64
  artifacts:
    rpms:
      - nodejs-0:18.0.0-1.x86_64
---
document: modulemd-defaults
version: 1
data:
  module: nodejs
  stream: "18"
---
document: modulemd-defaults
version: 1
data:
  module: nodejs
  stream: "16"
`

func TestLoadModulemdRejectsConflictingDefaults(t *testing.T) {
	s := NewSack()
	err := s.LoadModulemd(strings.NewReader(conflictingDefaultsYAML))
	if err == nil {
		t.Fatal("expected a ConflictingDefaultsError for disagreeing default streams")
	}
	if _, ok := err.(*ConflictingDefaultsError); !ok {
		t.Fatalf("expected *ConflictingDefaultsError, got %T: %v", err, err)
	}
}

func TestLoadModulemdAllowsRepeatedIdenticalDefaults(t *testing.T) {
	s := NewSack()
	doc := conflictingDefaultsYAML[:strings.LastIndex(conflictingDefaultsYAML, "---")] +
		"---\ndocument: modulemd-defaults\nversion: 1\ndata:\n  module: nodejs\n  stream: \"18\"\n"
	if err := s.LoadModulemd(strings.NewReader(doc)); err != nil {
		t.Fatalf("expected identical repeated defaults to be accepted, got %v", err)
	}
}

// solverStub is a trivial Solver that installs everything jobbed, enough
// to exercise ActiveSet's job construction without pulling in the naive
// reference solver as a test dependency.
type solverStub struct{}

func (solverStub) Solve(p *pool.Pool, jobs []solver.Job, opts solver.SolveOptions) (solver.Transaction, *solver.ProblemSet) {
	var t solver.Transaction
	for _, j := range jobs {
		for _, id := range j.Set {
			t.Transitions = append(t.Transitions, solver.Transition{Kind: solver.TransitionInbound, Solvable: id})
		}
	}
	return t, nil
}
