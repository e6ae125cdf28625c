// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command dnfcore-smoke wires Pool -> Goal -> Transaction end to end
// against an in-memory RpmBackend double: no real repo, no real rpm
// execution, just enough of the pipeline to prove the engine's pieces
// fit together. It stands in for a full CLI front end, which is out of
// scope here.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dnfcore/engine/comps"
	"github.com/dnfcore/engine/goal"
	"github.com/dnfcore/engine/internal/elog"
	"github.com/dnfcore/engine/module"
	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/rpmver"
	"github.com/dnfcore/engine/solver"
	"github.com/dnfcore/engine/state"
	"github.com/dnfcore/engine/transaction"
)

// rpmBackend is the in-memory double for the external RpmBackend
// collaborator names: it "executes" a transaction by just
// recording which NEVRAs it was asked to install/remove.
type rpmBackend struct {
	installed []string
	removed   []string
}

func (b *rpmBackend) Apply(p *pool.Pool, pkgs []transaction.Package) error {
	for _, tp := range pkgs {
		sv, err := p.Solvable(tp.Solvable)
		if err != nil {
			return err
		}
		nevra := rpmver.NEVRA{Name: sv.Name, EVR: sv.EVR, Arch: sv.Arch}.String()
		switch tp.Action {
		case transaction.ActionInstall, transaction.ActionUpgrade, transaction.ActionDowngrade, transaction.ActionReinstall:
			b.installed = append(b.installed, nevra)
		case transaction.ActionRemove, transaction.ActionReplaced:
			b.removed = append(b.removed, nevra)
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dnfcore-smoke:", err)
		os.Exit(1)
	}
}

func run() error {
	log := logrus.New()
	sink := elog.NewSink(log)

	p := pool.New()
	repoH, err := p.AddRepo("fedora", pool.RepoAvailable)
	if err != nil {
		return err
	}

	bashEVR, _ := rpmver.Parse("5.1-1")
	bash := pool.Solvable{
		Repo: repoH, Name: "bash", EVR: bashEVR, Arch: "x86_64",
		Provides: []string{"bash", "/bin/sh"}, Kind: pool.KindPackage,
	}
	if _, err := p.AddSolvable(bash); err != nil {
		return err
	}

	stateDir, err := os.MkdirTemp("", "dnfcore-smoke-state-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(stateDir)

	st := state.New(filepath.Join(stateDir, "system_state.json"))
	ci := comps.NewIndex()
	ms := module.NewSack()

	g := goal.New(p, ci, ms, st)
	if runningKernel, err := transaction.DetectRunningKernel(); err == nil {
		g.SetFlags(goal.Flags{ProtectRunningKernel: runningKernel})
	}
	g.Install("bash")

	result, err := g.Resolve(context.Background(), solver.NewNaiveSolver())
	if err != nil {
		if probs, ok := err.(*solver.ProblemSet); ok {
			sink.Emit(elog.New("install", elog.SolverError, "bash", probs.Error()))
			return err
		}
		return err
	}

	backend := &rpmBackend{}
	if err := backend.Apply(p, result.Packages); err != nil {
		return err
	}

	if err := transaction.Commit(p, st, result.Packages); err != nil {
		return err
	}

	fmt.Printf("installed: %v\n", backend.installed)
	fmt.Printf("removed:   %v\n", backend.removed)
	return nil
}
