// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/rpmver"
	"github.com/dnfcore/engine/transaction"
)

func TestRpmBackendAppliesInstallAndRemove(t *testing.T) {
	p := pool.New()
	h, err := p.AddRepo("fedora", pool.RepoAvailable)
	if err != nil {
		t.Fatal(err)
	}
	evr, _ := rpmver.Parse("1-1")
	bashID, err := p.AddSolvable(pool.Solvable{Repo: h, Name: "bash", EVR: evr, Arch: "x86_64"})
	if err != nil {
		t.Fatal(err)
	}
	zshID, err := p.AddSolvable(pool.Solvable{Repo: h, Name: "zsh", EVR: evr, Arch: "x86_64"})
	if err != nil {
		t.Fatal(err)
	}

	b := &rpmBackend{}
	err = b.Apply(p, []transaction.Package{
		{Solvable: bashID, Action: transaction.ActionInstall},
		{Solvable: zshID, Action: transaction.ActionRemove},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(b.installed) != 1 || b.installed[0] != "bash-0:1-1.x86_64" {
		t.Fatalf("unexpected installed list: %+v", b.installed)
	}
	if len(b.removed) != 1 || b.removed[0] != "zsh-0:1-1.x86_64" {
		t.Fatalf("unexpected removed list: %+v", b.removed)
	}
}
