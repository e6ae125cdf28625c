// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package replay

import (
	"bytes"
	"testing"

	"github.com/dnfcore/engine/state"
	"github.com/dnfcore/engine/transaction"
)

func TestParseRejectsUnknownMajor(t *testing.T) {
	doc := `{"version":"2.0","rpms":[]}`
	_, err := Parse(bytes.NewBufferString(doc))
	if err == nil {
		t.Fatal("expected an error for an unsupported major version")
	}
}

func TestParseRequiresNevraOrPackagePath(t *testing.T) {
	doc := `{"version":"1.0","rpms":[{"action":"INSTALL","reason":"USER"}]}`
	_, err := Parse(bytes.NewBufferString(doc))
	if err == nil {
		t.Fatal("expected an error when neither nevra nor package_path is present")
	}
}

func TestRoundTrip(t *testing.T) {
	in := &TransactionReplay{
		Major: 1, Minor: 0,
		RPMs: []RPMEntry{
			{Nevra: "bash-0:5.1-1.x86_64", Action: transaction.ActionInstall, Reason: state.ReasonUser, RepoID: "fedora"},
		},
		Groups: []GroupEntry{
			{ID: "core", Action: transaction.ActionInstall, RepoID: "fedora", PackageTypes: 3},
		},
	}

	var buf bytes.Buffer
	if err := Serialize(&buf, in); err != nil {
		t.Fatal(err)
	}

	out, err := Parse(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if len(out.RPMs) != 1 || out.RPMs[0].Nevra != in.RPMs[0].Nevra || out.RPMs[0].Action != in.RPMs[0].Action || out.RPMs[0].Reason != in.RPMs[0].Reason {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", out.RPMs, in.RPMs)
	}
	if len(out.Groups) != 1 || out.Groups[0].ID != "core" {
		t.Fatalf("round-trip mismatch for groups: got %+v", out.Groups)
	}
}

func TestRevertTable(t *testing.T) {
	in := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "meson-0:1.0-1.x86_64", Action: transaction.ActionInstall},
		{Nevra: "bash-0:5.1-1.x86_64", Action: transaction.ActionUpgrade},
		{Nevra: "zsh-0:5.0-1.x86_64", Action: transaction.ActionRemove},
	}}

	out, skipped, err := Revert(in, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(skipped) != 0 {
		t.Fatalf("expected no skipped entries, got %+v", skipped)
	}
	want := []transaction.Action{transaction.ActionRemove, transaction.ActionReplaced, transaction.ActionInstall}
	for i, e := range out.RPMs {
		if e.Action != want[i] {
			t.Fatalf("entry %d: got %v, want %v", i, e.Action, want[i])
		}
	}
}

func TestRevertSkipsEnvironmentUpgrade(t *testing.T) {
	in := &TransactionReplay{Major: 1, Environments: []EnvironmentEntry{
		{ID: "minimal-environment", Action: transaction.ActionUpgrade},
	}}
	out, skipped, err := Revert(in, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Environments) != 0 {
		t.Fatalf("expected the environment upgrade to be skipped, not reverted, got %+v", out.Environments)
	}
	if len(skipped) != 1 || skipped[0].ID != "minimal-environment" {
		t.Fatalf("expected minimal-environment in skipped, got %+v", skipped)
	}
}

func TestRevertCleanInstallConsultsHistory(t *testing.T) {
	in := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "meson-0:1.0-1.x86_64", Action: transaction.ActionInstall, Reason: state.ReasonClean},
	}}

	history := func(nevra string) (string, bool) {
		if nevra == "meson-0:1.0-1.x86_64" {
			return "DEPENDENCY", true
		}
		return "", false
	}

	out, _, err := Revert(in, history)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.RPMs) != 1 || out.RPMs[0].Reason != state.ReasonDependency {
		t.Fatalf("expected a CLEAN-reason install to recover DEPENDENCY from history, got %+v", out.RPMs)
	}
}

func TestRevertUserInstallIgnoresHistory(t *testing.T) {
	in := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "meson-0:1.0-1.x86_64", Action: transaction.ActionInstall, Reason: state.ReasonUser},
	}}

	history := func(nevra string) (string, bool) {
		t.Fatal("history should not be consulted for a non-CLEAN reason")
		return "", false
	}

	out, _, err := Revert(in, history)
	if err != nil {
		t.Fatal(err)
	}
	if out.RPMs[0].Reason != state.ReasonUser {
		t.Fatalf("expected the USER reason to pass through unchanged, got %+v", out.RPMs[0])
	}
}

func TestMergeCancelsInstallThenRemove(t *testing.T) {
	a := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "foo-0:1-1.x86_64", Action: transaction.ActionInstall, Reason: state.ReasonUser},
	}}
	b := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "foo-0:1-1.x86_64", Action: transaction.ActionRemove},
	}}

	merged, problems := Merge([]*TransactionReplay{a, b}, nil)
	if len(merged.RPMs) != 0 {
		t.Fatalf("expected install+remove to cancel, got %+v", merged.RPMs)
	}
	if len(problems) != 0 {
		t.Fatalf("expected zero problems, got %+v", problems)
	}
}

func TestMergeSingleReplayIsIdempotent(t *testing.T) {
	r := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "bash-0:5.1-1.x86_64", Action: transaction.ActionInstall, Reason: state.ReasonUser},
	}}

	merged, problems := Merge([]*TransactionReplay{r}, nil)
	if len(problems) != 0 {
		t.Fatalf("expected no problems merging a single replay, got %+v", problems)
	}
	if len(merged.RPMs) != 1 || merged.RPMs[0].Nevra != r.RPMs[0].Nevra {
		t.Fatalf("expected merge([r]) == r, got %+v", merged.RPMs)
	}
}

func TestMergeInstallonlyAccumulates(t *testing.T) {
	a := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "kernel-0:5.0-1.x86_64", Action: transaction.ActionInstall},
	}}
	b := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "kernel-0:5.1-1.x86_64", Action: transaction.ActionInstall},
	}}

	merged, _ := Merge([]*TransactionReplay{a, b}, []string{"kernel"})
	if len(merged.RPMs) != 2 {
		t.Fatalf("expected both kernel installs to accumulate, got %+v", merged.RPMs)
	}
}

func TestMergeReasonChangeCollisionIsSurfaced(t *testing.T) {
	a := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "foo-0:1-1.x86_64", Action: transaction.ActionInstall},
	}}
	b := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "foo-0:1-1.x86_64", Action: transaction.ActionReasonChange, Reason: state.ReasonUser},
	}}
	c := &TransactionReplay{Major: 1, RPMs: []RPMEntry{
		{Nevra: "foo-0:1-1.x86_64", Action: transaction.ActionRemove},
	}}

	merged, problems := Merge([]*TransactionReplay{a, b, c}, nil)

	foundCollision := false
	for _, p := range problems {
		if p.Kind == ReasonChangeCollision {
			foundCollision = true
		}
	}
	if !foundCollision {
		t.Fatalf("expected a ReasonChangeCollision problem, got %+v", problems)
	}

	foundReasonChange := false
	for _, e := range merged.RPMs {
		if e.Action == transaction.ActionReasonChange {
			foundReasonChange = true
		}
	}
	if !foundReasonChange {
		t.Fatalf("expected the reason change to survive in the merged output, got %+v", merged.RPMs)
	}
}
