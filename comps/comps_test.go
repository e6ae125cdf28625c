// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comps

import (
	"strings"
	"testing"
)

const sampleCompsXML = `<?xml version="1.0"?>
<comps>
  <group>
    <id>core</id>
    <name>Core</name>
    <name xml:lang="fr">Noyau</name>
    <uservisible>true</uservisible>
    <packagelist>
      <packagereq type="mandatory">bash</packagereq>
      <packagereq type="default">vim-minimal</packagereq>
      <packagereq type="optional">htop</packagereq>
      <packagereq type="conditional" requires="httpd">mod_ssl</packagereq>
    </packagelist>
  </group>
  <group>
    <id>extras</id>
    <name>Extras</name>
    <packagelist>
      <packagereq type="default">tmux</packagereq>
    </packagelist>
  </group>
  <environment>
    <id>minimal-environment</id>
    <name>Minimal Install</name>
    <grouplist>
      <groupid>core</groupid>
    </grouplist>
    <optionlist>
      <groupid>extras</groupid>
    </optionlist>
  </environment>
</comps>
`

func loadSample(t *testing.T) *Index {
	t.Helper()
	idx := NewIndex()
	if err := idx.Load(strings.NewReader(sampleCompsXML)); err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestResolvePackagesDefaultMask(t *testing.T) {
	idx := loadSample(t)
	pkgs, err := idx.ResolvePackages("core", DefaultMask, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"bash": true, "vim-minimal": true}
	if len(pkgs) != len(want) {
		t.Fatalf("got %v, want mandatory+default only", pkgs)
	}
	for _, p := range pkgs {
		if !want[p] {
			t.Fatalf("unexpected package %q in default-mask resolution", p)
		}
	}
}

func TestResolvePackagesIncludesOptionalWhenMasked(t *testing.T) {
	idx := loadSample(t)
	pkgs, err := idx.ResolvePackages("core", Mandatory|Default|Optional, nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, p := range pkgs {
		if p == "htop" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected htop included with Optional in mask, got %v", pkgs)
	}
}

func TestConditionalPackageGatedByCondition(t *testing.T) {
	idx := loadSample(t)
	mask := Mandatory | Default | Conditional

	pkgs, err := idx.ResolvePackages("core", mask, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range pkgs {
		if p == "mod_ssl" {
			t.Fatalf("mod_ssl should not appear without httpd satisfied: %v", pkgs)
		}
	}

	pkgs, err = idx.ResolvePackages("core", mask, map[string]bool{"httpd": true})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, p := range pkgs {
		if p == "mod_ssl" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected mod_ssl once httpd condition is satisfied, got %v", pkgs)
	}
}

func TestResolveEnvironmentOptionalGroups(t *testing.T) {
	idx := loadSample(t)

	mandatoryOnly, err := idx.ResolveEnvironment("minimal-environment", DefaultMask, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range mandatoryOnly {
		if p == "tmux" {
			t.Fatalf("tmux is from the optional group, should not appear without includeOptional: %v", mandatoryOnly)
		}
	}

	withOptional, err := idx.ResolveEnvironment("minimal-environment", DefaultMask, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, p := range withOptional {
		if p == "tmux" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected tmux with includeOptional=true, got %v", withOptional)
	}
}

func TestUnknownGroupIsAnError(t *testing.T) {
	idx := loadSample(t)
	if _, err := idx.ResolvePackages("does-not-exist", DefaultMask, nil); err == nil {
		t.Fatal("expected an error for an unknown group id")
	}
}

func TestLocalizedNames(t *testing.T) {
	idx := loadSample(t)
	g := idx.Groups["core"]
	if g.Lang["fr"] != "Noyau" {
		t.Fatalf("expected French localized name, got %q", g.Lang["fr"])
	}
}
