// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmver

import "testing"

func TestParseNEVRA(t *testing.T) {
	n, f, ok := ParseNEVRA("foo-1:2.3-4.x86_64", FormNEVRA, FormNA, FormNameOnly)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if f != FormNEVRA {
		t.Fatalf("expected FormNEVRA, got %v", f)
	}
	if n.Name != "foo" || n.Arch != "x86_64" || n.EVR.Epoch != 1 || n.EVR.Version != "2.3" || n.EVR.Release != "4" {
		t.Fatalf("got %+v", n)
	}
}

func TestParseNEVRAFallback(t *testing.T) {
	n, f, ok := ParseNEVRA("meson.x86_64", FormNEVRA, FormNA, FormNameOnly)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if f != FormNA {
		t.Fatalf("expected FormNA, got %v", f)
	}
	if n.Name != "meson" || n.Arch != "x86_64" {
		t.Fatalf("got %+v", n)
	}
}

func TestParseNEVRANameOnly(t *testing.T) {
	n, f, ok := ParseNEVRA("meson", FormNEVRA, FormNA, FormNameOnly)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if f != FormNameOnly || n.Name != "meson" {
		t.Fatalf("got %+v, %v", n, f)
	}
}

func TestStringRoundTrip(t *testing.T) {
	n := NEVRA{Name: "bar", EVR: EVR{Epoch: 0, Version: "1.0", Release: "1"}, Arch: "noarch"}
	want := "bar-0:1.0-1.noarch"
	if got := n.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
