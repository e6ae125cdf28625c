// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"testing"

	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/rpmver"
)

func TestSolvCachePutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenSolvCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	sum := Checksum([]byte("repomd-v1"))
	want := []pool.Solvable{
		{Name: "bash", Arch: "x86_64", EVR: rpmver.EVR{Version: "5.1", Release: "1"}, Kind: pool.KindPackage},
	}

	if err := c.Put("fedora", sum, want); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Get("fedora", sum)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(got) != 1 || got[0].Name != "bash" {
		t.Fatalf("unexpected cached solvables: %+v", got)
	}
}

func TestSolvCacheMissOnChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenSolvCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	sum := Checksum([]byte("repomd-v1"))
	if err := c.Put("fedora", sum, []pool.Solvable{{Name: "bash"}}); err != nil {
		t.Fatal(err)
	}

	otherSum := Checksum([]byte("repomd-v2"))
	_, ok, err := c.Get("fedora", otherSum)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected a cache miss when the stored checksum no longer matches")
	}
}

func TestSolvCacheMissWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenSolvCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, ok, err := c.Get("never-seen", Checksum(nil))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected a cache miss for an unknown repo id")
	}
}
