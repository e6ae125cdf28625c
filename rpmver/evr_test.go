// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpmver

import "testing"

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "2.0", -1},
		{"2.0", "1.0", 1},
		{"1.0~rc1", "1.0", -1},
		{"1.0", "1.0~rc1", 1},
		{"1.0^", "1.0", 1},
		{"1.0^git", "1.0^", 1},
		{"1.0", "1.0^git", -1},
		{"1.0a", "1.0", 1},
		{"1.0.0", "1.0", 1},
		{"5.5p1", "5.5p2", -1},
		{"5.5p10", "5.5p1", 1},
		{"0:1.0-1", "1.0-1", 0},
		{"1:1.0-1", "2:0.1-1", -1},
	}

	for _, c := range cases {
		a, err := Parse(c.a)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.a, err)
		}
		b, err := Parse(c.b)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.b, err)
		}
		if got := Compare(a, b); got != c.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestParseEpoch(t *testing.T) {
	e, err := Parse("2:1.5-3")
	if err != nil {
		t.Fatal(err)
	}
	if e.Epoch != 2 || e.Version != "1.5" || e.Release != "3" {
		t.Fatalf("got %+v", e)
	}

	e, err = Parse("1.5-3")
	if err != nil {
		t.Fatal(err)
	}
	if e.Epoch != 0 {
		t.Fatalf("expected default epoch 0, got %d", e.Epoch)
	}
}

func TestComparatorMatch(t *testing.T) {
	a, _ := Parse("1.0-1")
	b, _ := Parse("2.0-1")

	if !LT.Match(a, b) {
		t.Error("expected 1.0-1 < 2.0-1")
	}
	if GTE.Match(a, b) {
		t.Error("did not expect 1.0-1 >= 2.0-1")
	}
	if !EQ.Match(a, a) {
		t.Error("expected equal EVRs to match EQ")
	}
}
