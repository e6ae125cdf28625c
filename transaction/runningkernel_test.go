// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import "testing"

func TestDetectRunningKernelReturnsANameArch(t *testing.T) {
	na, err := DetectRunningKernel()
	if err != nil {
		t.Fatalf("DetectRunningKernel failed on this host: %v", err)
	}
	if na == "" {
		t.Fatal("expected a non-empty kernel NA")
	}
	if got := na[:7]; got != "kernel." {
		t.Fatalf("expected the NA to start with %q, got %q", "kernel.", got)
	}
}

func TestCStringTrimsAtNUL(t *testing.T) {
	b := make([]byte, 8)
	copy(b, "abc")
	if got := cString(b); got != "abc" {
		t.Fatalf("cString(%q) = %q, want %q", b, got, "abc")
	}
}
