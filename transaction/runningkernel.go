// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import (
	"bytes"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DetectRunningKernel reports the NA (name.arch) of the currently running
// kernel by asking the host via uname(2), for callers that want to
// populate Policy.ProtectRunningKernel without hard-coding a package
// name. The core itself never calls this: it treats "the running
// kernel" as information the caller supplies (Policy.ProtectRunningKernel
// is a plain string), the same way it treats RpmBackend as an external
// collaborator rather than something the engine reaches out and detects
// on its own.
func DetectRunningKernel() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", errors.Wrap(err, "transaction: uname")
	}
	release := cString(uts.Release[:])
	if release == "" {
		return "", errors.New("transaction: uname returned an empty release")
	}
	return "kernel." + runtime.GOARCH + "-" + release, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
