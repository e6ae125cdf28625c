// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elog

import "fmt"

// templates is the fixed per-problem render table, matching what
// log_event.cpp's to_string switch describes: one entry per ProblemKind,
// each a small function of the event rather than a bare fmt string,
// since a few kinds (MultipleStreams, ModuleCannotSwitchStreams) need
// more than straight positional substitution.
var templates = map[ProblemKind]func(LogEvent) string{
	NotFound: func(e LogEvent) string {
		return fmt.Sprintf("no match for argument: %s", e.Spec)
	},
	OnlySource: func(e LogEvent) string {
		return fmt.Sprintf("argument %q matches only source packages", e.Spec)
	},
	Excluded: func(e LogEvent) string {
		return fmt.Sprintf("argument %q matches only excluded packages", e.Spec)
	},
	ExcludedByVersionLock: func(e LogEvent) string {
		return fmt.Sprintf("argument %q matches only packages excluded by versionlock", e.Spec)
	},
	AlreadyInstalled: func(e LogEvent) string {
		if e.Action == "reason_change" {
			reason := ""
			if len(e.AdditionalData) > 0 {
				reason = e.AdditionalData[0]
			}
			return fmt.Sprintf("package %q is already installed with reason %q", e.Spec, reason)
		}
		name := e.Spec
		if len(e.AdditionalData) > 0 {
			name = e.AdditionalData[0]
		}
		return fmt.Sprintf("package %q is already installed", name)
	},
	NotInstalled: func(e LogEvent) string {
		return fmt.Sprintf("packages for argument %q available, but not installed", e.Spec)
	},
	NotInstalledForArch: func(e LogEvent) string {
		return fmt.Sprintf("packages for argument %q available, but installed for a different architecture", e.Spec)
	},
	InstalledLowest: func(e LogEvent) string {
		name := e.Spec
		if len(e.AdditionalData) > 0 {
			name = e.AdditionalData[0]
		}
		return fmt.Sprintf("the lowest available version of %q is already installed, cannot downgrade it", name)
	},
	InstalledDifferentVersion: func(e LogEvent) string {
		return fmt.Sprintf("packages for argument %q installed and available, but in a different version: %s", e.Spec, join(e.AdditionalData))
	},
	NotFoundInRepo: func(e LogEvent) string {
		return fmt.Sprintf("no match for argument %q in repositories %s", e.Spec, join(e.AdditionalData))
	},
	NotFoundInAdvisory: func(e LogEvent) string {
		return fmt.Sprintf("no match for argument %q in advisories %s", e.Spec, join(e.AdditionalData))
	},
	SolverError: func(e LogEvent) string {
		return fmt.Sprintf("resolve problems detected:\n%s", join(e.AdditionalData))
	},
	SolverErrorStrict: func(e LogEvent) string {
		return fmt.Sprintf("resolve problems detected (strict):\n%s", join(e.AdditionalData))
	},
	MultipleStreams: func(e LogEvent) string {
		return fmt.Sprintf("unable to resolve argument %q: matches multiple streams (%s), but none are enabled or default", e.Spec, join(e.AdditionalData))
	},
	ModuleNotFound: func(e LogEvent) string {
		return fmt.Sprintf("no matching module found for argument: %s", e.Spec)
	},
	ModuleCannotSwitchStreams: func(e LogEvent) string {
		from, to := "?", "?"
		if len(e.AdditionalData) >= 2 {
			from, to = e.AdditionalData[0], e.AdditionalData[1]
		}
		return fmt.Sprintf("the operation would switch module %q stream %q to stream %q, "+
			"and stream switching is not enabled", e.Spec, from, to)
	},
	ModuleSolverErrorLatest: func(e LogEvent) string {
		return fmt.Sprintf("modular dependency problems with the latest modules:\n%s", join(e.AdditionalData))
	},
	ModuleSolverErrorDefaults: func(e LogEvent) string {
		return fmt.Sprintf("modular dependency problems with the defaults:\n%s", join(e.AdditionalData))
	},
	UnsupportedAction: func(e LogEvent) string {
		return fmt.Sprintf("%s action for argument %q is not supported", e.Action, e.Spec)
	},
	Malformed: func(e LogEvent) string {
		return fmt.Sprintf("malformed input for argument %q: %s", e.Spec, join(e.AdditionalData))
	},
	MergeError: func(e LogEvent) string {
		return fmt.Sprintf("cannot merge transaction replay: %s", join(e.AdditionalData))
	},
	Extra: func(e LogEvent) string {
		action := ""
		if len(e.AdditionalData) > 0 {
			action = e.AdditionalData[0]
		}
		return fmt.Sprintf("extra package %q (with action %q) which is not present in the stored transaction was pulled into the transaction", e.Spec, action)
	},
	RemovalOfProtected: func(e LogEvent) string {
		return fmt.Sprintf("removal of protected package %q", e.Spec)
	},
	RemovalOfRunningKernel: func(e LogEvent) string {
		return fmt.Sprintf("removal of running kernel %q", e.Spec)
	},
	WriteDebug: func(e LogEvent) string {
		return fmt.Sprintf("debug data written to %q", e.Spec)
	},
}
