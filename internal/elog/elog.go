// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elog implements a log-event list with severity: a ProblemKind
// enum naming every recoverable problem the engine can hit, a LogEvent
// that accumulates one occurrence plus whatever additional data the
// per-problem template needs, and a fixed template table that renders
// each into a single user-visible line the way log_event.cpp's to_string
// switch does. Rendering is deliberately separate from forwarding:
// Render never touches a logger, Sink does.
//
// A tiny injected logger value (an io.Writer wrapper with Logln/Logf)
// threaded through a Ctx-like type rather than a package global is the
// usual shape for this; elog.Sink follows the same shape, just backed
// by a *logrus.Logger so severity and structured fields survive the
// trip.
package elog

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Severity classifies a LogEvent by the engine's error-propagation
// policy: Warning for a skippable per-package problem, Error otherwise.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// ProblemKind enumerates the engine's named error kinds.
type ProblemKind int

const (
	NotFound ProblemKind = iota
	OnlySource
	Excluded
	ExcludedByVersionLock
	AlreadyInstalled
	NotInstalled
	NotInstalledForArch
	InstalledLowest
	InstalledDifferentVersion
	NotFoundInRepo
	NotFoundInAdvisory
	SolverError
	SolverErrorStrict
	MultipleStreams
	ModuleNotFound
	ModuleCannotSwitchStreams
	ModuleSolverErrorLatest
	ModuleSolverErrorDefaults
	UnsupportedAction
	Malformed
	MergeError
	Extra
	RemovalOfProtected
	RemovalOfRunningKernel
	WriteDebug
)

// defaultSeverity mirrors the C++ original's implicit rule: everything
// is an Error except the two explicitly informational kinds.
func (k ProblemKind) defaultSeverity() Severity {
	switch k {
	case WriteDebug, AlreadyInstalled:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// LogEvent is one recorded occurrence of a recoverable problem: an
// action name, a problem kind, the package/provides spec it concerns,
// and whatever additional data the template needs.
type LogEvent struct {
	Action         string // e.g. "install", "remove", "reason_change"
	Problem        ProblemKind
	Severity       Severity
	Spec           string
	AdditionalData []string
}

// New builds a LogEvent with the problem's default severity; callers
// that need to override it (a skip_unavailable-demoted NotFound, say)
// can set Severity directly afterward.
func New(action string, problem ProblemKind, spec string, additionalData ...string) LogEvent {
	return LogEvent{
		Action:         action,
		Problem:        problem,
		Severity:       problem.defaultSeverity(),
		Spec:           spec,
		AdditionalData: additionalData,
	}
}

// Render renders e as the single line the fixed per-problem template
// table produces, grounded on log_event.cpp's to_string switch.
// Unknown problem kinds render as their spec and additional data so a
// future kind added to the enum never panics here.
func (e LogEvent) Render() string {
	tmpl, ok := templates[e.Problem]
	if !ok {
		return fmt.Sprintf("%s: %s %v", e.Action, e.Spec, e.AdditionalData)
	}
	return tmpl(e)
}

// Sink forwards rendered LogEvents to an injected *logrus.Logger at
// Warn or Error level per e.Severity, the way internal/elog is wired
// into Goal/Base. A nil Sink is valid and silently drops events, so
// call sites that don't care about observability don't need a guard.
type Sink struct {
	log *logrus.Logger
}

// NewSink wraps log. A nil log is accepted and makes the Sink a no-op.
func NewSink(log *logrus.Logger) *Sink { return &Sink{log: log} }

// Emit renders e and forwards it at the matching logrus level,
// attaching the action/spec/problem as structured fields.
func (s *Sink) Emit(e LogEvent) {
	if s == nil || s.log == nil {
		return
	}
	entry := s.log.WithFields(logrus.Fields{
		"action":  e.Action,
		"spec":    e.Spec,
		"problem": e.Problem,
	})
	msg := e.Render()
	if e.Severity == SeverityError {
		entry.Error(msg)
	} else {
		entry.Warn(msg)
	}
}

// join is the small helper the templates below use to reproduce the
// original's utils::string::join(additional_data, ", ").
func join(data []string) string { return strings.Join(data, ", ") }
