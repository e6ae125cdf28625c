// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package replay

import (
	"github.com/dnfcore/engine/rpmver"
	"github.com/dnfcore/engine/transaction"
)

// MergeProblemKind classifies one issue Merge surfaces while folding
// replays, mirroring merge rules.
type MergeProblemKind int

const (
	// ConsecutiveInboundCollision: two consecutive inbound actions on the
	// same NA, the earlier of which was not INSTALL — newest wins, logged.
	ConsecutiveInboundCollision MergeProblemKind = iota
	// ReasonChangeCollision: a REASON_CHANGE collided with an outbound
	// action on the same NA during the fold. Per SPEC_FULL.md's Open
	// Question Decision (b), this is surfaced as a problem rather than
	// silently dropping either side: the outbound action wins for
	// package state, and the reason change is preserved separately for
	// the caller to inspect.
	ReasonChangeCollision
)

// MergeProblem is one entry in the problems list Merge returns.
type MergeProblem struct {
	Kind MergeProblemKind
	NA   string // name.arch the problem concerns
}

// nevraKey extracts the name.arch bucket key a NEVRA string folds
// under; installonly packages (e.g. kernel) are keyed by the full
// NEVRA instead so distinct versions never collide into one bucket,
// matching the rule that installonly names accumulate all their
// inbound actions rather than collapsing them.
func nevraKey(nevra string, installonlyNames map[string]bool) string {
	name, arch := splitNameArch(nevra)
	if installonlyNames[name] {
		return nevra
	}
	return name + "." + arch
}

// splitNameArch pulls name/arch out of a NEVRA string via rpmver's own
// parser, so a version string containing dots (e.g. "1.2-1") is never
// mistaken for a name/arch separator. A string that fails to parse as a
// full NEVRA folds under itself, never colliding with a real package.
func splitNameArch(nevra string) (name, arch string) {
	n, _, ok := rpmver.ParseNEVRA(nevra, rpmver.FormNEVRA)
	if !ok {
		return nevra, ""
	}
	return n.Name, n.Arch
}

type naFold struct {
	entries []RPMEntry // inbound/outbound rpm entries folded so far for this NA
	reason  *RPMEntry  // a pending REASON_CHANGE not yet resolved against an outbound
}

// Merge folds an ordered sequence of replays left-to-right into one
// canonicalized replay:
//   - two consecutive inbound actions on the same NA: newest wins,
//     a problem is logged unless the earlier was INSTALL (which must
//     propagate forward until something outbound meets it)
//   - inbound followed by outbound (or vice versa): they cancel, the NA
//     returns to its pre-state
//   - REINSTALL/REASON_CHANGE never override a stronger action that
//     follows
//   - installonly names accumulate all inbound actions
//
// Merge never mutates its inputs; groups and environments fold the same
// way, keyed by id instead of NA.
func Merge(replays []*TransactionReplay, installonlyNames []string) (*TransactionReplay, []MergeProblem) {
	installonly := make(map[string]bool, len(installonlyNames))
	for _, n := range installonlyNames {
		installonly[n] = true
	}

	var problems []MergeProblem
	folds := make(map[string]*naFold)
	var order []string

	getFold := func(key string) *naFold {
		f, ok := folds[key]
		if !ok {
			f = &naFold{}
			folds[key] = f
			order = append(order, key)
		}
		return f
	}

	for _, r := range replays {
		if r == nil {
			continue
		}
		for _, e := range r.RPMs {
			key := nevraKey(e.Nevra, installonly)
			f := getFold(key)
			name, _ := splitNameArch(e.Nevra)

			if installonly[name] && isInbound(e.Action) {
				// installonly names accumulate every inbound action
				// rather than collapsing to the latest one.
				f.entries = append(f.entries, e)
				continue
			}

			if e.Action == transaction.ActionReasonChange {
				pending := e
				f.reason = &pending
				continue
			}

			if len(f.entries) == 0 {
				f.entries = []RPMEntry{e}
				continue
			}

			last := f.entries[len(f.entries)-1]
			lastInbound := isInbound(last.Action)
			curInbound := isInbound(e.Action)

			switch {
			case lastInbound && curInbound:
				if last.Action != transaction.ActionInstall {
					problems = append(problems, MergeProblem{Kind: ConsecutiveInboundCollision, NA: key})
				}
				f.entries[len(f.entries)-1] = e // newest wins

			case lastInbound != curInbound:
				// inbound/outbound cancellation: the NA returns to its
				// pre-fold state.
				f.entries = f.entries[:len(f.entries)-1]
				if f.reason != nil {
					problems = append(problems, MergeProblem{Kind: ReasonChangeCollision, NA: key})
					// outbound wins for package state; keep the reason
					// change recorded separately rather than dropping it.
					f.entries = append(f.entries, RPMEntry{
						Nevra: f.reason.Nevra, Action: transaction.ActionReasonChange, Reason: f.reason.Reason,
					})
					f.reason = nil
				}

			default:
				f.entries[len(f.entries)-1] = e
			}
		}
	}

	out := &TransactionReplay{Major: CurrentMajor}
	for _, key := range order {
		f := folds[key]
		out.RPMs = append(out.RPMs, f.entries...)
		if f.reason != nil {
			out.RPMs = append(out.RPMs, *f.reason)
		}
	}

	groupOut, groupProblems := mergeGroups(replays)
	out.Groups = groupOut
	problems = append(problems, groupProblems...)

	envOut, envProblems := mergeEnvironments(replays)
	out.Environments = envOut
	problems = append(problems, envProblems...)

	return out, problems
}

func isInbound(a transaction.Action) bool {
	switch a {
	case transaction.ActionInstall, transaction.ActionUpgrade, transaction.ActionDowngrade, transaction.ActionReinstall:
		return true
	default:
		return false
	}
}

func mergeGroups(replays []*TransactionReplay) ([]GroupEntry, []MergeProblem) {
	var problems []MergeProblem
	latest := make(map[string]GroupEntry)
	var order []string
	for _, r := range replays {
		if r == nil {
			continue
		}
		for _, g := range r.Groups {
			if _, ok := latest[g.ID]; !ok {
				order = append(order, g.ID)
			} else if latest[g.ID].Action != transaction.ActionInstall {
				problems = append(problems, MergeProblem{Kind: ConsecutiveInboundCollision, NA: g.ID})
			}
			latest[g.ID] = g
		}
	}
	out := make([]GroupEntry, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out, problems
}

func mergeEnvironments(replays []*TransactionReplay) ([]EnvironmentEntry, []MergeProblem) {
	latest := make(map[string]EnvironmentEntry)
	var order []string
	for _, r := range replays {
		if r == nil {
			continue
		}
		for _, e := range r.Environments {
			if _, ok := latest[e.ID]; !ok {
				order = append(order, e.ID)
			}
			latest[e.ID] = e
		}
	}
	out := make([]EnvironmentEntry, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out, nil
}
