// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transaction implements C8 of the core engine: turning a
// solver Transaction into the ordered TransactionPackage/Group/
// Environment list describes, classifying each transition's
// Action, enforcing the protected-package/running-kernel rejection, and
// committing the result to SystemState.
package transaction

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/rpmver"
	"github.com/dnfcore/engine/solver"
	"github.com/dnfcore/engine/state"
)

// Action classifies one TransactionPackage
type Action int

const (
	ActionInstall Action = iota
	ActionUpgrade
	ActionDowngrade
	ActionReinstall
	ActionRemove
	ActionReplaced
	ActionReasonChange
)

func (a Action) String() string {
	switch a {
	case ActionInstall:
		return "INSTALL"
	case ActionUpgrade:
		return "UPGRADE"
	case ActionDowngrade:
		return "DOWNGRADE"
	case ActionReinstall:
		return "REINSTALL"
	case ActionRemove:
		return "REMOVE"
	case ActionReplaced:
		return "REPLACED"
	case ActionReasonChange:
		return "REASON_CHANGE"
	default:
		return "UNKNOWN"
	}
}

func (a Action) inbound() bool {
	switch a {
	case ActionInstall, ActionUpgrade, ActionDowngrade, ActionReinstall:
		return true
	default:
		return false
	}
}

// Package is one TransactionPackage: a solvable plus its classified
// Action, the reason it carries forward, and the same-NA predecessors/
// successors it replaces or is replaced by.
type Package struct {
	Solvable pool.SolvableId
	Action   Action
	Reason   state.Reason

	Replaces  []pool.SolvableId
	ReplacedBy []pool.SolvableId

	// ReasonChangeGroupID carries the comps group id that triggered a
	// REASON_CHANGE, when applicable.
	ReasonChangeGroupID string
}

// RemovalOfProtectedError is returned when a would-be transaction removes
// a package whose name is in the protected list.
type RemovalOfProtectedError struct{ Name string }

func (e *RemovalOfProtectedError) Error() string {
	return "transaction: removal of protected package " + e.Name
}

// RemovalOfRunningKernelError is returned when a would-be transaction
// removes the solvable matching the configured running-kernel NEVRA.
type RemovalOfRunningKernelError struct{ Name string }

func (e *RemovalOfRunningKernelError) Error() string {
	return "transaction: removal of running kernel " + e.Name
}

// Policy carries the resolve-time knobs Assemble needs to enforce
// protection and installonly exceptions.
type Policy struct {
	ProtectedPackages    []string
	ProtectRunningKernel string // NEVRA of the running kernel, empty if unknown
	InstallonlyNames     []string
}

func (p Policy) isProtected(name string) bool {
	for _, n := range p.ProtectedPackages {
		if n == name {
			return true
		}
	}
	return false
}

func (p Policy) isInstallonly(name string) bool {
	for _, n := range p.InstallonlyNames {
		if n == name {
			return true
		}
	}
	return false
}

// reasonForOrigin maps a solver Transition's Origin to the state.Reason
// it implies for a freshly-resolved package: direct jobs carry USER,
// comps group jobs carry GROUP, Requires pulls carry DEPENDENCY, and
// best-effort Recommends pulls carry WEAK_DEPENDENCY.
func reasonForOrigin(o solver.Origin) state.Reason {
	switch o {
	case solver.OriginGroup:
		return state.ReasonGroup
	case solver.OriginDependency:
		return state.ReasonDependency
	case solver.OriginWeakDependency:
		return state.ReasonWeakDependency
	default: // OriginDirect
		return state.ReasonUser
	}
}

// ID generates a fresh transaction identifier, stamping one uuid per
// solve run.
func ID() string { return uuid.New().String() }

// Assemble turns a solved Transaction into the ordered []Package list:
// same-NA inbound/outbound transitions are paired into
// UPGRADE/DOWNGRADE/REINSTALL/REPLACED, everything else left over is a
// plain INSTALL or REMOVE, protected-package and running-kernel removal
// is rejected outright, and the final order places every outbound
// Package before every inbound one, an ordering guarantee modeled on
// how a solved transaction is assembled into a sorted project list in
// lock.go.
func Assemble(p *pool.Pool, st *state.State, tx solver.Transaction, policy Policy) ([]Package, error) {
	var inbound, outbound []Package

	pairedOutbound := make(map[pool.SolvableId]bool)

	for _, tr := range tx.Transitions {
		if tr.Kind != solver.TransitionInbound {
			continue
		}

		sv, err := p.Solvable(tr.Solvable)
		if err != nil {
			return nil, errors.Wrap(err, "transaction: resolve inbound solvable")
		}

		action := ActionInstall
		reason := state.ReasonUser

		switch {
		case len(tr.Paired) == 0:
			action = ActionInstall

		case policy.isInstallonly(sv.Name):
			// installonly packages never collapse into UPGRADE/REINSTALL
			// even when a same-NA predecessor exists.
			action = ActionInstall

		default:
			for _, predID := range tr.Paired {
				pred, err := p.Solvable(predID)
				if err != nil {
					continue
				}
				pairedOutbound[predID] = true
				switch c := rpmver.Compare(sv.EVR, pred.EVR); {
				case c == 0:
					action = ActionReinstall
				case c > 0:
					action = ActionUpgrade
				default:
					action = ActionDowngrade
				}
			}
		}

		// A package's reason is never weaker than what this solve run
		// itself justifies (reasonForOrigin), but reason ownership is
		// monotonic: a prior on-disk reason at least as strong wins, so a
		// dependency pull never demotes a package the user already owns.
		reason = reasonForOrigin(tr.Origin)
		if st != nil {
			if prev := st.GetPackageReason(sv.Name + "." + sv.Arch); prev != state.ReasonNone && prev.StrongerOrEqual(reason) {
				reason = prev
			}
		}

		inbound = append(inbound, Package{
			Solvable: tr.Solvable,
			Action:   action,
			Reason:   reason,
			Replaces: tr.Paired,
		})
	}

	for _, tr := range tx.Transitions {
		if tr.Kind != solver.TransitionOutbound {
			continue
		}

		sv, err := p.Solvable(tr.Solvable)
		if err != nil {
			return nil, errors.Wrap(err, "transaction: resolve outbound solvable")
		}

		if policy.isProtected(sv.Name) {
			return nil, &RemovalOfProtectedError{Name: sv.Name}
		}
		if policy.ProtectRunningKernel != "" && sv.Name+"-"+sv.EVR.String()+"."+sv.Arch == policy.ProtectRunningKernel {
			return nil, &RemovalOfRunningKernelError{Name: sv.Name}
		}

		action := ActionRemove
		if pairedOutbound[tr.Solvable] || len(tr.ObsoletedBy) > 0 {
			action = ActionReplaced
		}

		outbound = append(outbound, Package{
			Solvable:   tr.Solvable,
			Action:     action,
			ReplacedBy: append(append([]pool.SolvableId(nil), tr.Paired...), tr.ObsoletedBy...),
		})
	}

	out := make([]Package, 0, len(inbound)+len(outbound))
	out = append(out, outbound...)
	out = append(out, inbound...)
	return out, nil
}

// Commit is the single path through which a resolved transaction may
// mutate SystemState ("Base must never write to SystemState
// except through Transaction.commit()"). It walks pkgs in Assemble's
// order (every outbound Package first) so every outbound NEVRA is
// cleared before its inbound replacement is recorded, which matters for
// REINSTALL (ordering guarantee).
func Commit(p *pool.Pool, st *state.State, pkgs []Package) error {
	for _, pkg := range pkgs {
		sv, err := p.Solvable(pkg.Solvable)
		if err != nil {
			return errors.Wrap(err, "transaction: commit resolve solvable")
		}
		nevra := sv.Name + "-" + sv.EVR.String() + "." + sv.Arch
		nameArch := sv.Name + "." + sv.Arch

		switch pkg.Action {
		case ActionRemove, ActionReplaced:
			st.RemoveNevra(nevra)

		case ActionReasonChange:
			st.SetPackageReason(nameArch, pkg.Reason)

		default: // inbound: INSTALL/UPGRADE/DOWNGRADE/REINSTALL
			repoID := p.RepoID(sv.Repo)
			st.SetFromRepo(nevra, repoID)

			prev := st.GetPackageReason(nameArch)
			if pkg.Reason.StrongerOrEqual(prev) || prev == state.ReasonNone {
				st.SetPackageReason(nameArch, pkg.Reason)
			}
		}
	}
	return st.Save()
}
