// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package solver defines the contract consumed from the dependency-solver
// engine. The engine itself is explicitly out of scope: this package only
// fixes the Job/Transition/Problem shapes that any conforming SAT-style
// solver must speak, plus a small reference implementation (NaiveSolver)
// that is enough to satisfy the contract for the seed scenarios and for
// this module's own tests.
package solver

import (
	"github.com/dnfcore/engine/pool"
)

// JobKind enumerates the job types a Goal can submit to a Solver.
type JobKind int

const (
	JobInstall JobKind = iota
	JobRemove
	JobUpgrade
	JobDistroSync
	JobProvideInstall
	JobLock
	JobFavor
	JobDisfavor
	JobBestOf
	JobVerify
)

// Job is one instruction fed to the solver.
type Job struct {
	Kind JobKind

	// Set is the target solvable set for Install/Remove/Upgrade/
	// DistroSync/Lock/Favor/Disfavor/BestOf jobs.
	Set []pool.SolvableId

	// Depname is the provide name for a ProvideInstall job.
	Depname string

	// CleanDeps, when true on a Remove job, asks the solver to also drop
	// now-orphaned weak/dependency-reason packages.
	CleanDeps bool

	// Group marks an Install/Upgrade job as having been expanded from a
	// comps group/environment request rather than a plain user spec, so
	// the resulting Transition can be tagged OriginGroup instead of
	// OriginDirect.
	Group bool
}

// TransitionKind mirrors TransactionPackage.Action, but at the
// solver layer before reasons/groups have been attached.
type TransitionKind int

const (
	TransitionInbound TransitionKind = iota
	TransitionOutbound
)

// Origin classifies why an inbound Transition entered the transaction,
// carrying the direct/transitive distinction the reason model downstream
// (transaction.Assemble, state.Reason) needs to tell a user-requested
// package apart from one pulled in only to satisfy a dependency.
type Origin int

const (
	// OriginDirect is a package named by a plain install/upgrade Job.
	OriginDirect Origin = iota
	// OriginGroup is a package pulled in by a comps group/environment Job.
	OriginGroup
	// OriginDependency is a package pulled in to satisfy a Requires.
	OriginDependency
	// OriginWeakDependency is a package pulled in to satisfy a
	// Recommends, only ever produced when InstallWeakDeps is set.
	OriginWeakDependency
)

// Transition is one element of a solver Transaction: a solvable entering or
// leaving the installed set, plus the same-NA predecessor/successor it is
// paired with (used later to classify UPGRADE/DOWNGRADE/REPLACED).
type Transition struct {
	Kind     TransitionKind
	Solvable pool.SolvableId
	// Paired is the same-name/arch counterpart on the other side of the
	// transition, if any (e.g. the installed version an UPGRADE replaces).
	Paired []pool.SolvableId
	// Obsoletes/ObsoletedBy record obsoleter relationships distinct from
	// same-NA replacement, which matters for the REPLACED classification.
	Obsoletes   []pool.SolvableId
	ObsoletedBy []pool.SolvableId
	// Origin is meaningful only for inbound transitions; it is the
	// strongest reason any job selected this solvable for.
	Origin Origin
}

// Transaction is an ordered list of Transitions satisfying the dependency
// closure contract: installing the inbound set and removing the outbound
// set leaves all requires satisfied, no conflicts violated, and every
// obsoletee listed as an outbound transition paired with its obsoleter.
type Transaction struct {
	Transitions []Transition
}

// RuleCode identifies the structured reason a solver rule fired, loosely
// mirroring libsolv's SOLVER_RULE_* codes.
type RuleCode int

const (
	RuleJob RuleCode = iota
	RulePackageRequires
	RulePackageConflicts
	RulePackageObsoletes
	RulePackageSameName
	RuleInfarcable
)

// Rule is one structured fact the solver used to justify a Problem.
type Rule struct {
	Code      RuleCode
	Source    pool.SolvableId
	HasSource bool
	Dep       string
	Target    pool.SolvableId
	HasTarget bool
}

// Problem is one independent unsatisfiability the solver found; a
// ProblemSet is a list of these.
type Problem struct {
	Rules []Rule
}

// ProblemSet is returned instead of a Transaction when the jobs could not
// all be satisfied.
type ProblemSet struct {
	Problems []Problem
}

func (ps ProblemSet) Error() string {
	if len(ps.Problems) == 0 {
		return "solver: unsatisfiable (no problem detail)"
	}
	return "solver: unsatisfiable, see ProblemSet.Problems"
}

// SolveOptions carries the policy knobs that can make two Solve calls
// over the same jobs diverge, namely the lax/strict distinction step 9
// of resolve() relies on for its two-report contract.
type SolveOptions struct {
	// InstallWeakDeps enables best-effort Recommends resolution. With it
	// false, Recommends are never walked at all.
	InstallWeakDeps bool
	// Strict turns an unsatisfiable Recommends from a silently-skipped
	// best-effort miss into a real Problem, the same as an unsatisfiable
	// Requires always is. It has no effect when InstallWeakDeps is false.
	Strict bool
}

// Solver is the opaque contract consumed from the dependency-solver engine.
// Any engine meeting this contract is acceptable; the core is
// solver-agnostic.
type Solver interface {
	// Solve runs jobs against a snapshot of p and returns either a
	// Transaction or, if unsatisfiable, a non-nil ProblemSet error.
	Solve(p *pool.Pool, jobs []Job, opts SolveOptions) (Transaction, *ProblemSet)
}
