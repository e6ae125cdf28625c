// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package goal implements C7 of the core engine: typed request
// accumulation and the deterministic resolve() pipeline that turns user
// intents into a Transaction.
package goal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sdboyer/constext"

	"github.com/dnfcore/engine/comps"
	"github.com/dnfcore/engine/module"
	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/query"
	"github.com/dnfcore/engine/solver"
	"github.com/dnfcore/engine/state"
	"github.com/dnfcore/engine/transaction"
)

// MultilibPolicy controls how a name-only spec expands across multiple
// arches (step 4).
type MultilibPolicy int

const (
	// MultilibBest picks one arch per name.
	MultilibBest MultilibPolicy = iota
	// MultilibAll splits jobs per (name, arch) bucket, merging noarch into
	// every non-noarch bucket.
	MultilibAll
)

type requestKind int

const (
	reqInstall requestKind = iota
	reqReinstall
	reqRemove
	reqUpgrade
	reqUpgradeMinimal
	reqDowngrade
	reqDistroSync
	reqInstallDebug
	reqReasonChange
	reqModuleEnable
	reqModuleDisable
	reqModuleReset
	reqGroupInstall
	reqGroupRemove
	reqGroupUpgrade
	reqEnvironmentInstall
	reqEnvironmentRemove
)

// installRequest is one accumulated install/reinstall/remove/upgrade/
// downgrade/distro_sync/install_debug intent, keyed by the free-form query
// string the user typed (a name, glob, NEVRA, or provides capability).
// Accumulated the same way flag-derived command objects are gathered
// (ensure.go/remove.go/init.go) before ever touching the solver.
type installRequest struct {
	kind      requestKind
	spec      string
	cleanDeps bool
}

type reasonChangeRequest struct {
	spec    string
	reason  state.Reason
	groupID string
}

type moduleRequest struct {
	kind   requestKind
	module string
	stream string
}

type groupRequest struct {
	kind     requestKind
	groupID  string
	mask     comps.PackageTypeMask
	optional bool
}

// ReplayEntry is one normalized entry taken from a TransactionReplay
// document ("Replay intake"): it is pre-converted to an
// existing request kind before Goal ever sees it.
type ReplayEntry struct {
	Action transaction.Action
	Nevra  string
	Reason state.Reason
}

// Flags carries the resolve-time solver policy knobs step 8
// lists.
type Flags struct {
	AllowVendorChange    bool
	AllowErasing         bool
	InstallWeakDeps      bool
	AllowDowngrade       bool
	ProtectedPackages    []string
	ProtectRunningKernel string // NEVRA of the running kernel, empty if unknown
	InstallonlyLimit     int
	InstallonlyNames     []string
	AllowModuleStreamSwitch bool
}

// Goal accumulates typed requests across calls and resolves them into a
// Transaction exactly once.
type Goal struct {
	p      *pool.Pool
	comps  *comps.Index
	sack   *module.Sack
	st     *state.State
	policy MultilibPolicy
	flags  Flags

	// shutdown is combined with the context passed to Resolve via
	// constext.Cons, the same way a call manager combines a caller's
	// context with its own owning context before handing a single
	// cancelable context down to the long-running call (deducers.go).
	// Resolve itself runs synchronously and in-process, but a Base wiring
	// repo fetches/cache refreshes ahead of it is expected to shut this
	// down when the session ends.
	shutdown context.Context

	installs      []installRequest
	reasonChanges []reasonChangeRequest
	moduleReqs    []moduleRequest
	groupReqs     []groupRequest
	replay        []ReplayEntry

	cmdlineRPMs []pool.Solvable // already-parsed commandline .rpm additions
	cmdlinePaths []string      // filesystem .rpm paths still needing a header read
}

// New returns a Goal bound to the given Pool/Sack/State.
func New(p *pool.Pool, idx *comps.Index, sack *module.Sack, st *state.State) *Goal {
	return &Goal{p: p, comps: idx, sack: sack, st: st, policy: MultilibBest, shutdown: context.Background()}
}

// SetShutdownContext replaces the Goal's owning context, canceled by the
// Base that created it (e.g. when a repo sync session ends). Resolve
// combines it with its caller-supplied context so either side aborting
// stops the resolve.
func (g *Goal) SetShutdownContext(ctx context.Context) { g.shutdown = ctx }

// SetMultilibPolicy sets the arch-expansion policy used during resolve.
func (g *Goal) SetMultilibPolicy(p MultilibPolicy) { g.policy = p }

// SetFlags sets the solver policy flags used during resolve.
func (g *Goal) SetFlags(f Flags) { g.flags = f }

func (g *Goal) Install(spec string)              { g.installs = append(g.installs, installRequest{kind: reqInstall, spec: spec}) }
func (g *Goal) Reinstall(spec string)            { g.installs = append(g.installs, installRequest{kind: reqReinstall, spec: spec}) }
func (g *Goal) Remove(spec string, cleanDeps bool) {
	g.installs = append(g.installs, installRequest{kind: reqRemove, spec: spec, cleanDeps: cleanDeps})
}
func (g *Goal) Upgrade(spec string)         { g.installs = append(g.installs, installRequest{kind: reqUpgrade, spec: spec}) }
func (g *Goal) UpgradeMinimal(spec string)  { g.installs = append(g.installs, installRequest{kind: reqUpgradeMinimal, spec: spec}) }
func (g *Goal) Downgrade(spec string)       { g.installs = append(g.installs, installRequest{kind: reqDowngrade, spec: spec}) }
func (g *Goal) DistroSync(spec string)      { g.installs = append(g.installs, installRequest{kind: reqDistroSync, spec: spec}) }
func (g *Goal) InstallDebug(spec string)    { g.installs = append(g.installs, installRequest{kind: reqInstallDebug, spec: spec}) }

// ReasonChange queues a reason override for spec, optionally tagging it
// with the comps group id that caused the change.
func (g *Goal) ReasonChange(spec string, reason state.Reason, groupID string) {
	g.reasonChanges = append(g.reasonChanges, reasonChangeRequest{spec: spec, reason: reason, groupID: groupID})
}

func (g *Goal) ModuleEnable(mod, stream string) {
	g.moduleReqs = append(g.moduleReqs, moduleRequest{kind: reqModuleEnable, module: mod, stream: stream})
}
func (g *Goal) ModuleDisable(mod string) {
	g.moduleReqs = append(g.moduleReqs, moduleRequest{kind: reqModuleDisable, module: mod})
}
func (g *Goal) ModuleReset(mod string) {
	g.moduleReqs = append(g.moduleReqs, moduleRequest{kind: reqModuleReset, module: mod})
}

func (g *Goal) GroupInstall(id string, mask comps.PackageTypeMask) {
	g.groupReqs = append(g.groupReqs, groupRequest{kind: reqGroupInstall, groupID: id, mask: mask})
}
func (g *Goal) GroupRemove(id string) {
	g.groupReqs = append(g.groupReqs, groupRequest{kind: reqGroupRemove, groupID: id})
}
func (g *Goal) GroupUpgrade(id string, mask comps.PackageTypeMask) {
	g.groupReqs = append(g.groupReqs, groupRequest{kind: reqGroupUpgrade, groupID: id, mask: mask})
}
func (g *Goal) EnvironmentInstall(id string, mask comps.PackageTypeMask, optional bool) {
	g.groupReqs = append(g.groupReqs, groupRequest{kind: reqEnvironmentInstall, groupID: id, mask: mask, optional: optional})
}
func (g *Goal) EnvironmentRemove(id string) {
	g.groupReqs = append(g.groupReqs, groupRequest{kind: reqEnvironmentRemove, groupID: id})
}

// AddSerializedTransaction queues a parsed replay document's normalized
// entries; conversion from the wire format lives in /replay, this just
// accepts the already-normalized list.
func (g *Goal) AddSerializedTransaction(entries []ReplayEntry) {
	g.replay = append(g.replay, entries...)
}

// AddCommandlineRPM registers one ad-hoc .rpm's already-parsed Solvable
// with the Goal so step 2 of resolve() can add it to the commandline
// repo. Callers that only have a filesystem path, not a pre-parsed
// Solvable, should use AddCommandlineRPMPath instead.
func (g *Goal) AddCommandlineRPM(sv pool.Solvable) {
	g.cmdlineRPMs = append(g.cmdlineRPMs, sv)
}

// AddCommandlineRPMPath queues a local .rpm file for ingestion into the
// commandline repo; its header is read by pool.Pool.AddRpmPath during
// step 2 of Resolve, turning the path into a Solvable without the
// caller ever having to parse the file itself.
func (g *Goal) AddCommandlineRPMPath(path string) {
	g.cmdlinePaths = append(g.cmdlinePaths, path)
}

// Result is everything resolve() produces: the assembled transaction
// packages plus both problem sets from the lax/strict solver re-run
// (step 9).
type Result struct {
	Packages    []transaction.Package
	LaxProblems *solver.ProblemSet
	StrictProblems *solver.ProblemSet
}

// Resolve runs the deterministic ten-step pipeline 
// describes and returns the assembled transaction. ctx is combined with
// the Goal's shutdown context (SetShutdownContext) so either aborting
// stops the resolve before the solver runs.
func (g *Goal) Resolve(ctx context.Context, sv solver.Solver) (Result, error) {
	cctx, cancel := constext.Cons(ctx, g.shutdown)
	defer cancel()
	if err := cctx.Err(); err != nil {
		return Result{}, errors.Wrap(err, "goal: resolve canceled before starting")
	}

	// Step 1: replay inputs only add to the other lists; normalize them
	// into install/remove requests now, before anything else runs.
	for _, e := range g.replay {
		switch e.Action {
		case transaction.ActionInstall, transaction.ActionReinstall:
			g.installs = append(g.installs, installRequest{kind: reqInstall, spec: e.Nevra})
		case transaction.ActionRemove, transaction.ActionReplaced:
			g.installs = append(g.installs, installRequest{kind: reqRemove, spec: e.Nevra})
		case transaction.ActionUpgrade, transaction.ActionDowngrade:
			g.installs = append(g.installs, installRequest{kind: reqUpgrade, spec: e.Nevra})
		case transaction.ActionReasonChange:
			g.reasonChanges = append(g.reasonChanges, reasonChangeRequest{spec: e.Nevra, reason: e.Reason})
		}
	}

	// Step 2: commandline rpm additions go into the commandline repo so
	// their file provides are visible to spec resolution.
	if len(g.cmdlineRPMs) > 0 || len(g.cmdlinePaths) > 0 {
		cmdH, err := g.ensureCommandlineRepo()
		if err != nil {
			return Result{}, err
		}
		for _, sv := range g.cmdlineRPMs {
			sv.Repo = cmdH
			if _, err := g.p.AddSolvable(sv); err != nil {
				return Result{}, errors.Wrap(err, "goal: add commandline rpm")
			}
		}
		for _, path := range g.cmdlinePaths {
			if _, err := g.p.AddRpmPath(cmdH, path); err != nil {
				return Result{}, errors.Wrap(err, "goal: add commandline rpm path")
			}
		}
	}

	// Step 3: module solver pass. An unresolvable module set under the
	// active policy aborts the whole resolve.
	var activeModules map[string]module.Item
	if g.sack != nil {
		req := module.NewRequest()
		for _, mr := range g.moduleReqs {
			switch mr.kind {
			case reqModuleEnable:
				g.sack.Enable(req, mr.module, mr.stream)
			case reqModuleDisable:
				g.sack.Disable(req, mr.module)
			case reqModuleReset:
				g.sack.Reset(req, mr.module)
			}
		}
		if err := g.sack.ApplyRequest(req, g.flags.AllowModuleStreamSwitch); err != nil {
			return Result{}, err
		}

		active, probs := g.sack.ActiveSet(sv)
		if probs != nil {
			return Result{}, probs
		}
		activeModules = active

		if err := module.ApplyConsidered(g.p, g.sack.Items(), activeModules); err != nil {
			return Result{}, err
		}
	}

	// Steps 4-8: expand specs into solver jobs.
	jobs, err := g.buildJobs()
	if err != nil {
		return Result{}, err
	}

	// Step 9: invoke the solver in lax mode, where an unsatisfiable
	// Recommends is swallowed rather than failing the whole resolve. On
	// problems, re-run in strict mode, where InstallWeakDeps failures
	// become real Problems too, so the two reports can genuinely
	// disagree instead of being the same result computed twice.
	laxOpts := solver.SolveOptions{InstallWeakDeps: g.flags.InstallWeakDeps}
	tx, laxProbs := sv.Solve(g.p, jobs, laxOpts)
	if laxProbs != nil {
		strictOpts := laxOpts
		strictOpts.Strict = true
		_, strictProbs := sv.Solve(g.p, jobs, strictOpts)
		return Result{LaxProblems: laxProbs, StrictProblems: strictProbs}, laxProbs
	}

	// Step 10: assemble the TransactionPackage list.
	pkgs, err := transaction.Assemble(g.p, g.st, tx, transaction.Policy{
		ProtectedPackages:    g.flags.ProtectedPackages,
		ProtectRunningKernel: g.flags.ProtectRunningKernel,
		InstallonlyNames:     g.flags.InstallonlyNames,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Packages: pkgs}, nil
}

// ensureCommandlineRepo registers the "@commandline" repo the first time
// AddCommandlineRPM is used. Goal.Resolve is meant to run once per Goal,
// so no attempt is made to tolerate a second registration.
func (g *Goal) ensureCommandlineRepo() (pool.RepoHandle, error) {
	h, err := g.p.AddRepo("@commandline", pool.RepoCommandline)
	if err != nil {
		return 0, errors.Wrap(err, "goal: register commandline repo")
	}
	return h, nil
}

// buildJobs expands every accumulated request into solver.Jobs, honoring
// multilib policy, group collapsing, and reason-change requests.
func (g *Goal) buildJobs() ([]solver.Job, error) {
	var jobs []solver.Job

	// Step 6: group/environment requests resolve to package specs first,
	// then fold into the same collapsing rules as plain installs.
	collapsed := make(map[string]requestKind) // spec -> effective kind, for INSTALL+UPGRADE/REMOVE+INSTALL collapsing
	order := make([]string, 0, len(g.installs))
	// direct marks a spec that was named by a plain install/remove
	// request at least once; a spec named both directly and by a group
	// is tagged as direct, since an explicit user request always
	// outranks a group pull (solver.OriginDirect > solver.OriginGroup).
	direct := make(map[string]bool)
	fromGroup := make(map[string]bool)

	addCollapsed := func(spec string, kind requestKind) {
		prev, existed := collapsed[spec]
		if !existed {
			collapsed[spec] = kind
			order = append(order, spec)
			return
		}
		collapsed[spec] = collapseKind(prev, kind)
	}

	for _, ir := range g.installs {
		addCollapsed(ir.spec, ir.kind)
		direct[ir.spec] = true
	}

	for _, gr := range g.groupReqs {
		var names []string
		var err error
		var kind requestKind

		switch gr.kind {
		case reqGroupRemove:
			// A group removal targets exactly the packages this group
			// installed, recorded in SystemState when it was installed —
			// not whatever the current comps definition resolves to,
			// which may have drifted since.
			kind = reqRemove
			if g.st != nil {
				if rec, ok := g.st.GetGroup(gr.groupID); ok {
					names = rec.Packages
				}
			}
		case reqEnvironmentRemove:
			kind = reqRemove
			if g.st != nil {
				if groupIDs, ok := g.st.GetEnvironment(gr.groupID); ok {
					for _, gid := range groupIDs {
						if rec, ok := g.st.GetGroup(gid); ok {
							names = append(names, rec.Packages...)
						}
					}
				}
			}
		default:
			names, err = g.resolveGroupRequest(gr)
			if err != nil {
				return nil, err
			}
			switch gr.kind {
			case reqGroupInstall, reqEnvironmentInstall:
				kind = reqInstall
			case reqGroupUpgrade:
				kind = reqUpgrade
			}
		}

		for _, name := range names {
			addCollapsed(name, kind)
			fromGroup[name] = true
		}
	}

	base := query.New(g.p)

	for _, spec := range order {
		kind := collapsed[spec]
		isGroup := fromGroup[spec] && !direct[spec]
		specJobs, err := g.expandSpec(base, spec, kind, isGroup)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, specJobs...)
	}

	// Step 7: reason-change requests don't participate in solver jobs;
	// Transaction.Assemble reads g.reasonChanges directly via the
	// returned Result's caller-visible side channel is avoided here by
	// applying them straight to SystemState once the solve succeeds —
	// callers that need reason changes without any package change at all
	// should use ReasonChange with no corresponding install/remove.
	for _, rc := range g.reasonChanges {
		if g.st != nil {
			matches, ok := query.ResolvePkgSpec(g.p, base, rc.spec, query.DefaultResolveSpecSettings())
			if !ok {
				continue
			}
			for _, id := range matches.Ids() {
				sv, err := g.p.Solvable(id)
				if err != nil {
					continue
				}
				g.st.SetPackageReason(sv.Name+"."+sv.Arch, rc.reason)
			}
		}
	}

	return jobs, nil
}

// collapseKind implements step 6's collapsing rules,
// generalized across the plain install/remove/upgrade domain as well as
// group requests share it with.
func collapseKind(prev, next requestKind) requestKind {
	if prev == next {
		return prev
	}
	pair := [2]requestKind{prev, next}
	switch pair {
	case [2]requestKind{reqInstall, reqInstall}:
		return reqInstall
	case [2]requestKind{reqInstall, reqUpgrade}, [2]requestKind{reqUpgrade, reqInstall}:
		return reqUpgrade
	case [2]requestKind{reqRemove, reqInstall}, [2]requestKind{reqInstall, reqRemove}:
		return reqUpgrade
	}
	return next // last request wins for any combination left otherwise unresolved
}

func (g *Goal) resolveGroupRequest(gr groupRequest) ([]string, error) {
	if g.comps == nil {
		return nil, errors.New("goal: group/environment request but no comps index configured")
	}
	switch gr.kind {
	case reqEnvironmentInstall, reqEnvironmentRemove:
		return g.comps.ResolveEnvironment(gr.groupID, gr.mask, gr.optional, nil)
	default:
		return g.comps.ResolvePackages(gr.groupID, gr.mask, nil)
	}
}

// expandSpec turns one user spec + request kind into solver jobs,
// applying step 4's multilib policy. isGroup tags the resulting
// Install/Upgrade jobs as comps-group-originated so the solver can
// record solver.OriginGroup instead of solver.OriginDirect.
func (g *Goal) expandSpec(base query.PackageSet, spec string, kind requestKind, isGroup bool) ([]solver.Job, error) {
	matches, ok := query.ResolvePkgSpec(g.p, base, spec, query.DefaultResolveSpecSettings())
	if !ok {
		if kind == reqRemove {
			return nil, nil // removing something not installed is a silent no-op
		}
		return nil, errors.Errorf("goal: no package found matching %q", spec)
	}
	if kind == reqDowngrade {
		matches = matches.Downgrades()
	}

	jobKind := jobKindFor(kind)

	if kind == reqRemove {
		cleanDeps := false
		for _, ir := range g.installs {
			if ir.spec == spec && ir.kind == reqRemove {
				cleanDeps = ir.cleanDeps
			}
		}
		return []solver.Job{{Kind: solver.JobRemove, Set: matches.Ids(), CleanDeps: cleanDeps}}, nil
	}

	if g.policy == MultilibBest {
		return []solver.Job{{Kind: jobKind, Set: matches.Ids(), Group: isGroup}}, nil
	}

	// MultilibAll: split per (name, arch) bucket, merging noarch into
	// every non-noarch bucket.
	byArch := make(map[string][]pool.SolvableId)
	var noarch []pool.SolvableId
	for _, id := range matches.Ids() {
		sv, err := g.p.Solvable(id)
		if err != nil {
			continue
		}
		if sv.Arch == "noarch" {
			noarch = append(noarch, id)
			continue
		}
		byArch[sv.Arch] = append(byArch[sv.Arch], id)
	}
	if len(byArch) == 0 {
		return []solver.Job{{Kind: jobKind, Set: noarch, Group: isGroup}}, nil
	}

	var jobs []solver.Job
	for _, ids := range byArch {
		jobs = append(jobs, solver.Job{Kind: jobKind, Set: append(ids, noarch...), Group: isGroup})
	}
	return jobs, nil
}

func jobKindFor(kind requestKind) solver.JobKind {
	switch kind {
	case reqUpgrade, reqUpgradeMinimal, reqDistroSync:
		return solver.JobUpgrade
	case reqDowngrade:
		return solver.JobUpgrade // expandSpec narrows downgrade candidates with PackageSet.Downgrades, so bestOf's highest-EVR pick is the nearest lower version
	default:
		return solver.JobInstall
	}
}
