// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package module implements C4 of the core engine: modulemd parsing,
// module defaults, the active-module-set solver pass, stream-switch
// validation, and the status transition table.
package module

import (
	"io"
	"reflect"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dnfcore/engine/internal/elog"
	"github.com/dnfcore/engine/pool"
	"github.com/dnfcore/engine/solver"
)

// Status is a module's lifecycle state, one node of the fixed status
// transition table.
type Status int

const (
	Available Status = iota
	Enabled
	Disabled
)

// Item is one ModuleItem: the (name, stream, version, context, arch)
// quintuple plus its profiles, artifacts, and module-level dependencies.
type Item struct {
	Name    string
	Stream  string
	Version int64
	Context string
	Arch    string

	Profiles  map[string][]string // profile name -> package names
	Artifacts []string            // NEVRAs belonging to this module
	// Requires lists module-level dependencies as "name:stream" strings;
	// the module solver resolves these the same way the package solver
	// resolves Requires, just over a module-shaped pool.
	Requires []string
}

// NA returns the module's name.arch identity, used to group competing
// streams/versions/contexts of "the same module" for the solver.
func (i Item) NA() string { return i.Name + "." + i.Arch }

// streamID returns a solver "provide" name uniquely identifying this
// item's (name, stream) pair, letting module Requires resolve against
// specific streams the same way package Requires resolve against provides.
func (i Item) streamID() string { return i.Name + ":" + i.Stream }

// Defaults is one module's default-stream/profile declaration, parsed
// from a modulemd-defaults document.
type Defaults struct {
	Module         string
	DefaultStream  string
	DefaultProfiles map[string][]string // stream -> profile names
}

// ConflictingDefaultsError is returned when two modulemd-defaults
// documents for the same module disagree on default stream or default
// profiles, mirroring libdnf5's ModuleSolverErrorDefaults: repodata
// shipping contradictory defaults is treated as a hard error rather
// than last-write-wins, since silently picking one hides an inventory
// problem the caller needs to know about.
type ConflictingDefaultsError struct {
	Module string
}

func (e *ConflictingDefaultsError) Error() string {
	return elog.New("load_modulemd", elog.ModuleSolverErrorDefaults, e.Module).Render()
}

// ModuleState is the persisted per-module state SystemState tracks,
// one entry of its modules map.
type ModuleState struct {
	Status            Status
	EnabledStream     string
	InstalledProfiles []string
}

// Sack holds every parsed ModuleItem and module-defaults entry, plus the
// per-module enable/disable/reset state accumulated for one resolve.
type Sack struct {
	items    []Item
	defaults map[string]Defaults

	// state is the working copy of per-module SystemState, seeded by
	// LoadState and mutated by Enable/Disable/Reset.
	state map[string]ModuleState
}

// NewSack returns an empty Sack.
func NewSack() *Sack {
	return &Sack{defaults: make(map[string]Defaults), state: make(map[string]ModuleState)}
}

// rawDocument peels off just enough of a modulemd YAML document to learn
// its type before decoding the payload, since "modulemd" and
// "modulemd-defaults" documents shape their "data" section differently
// (a raw-DTO split one level deeper than usual, forced by the format
// itself rather than by choice).
type rawDocument struct {
	Document string    `yaml:"document"`
	Version  int       `yaml:"version"`
	Data     yaml.Node `yaml:"data"`
}

type rawModuleData struct {
	Name    string `yaml:"name"`
	Stream  string `yaml:"stream"`
	Version int64  `yaml:"version"`
	Context string `yaml:"context"`
	Arch    string `yaml:"arch"`

	Profiles map[string]struct {
		Rpms []string `yaml:"rpms"`
	} `yaml:"profiles"`

	Artifacts struct {
		Rpms []string `yaml:"rpms"`
	} `yaml:"artifacts"`

	Dependencies []struct {
		Requires map[string][]string `yaml:"requires"`
	} `yaml:"dependencies"`
}

type rawDefaultsData struct {
	Module   string              `yaml:"module"`
	Stream   string              `yaml:"stream"`
	Profiles map[string][]string `yaml:"profiles"`
}

// LoadModulemd parses a modules.yaml multi-document YAML stream and merges
// its ModuleItems and defaults into the sack.
func (s *Sack) LoadModulemd(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	for {
		var doc rawDocument
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "module: decode modulemd document")
		}

		switch doc.Document {
		case "modulemd":
			var data rawModuleData
			if err := doc.Data.Decode(&data); err != nil {
				return errors.Wrap(err, "module: decode modulemd data")
			}
			item := Item{
				Name:      data.Name,
				Stream:    data.Stream,
				Version:   data.Version,
				Context:   data.Context,
				Arch:      data.Arch,
				Artifacts: append([]string(nil), data.Artifacts.Rpms...),
			}
			if len(data.Profiles) > 0 {
				item.Profiles = make(map[string][]string, len(data.Profiles))
				for name, p := range data.Profiles {
					item.Profiles[name] = append([]string(nil), p.Rpms...)
				}
			}
			for _, dep := range data.Dependencies {
				for modName, streams := range dep.Requires {
					for _, stream := range streams {
						item.Requires = append(item.Requires, modName+":"+stream)
					}
				}
			}
			s.items = append(s.items, item)

		case "modulemd-defaults":
			var data rawDefaultsData
			if err := doc.Data.Decode(&data); err != nil {
				return errors.Wrap(err, "module: decode modulemd-defaults data")
			}
			next := Defaults{
				Module:          data.Module,
				DefaultStream:   data.Stream,
				DefaultProfiles: data.Profiles,
			}
			if prev, ok := s.defaults[data.Module]; ok && !defaultsEqual(prev, next) {
				return &ConflictingDefaultsError{Module: data.Module}
			}
			s.defaults[data.Module] = next
		}
	}
	return nil
}

// defaultsEqual reports whether two Defaults entries for the same
// module agree, ignoring Module itself since callers only compare
// entries already keyed by the same name.
func defaultsEqual(a, b Defaults) bool {
	return a.DefaultStream == b.DefaultStream && reflect.DeepEqual(a.DefaultProfiles, b.DefaultProfiles)
}

// Items returns every parsed ModuleItem.
func (s *Sack) Items() []Item { return append([]Item(nil), s.items...) }

// Defaults returns the defaults entry for a module name, if any.
func (s *Sack) Defaults(name string) (Defaults, bool) {
	d, ok := s.defaults[name]
	return d, ok
}

// LoadState seeds the sack's working module state from a persisted
// SystemState snapshot (name -> ModuleState).
func (s *Sack) LoadState(state map[string]ModuleState) {
	s.state = make(map[string]ModuleState, len(state))
	for k, v := range state {
		s.state[k] = v
	}
}

// State returns the current working module state, suitable for writing
// back to SystemState after a successful commit.
func (s *Sack) State() map[string]ModuleState {
	out := make(map[string]ModuleState, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// EnableMultipleStreamsError is returned when a resolve accumulates two
// distinct-stream enable requests for the same module name.
type EnableMultipleStreamsError struct{ Module string }

func (e *EnableMultipleStreamsError) Error() string {
	return "module: multiple streams requested for " + e.Module
}

// ModuleCannotSwitchStreams is returned when an enable request would
// switch an already-ENABLED module's stream without allow_module_stream_switch
// set.
type ModuleCannotSwitchStreams struct{ Module, From, To string }

func (e *ModuleCannotSwitchStreams) Error() string {
	return "module: " + e.Module + " is enabled at stream " + e.From + ", cannot switch to " + e.To + " without allow_module_stream_switch"
}

type pendingEnable struct{ module, stream string }

// Request accumulates one resolve's worth of enable/disable/reset
// intents, mirroring the Goal's accumulate-then-resolve shape at module
// granularity.
type Request struct {
	enables  []pendingEnable
	disables []string
	resets   []string
}

// Enable queues an enable(module:stream) intent.
func (s *Sack) Enable(req *Request, module, stream string) { req.enables = append(req.enables, pendingEnable{module, stream}) }

// Disable queues a disable(module) intent.
func (s *Sack) Disable(req *Request, module string) { req.disables = append(req.disables, module) }

// Reset queues a reset(module) intent.
func (s *Sack) Reset(req *Request, module string) { req.resets = append(req.resets, module) }

// NewRequest returns an empty module-intent accumulator.
func NewRequest() *Request { return &Request{} }

// ApplyRequest validates req against the current state (stream-switch and
// multiple-stream rules) and, if valid, mutates the sack's working state.
// allowSwitch corresponds to the allow_module_stream_switch config flag.
func (s *Sack) ApplyRequest(req *Request, allowSwitch bool) error {
	seen := make(map[string]string)
	for _, e := range req.enables {
		if prevStream, ok := seen[e.module]; ok && prevStream != e.stream {
			return &EnableMultipleStreamsError{Module: e.module}
		}
		seen[e.module] = e.stream
	}

	for _, e := range req.enables {
		cur := s.state[e.module]
		if cur.Status == Enabled && cur.EnabledStream != "" && cur.EnabledStream != e.stream && !allowSwitch {
			return &ModuleCannotSwitchStreams{Module: e.module, From: cur.EnabledStream, To: e.stream}
		}
	}

	for _, e := range req.enables {
		s.state[e.module] = ModuleState{Status: Enabled, EnabledStream: e.stream, InstalledProfiles: s.state[e.module].InstalledProfiles}
	}
	for _, m := range req.disables {
		s.state[m] = ModuleState{Status: Disabled}
	}
	for _, m := range req.resets {
		cur := s.state[m]
		s.state[m] = ModuleState{Status: Available, InstalledProfiles: cur.InstalledProfiles}
	}

	return nil
}

// ActiveSet computes the active module set: for every ENABLED module,
// picks candidate Items on its enabled stream (falling back to the
// module's Defaults when it has no recorded state or its state is
// AVAILABLE, as after a reset) and runs the given Solver over a module-shaped pool to resolve
// cross-module Requires, exactly as the package solver resolves RPM
// Requires.
func (s *Sack) ActiveSet(sv solver.Solver) (map[string]Item, *solver.ProblemSet) {
	mp := pool.New()
	h, _ := mp.AddRepo("modules", pool.RepoAvailable)

	idOf := make(map[int]Item)
	var jobs []solver.Job

	for _, item := range s.items {
		st, known := s.state[item.Name]
		wantStream := st.EnabledStream
		if !known || st.Status == Available {
			if d, ok := s.defaults[item.Name]; ok {
				wantStream = d.DefaultStream
			} else {
				continue // no default and no explicit state: not a candidate
			}
		}
		if known && st.Status == Disabled {
			continue
		}
		if wantStream != "" && item.Stream != wantStream {
			continue
		}

		id, err := mp.AddSolvable(pool.Solvable{
			Repo:     h,
			Name:     item.Name,
			Arch:     item.Arch,
			Provides: []string{item.streamID(), item.Name},
			Requires: item.Requires,
			Kind:     pool.KindModuleItem,
		})
		if err != nil {
			continue
		}
		idOf[int(id)] = item
		jobs = append(jobs, solver.Job{Kind: solver.JobInstall, Set: []pool.SolvableId{id}})
	}

	if len(jobs) == 0 {
		return map[string]Item{}, nil
	}

	tx, probs := sv.Solve(mp, jobs, solver.SolveOptions{})
	if probs != nil {
		return nil, probs
	}

	active := make(map[string]Item)
	for _, tr := range tx.Transitions {
		if tr.Kind != solver.TransitionInbound {
			continue
		}
		if item, ok := idOf[int(tr.Solvable)]; ok {
			active[item.NA()] = item
		}
	}
	return active, nil
}

// ApplyConsidered excludes, in p, every artifact NEVRA whose owning
// module is not in active: any RPM whose NEVRA belongs to a module
// artifact but whose module is not active is added to Pool.considered
// as excluded.
func ApplyConsidered(p *pool.Pool, allItems []Item, active map[string]Item) error {
	excluded := make(map[string]bool)
	for _, item := range allItems {
		if a, ok := active[item.NA()]; ok && a.Stream == item.Stream && a.Version == item.Version && a.Context == item.Context {
			continue
		}
		for _, nevra := range item.Artifacts {
			excluded[nevra] = true
		}
	}
	if len(excluded) == 0 {
		return nil
	}

	bitmap := p.AllConsidered()
	for i := 0; i < p.Len(); i++ {
		id := pool.SolvableId(i)
		sv, err := p.Solvable(id)
		if err != nil {
			continue
		}
		key := sv.Name + "-" + sv.EVR.String() + "." + sv.Arch
		if excluded[key] {
			bitmap[id] = false
		}
	}
	return p.SetConsidered(bitmap)
}
