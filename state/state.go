// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package state implements C6 of the core engine: the persistent JSON
// SystemState store of per-package reasons, per-nevra origin repo, group
// and environment membership, module status, and the rpmdb cookie.
package state

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/dnfcore/engine/module"
)

// Reason is the justification recorded for why a package is installed,
// ordered weakest to strongest
type Reason int

const (
	ReasonNone Reason = iota
	ReasonClean
	ReasonWeakDependency
	ReasonDependency
	ReasonGroup
	ReasonUser
	ReasonExternalUser
)

// rank orders reasons for the "never downgrade implicitly" rule. USER and
// EXTERNAL_USER are treated as equally strong ("USER ≈
// EXTERNAL_USER").
func (r Reason) rank() int {
	if r == ReasonExternalUser {
		return int(ReasonUser)
	}
	return int(r)
}

// StrongerOrEqual reports whether r is at least as strong as other under
// the rank ordering above.
func (r Reason) StrongerOrEqual(other Reason) bool { return r.rank() >= other.rank() }

type packageState struct {
	Reason Reason
}

type nevraState struct {
	FromRepo string
}

type groupState struct {
	UserInstalled bool
	PackageTypes  int
	Packages      []string
}

type environmentState struct {
	Groups []string
}

// State is the in-memory working copy of one SystemState document. All
// mutation methods operate only on this copy; Commit is the single path
// that persists it ("Base must never write to SystemState
// except through Transaction.commit()").
type State struct {
	path string

	packages     map[string]packageState // key: name.arch
	nevras       map[string]nevraState    // key: nevra string
	groups       map[string]groupState
	environments map[string]environmentState
	modules      map[string]module.ModuleState
	rpmdbCookie  string
}

// rawState is the on-disk DTO, kept separate from State so the exported
// API never leaks JSON tag plumbing into callers, the same raw-DTO/domain
// split used for lock.json and similar wire formats elsewhere in the
// engine.
type rawState struct {
	Packages map[string]struct {
		Reason string `json:"reason"`
	} `json:"packages"`
	Nevras map[string]struct {
		FromRepo string `json:"from_repo"`
	} `json:"nevras"`
	Groups map[string]struct {
		UserInstalled bool     `json:"userinstalled"`
		PackageTypes  int      `json:"package_types"`
		Packages      []string `json:"packages"`
	} `json:"groups"`
	Environments map[string]struct {
		Groups []string `json:"groups"`
	} `json:"environments"`
	Modules map[string]struct {
		EnabledStream     string   `json:"enabled_stream"`
		Status            string   `json:"status"`
		InstalledProfiles []string `json:"installed_profiles"`
	} `json:"modules"`
	RpmdbCookie string `json:"rpmdb_cookie"`
}

var reasonNames = map[Reason]string{
	ReasonNone:           "NONE",
	ReasonClean:          "CLEAN",
	ReasonWeakDependency: "WEAK_DEPENDENCY",
	ReasonDependency:     "DEPENDENCY",
	ReasonGroup:          "GROUP",
	ReasonUser:           "USER",
	ReasonExternalUser:   "EXTERNAL_USER",
}

var reasonByName = func() map[string]Reason {
	m := make(map[string]Reason, len(reasonNames))
	for r, n := range reasonNames {
		m[n] = r
	}
	return m
}()

var moduleStatusNames = map[module.Status]string{
	module.Available: "AVAILABLE",
	module.Enabled:    "ENABLED",
	module.Disabled:   "DISABLED",
}

var moduleStatusByName = func() map[string]module.Status {
	m := make(map[string]module.Status, len(moduleStatusNames))
	for s, n := range moduleStatusNames {
		m[n] = s
	}
	return m
}()

// New returns an empty State backed by path, not yet loaded or written.
func New(path string) *State {
	return &State{
		path:         path,
		packages:     make(map[string]packageState),
		nevras:       make(map[string]nevraState),
		groups:       make(map[string]groupState),
		environments: make(map[string]environmentState),
		modules:      make(map[string]module.ModuleState),
	}
}

// Load reads and parses the SystemState document at path, if it exists.
// A missing file is not an error: it is treated as an empty, freshly
// initialized state ("Base init" lifecycle).
func Load(path string) (*State, error) {
	s := New(path)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "state: open")
	}
	defer f.Close()

	var raw rawState
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "state: decode")
	}

	for k, v := range raw.Packages {
		s.packages[k] = packageState{Reason: reasonByName[v.Reason]}
	}
	for k, v := range raw.Nevras {
		s.nevras[k] = nevraState{FromRepo: v.FromRepo}
	}
	for k, v := range raw.Groups {
		s.groups[k] = groupState{UserInstalled: v.UserInstalled, PackageTypes: v.PackageTypes, Packages: v.Packages}
	}
	for k, v := range raw.Environments {
		s.environments[k] = environmentState{Groups: v.Groups}
	}
	for k, v := range raw.Modules {
		s.modules[k] = module.ModuleState{
			Status:            moduleStatusByName[v.Status],
			EnabledStream:     v.EnabledStream,
			InstalledProfiles: v.InstalledProfiles,
		}
	}
	s.rpmdbCookie = raw.RpmdbCookie

	return s, nil
}

// GetPackageReason returns the recorded reason for name.arch, or
// ReasonNone if it has none.
func (s *State) GetPackageReason(nameArch string) Reason {
	return s.packages[nameArch].Reason
}

// SetPackageReason records reason for name.arch. Under the monotonicity
// rule, the caller (Transaction.commit) is responsible for not calling
// this with a weaker reason than the package's previous one, except for
// an explicit REASON_CHANGE action; SetPackageReason itself always
// writes verbatim and leaves the monotonicity check to its caller.
func (s *State) SetPackageReason(nameArch string, reason Reason) {
	s.packages[nameArch] = packageState{Reason: reason}
}

// GetFromRepo returns the origin repo id recorded for a nevra string.
func (s *State) GetFromRepo(nevra string) (string, bool) {
	n, ok := s.nevras[nevra]
	return n.FromRepo, ok
}

// SetFromRepo records the origin repo id for a nevra string.
func (s *State) SetFromRepo(nevra, repoID string) {
	s.nevras[nevra] = nevraState{FromRepo: repoID}
}

// RemoveNevra drops the recorded origin repo for a nevra, used when a
// REMOVE/REPLACED transaction takes it out of the installed set.
func (s *State) RemoveNevra(nevra string) { delete(s.nevras, nevra) }

// GroupRecord describes one installed comps group's persisted state.
type GroupRecord struct {
	UserInstalled bool
	PackageTypes  int
	Packages      []string
}

// GetGroup returns the persisted record for a group id.
func (s *State) GetGroup(id string) (GroupRecord, bool) {
	g, ok := s.groups[id]
	return GroupRecord(g), ok
}

// SetGroup upserts a group's persisted record.
func (s *State) SetGroup(id string, rec GroupRecord) { s.groups[id] = groupState(rec) }

// RemoveGroup drops a group's persisted record.
func (s *State) RemoveGroup(id string) { delete(s.groups, id) }

// GetEnvironment returns the persisted group-id list for an environment.
func (s *State) GetEnvironment(id string) ([]string, bool) {
	e, ok := s.environments[id]
	return e.Groups, ok
}

// SetEnvironment upserts an environment's persisted group-id list.
func (s *State) SetEnvironment(id string, groups []string) {
	s.environments[id] = environmentState{Groups: groups}
}

// RemoveEnvironment drops an environment's persisted record.
func (s *State) RemoveEnvironment(id string) { delete(s.environments, id) }

// ModuleStates returns a copy of the persisted per-module state map, in
// the shape module.Sack.LoadState expects.
func (s *State) ModuleStates() map[string]module.ModuleState {
	out := make(map[string]module.ModuleState, len(s.modules))
	for k, v := range s.modules {
		out[k] = v
	}
	return out
}

// SetModuleStates replaces the persisted per-module state map wholesale,
// used by Transaction.commit to write back module.Sack.State() after a
// successful resolve.
func (s *State) SetModuleStates(states map[string]module.ModuleState) {
	s.modules = make(map[string]module.ModuleState, len(states))
	for k, v := range states {
		s.modules[k] = v
	}
}

// RpmdbCookie returns the last recorded rpmdb cookie.
func (s *State) RpmdbCookie() string { return s.rpmdbCookie }

// SetRpmdbCookie records a new rpmdb cookie.
func (s *State) SetRpmdbCookie(cookie string) { s.rpmdbCookie = cookie }

// Save atomically persists the state to its path: write to a sibling
// temp file, then rename over the destination, guarded by an exclusive
// go-flock lock so a concurrent reader never observes a half-written
// file. Stage the new content fully, then swap it in with a single
// rename.
func (s *State) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "state: create state dir")
	}

	lockPath := s.path + ".lock"
	fl := flock.NewFlock(lockPath)
	if err := fl.Lock(); err != nil {
		return errors.Wrap(err, "state: acquire write lock")
	}
	defer fl.Unlock()

	raw := s.toRaw()
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return errors.Wrap(err, "state: marshal")
	}

	tmp, err := ioutil.TempFile(dir, ".systemstate-*.tmp")
	if err != nil {
		return errors.Wrap(err, "state: create temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "state: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "state: close temp file")
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, "state: rename into place")
	}
	return nil
}

func (s *State) toRaw() rawState {
	var raw rawState

	raw.Packages = make(map[string]struct {
		Reason string `json:"reason"`
	}, len(s.packages))
	for k, v := range s.packages {
		raw.Packages[k] = struct {
			Reason string `json:"reason"`
		}{Reason: reasonNames[v.Reason]}
	}

	raw.Nevras = make(map[string]struct {
		FromRepo string `json:"from_repo"`
	}, len(s.nevras))
	for k, v := range s.nevras {
		raw.Nevras[k] = struct {
			FromRepo string `json:"from_repo"`
		}{FromRepo: v.FromRepo}
	}

	raw.Groups = make(map[string]struct {
		UserInstalled bool     `json:"userinstalled"`
		PackageTypes  int      `json:"package_types"`
		Packages      []string `json:"packages"`
	}, len(s.groups))
	for k, v := range s.groups {
		raw.Groups[k] = struct {
			UserInstalled bool     `json:"userinstalled"`
			PackageTypes  int      `json:"package_types"`
			Packages      []string `json:"packages"`
		}{UserInstalled: v.UserInstalled, PackageTypes: v.PackageTypes, Packages: v.Packages}
	}

	raw.Environments = make(map[string]struct {
		Groups []string `json:"groups"`
	}, len(s.environments))
	for k, v := range s.environments {
		raw.Environments[k] = struct {
			Groups []string `json:"groups"`
		}{Groups: v.Groups}
	}

	raw.Modules = make(map[string]struct {
		EnabledStream     string   `json:"enabled_stream"`
		Status            string   `json:"status"`
		InstalledProfiles []string `json:"installed_profiles"`
	}, len(s.modules))
	for k, v := range s.modules {
		raw.Modules[k] = struct {
			EnabledStream     string   `json:"enabled_stream"`
			Status            string   `json:"status"`
			InstalledProfiles []string `json:"installed_profiles"`
		}{EnabledStream: v.EnabledStream, Status: moduleStatusNames[v.Status], InstalledProfiles: v.InstalledProfiles}
	}

	raw.RpmdbCookie = s.rpmdbCookie
	return raw
}
