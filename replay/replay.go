// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package replay implements C9: parsing and serializing a completed
// transaction to a portable replay JSON document, inverting one via
// the revert table, and folding an ordered sequence of replays into a
// single canonicalized merge.
//
// The wire shape mirrors lock.json: a small raw* struct pinned to
// `json` tags, decoded with encoding/json and then turned into the
// richer typed value the rest of the package works with (lock.go's
// rawLock/readLock split).
package replay

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dnfcore/engine/comps"
	"github.com/dnfcore/engine/state"
	"github.com/dnfcore/engine/transaction"
)

// CurrentMajor is the only `version` major this package accepts on
// parse; an incompatible major is rejected outright.
const CurrentMajor = 1

// RPMEntry is one `rpms[]` element.
type RPMEntry struct {
	Nevra       string
	Action      transaction.Action
	Reason      state.Reason
	RepoID      string
	PackagePath string
	GroupID     string
}

// GroupEntry is one `groups[]` element.
type GroupEntry struct {
	ID           string
	Action       transaction.Action
	Reason       state.Reason
	GroupPath    string
	RepoID       string
	PackageTypes comps.PackageTypeMask
}

// EnvironmentEntry is one `environments[]` element.
type EnvironmentEntry struct {
	ID              string
	Action          transaction.Action
	EnvironmentPath string
	RepoID          string
}

// TransactionReplay is the parsed, typed form of a replay document.
type TransactionReplay struct {
	Major int
	Minor int

	RPMs         []RPMEntry
	Groups       []GroupEntry
	Environments []EnvironmentEntry
}

type rawReplay struct {
	Version      string          `json:"version"`
	RPMs         []rawRPM        `json:"rpms"`
	Groups       []rawGroup      `json:"groups"`
	Environments []rawEnviron    `json:"environments"`
}

type rawRPM struct {
	Nevra       string `json:"nevra,omitempty"`
	Action      string `json:"action"`
	Reason      string `json:"reason"`
	RepoID      string `json:"repo_id,omitempty"`
	PackagePath string `json:"package_path,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
}

type rawGroup struct {
	ID           string `json:"id"`
	Action       string `json:"action"`
	Reason       string `json:"reason,omitempty"`
	GroupPath    string `json:"group_path,omitempty"`
	RepoID       string `json:"repo_id,omitempty"`
	PackageTypes int    `json:"package_types"`
}

type rawEnviron struct {
	ID              string `json:"id"`
	Action          string `json:"action"`
	EnvironmentPath string `json:"environment_path,omitempty"`
	RepoID          string `json:"repo_id,omitempty"`
}

// Parse reads a replay document from r. An unknown major version is
// rejected; every other field is decoded leniently, the way
// lock.go's readLock decodes lock.json.
func Parse(r io.Reader) (*TransactionReplay, error) {
	var raw rawReplay
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "replay: decode document")
	}

	major, minor, err := parseVersion(raw.Version)
	if err != nil {
		return nil, err
	}
	if major != CurrentMajor {
		return nil, errors.Errorf("replay: unsupported version major %d (expected %d)", major, CurrentMajor)
	}

	out := &TransactionReplay{Major: major, Minor: minor}

	for _, rr := range raw.RPMs {
		action, err := actionFromString(rr.Action)
		if err != nil {
			return nil, errors.Wrapf(err, "replay: rpm entry %q", rr.Nevra)
		}
		if rr.Nevra == "" && rr.PackagePath == "" {
			return nil, errors.Errorf("replay: rpm entry needs either nevra or package_path")
		}
		out.RPMs = append(out.RPMs, RPMEntry{
			Nevra:       rr.Nevra,
			Action:      action,
			Reason:      reasonFromString(rr.Reason),
			RepoID:      rr.RepoID,
			PackagePath: rr.PackagePath,
			GroupID:     rr.GroupID,
		})
	}

	for _, rg := range raw.Groups {
		action, err := actionFromString(rg.Action)
		if err != nil {
			return nil, errors.Wrapf(err, "replay: group entry %q", rg.ID)
		}
		out.Groups = append(out.Groups, GroupEntry{
			ID:           rg.ID,
			Action:       action,
			Reason:       reasonFromString(rg.Reason),
			GroupPath:    rg.GroupPath,
			RepoID:       rg.RepoID,
			PackageTypes: comps.PackageTypeMask(rg.PackageTypes),
		})
	}

	for _, re := range raw.Environments {
		action, err := actionFromString(re.Action)
		if err != nil {
			return nil, errors.Wrapf(err, "replay: environment entry %q", re.ID)
		}
		out.Environments = append(out.Environments, EnvironmentEntry{
			ID:              re.ID,
			Action:          action,
			EnvironmentPath: re.EnvironmentPath,
			RepoID:          re.RepoID,
		})
	}

	return out, nil
}

// Serialize writes t as a replay document, the inverse of Parse.
func Serialize(w io.Writer, t *TransactionReplay) error {
	raw := rawReplay{
		Version: strconv.Itoa(t.Major) + "." + strconv.Itoa(t.Minor),
	}
	for _, e := range t.RPMs {
		raw.RPMs = append(raw.RPMs, rawRPM{
			Nevra:       e.Nevra,
			Action:      e.Action.String(),
			Reason:      reasonToString(e.Reason),
			RepoID:      e.RepoID,
			PackagePath: e.PackagePath,
			GroupID:     e.GroupID,
		})
	}
	for _, e := range t.Groups {
		raw.Groups = append(raw.Groups, rawGroup{
			ID:           e.ID,
			Action:       e.Action.String(),
			Reason:       reasonToString(e.Reason),
			GroupPath:    e.GroupPath,
			RepoID:       e.RepoID,
			PackageTypes: int(e.PackageTypes),
		})
	}
	for _, e := range t.Environments {
		raw.Environments = append(raw.Environments, rawEnviron{
			ID:              e.ID,
			Action:          e.Action.String(),
			EnvironmentPath: e.EnvironmentPath,
			RepoID:          e.RepoID,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(raw), "replay: encode document")
}

func parseVersion(v string) (major, minor int, err error) {
	parts := strings.SplitN(v, ".", 2)
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, errors.Wrapf(err, "replay: malformed version %q", v)
	}
	if len(parts) == 2 {
		minor, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, errors.Wrapf(err, "replay: malformed version %q", v)
		}
	}
	return major, minor, nil
}

var actionNames = map[string]transaction.Action{
	"INSTALL":       transaction.ActionInstall,
	"UPGRADE":       transaction.ActionUpgrade,
	"DOWNGRADE":     transaction.ActionDowngrade,
	"REINSTALL":     transaction.ActionReinstall,
	"REMOVE":        transaction.ActionRemove,
	"REPLACED":      transaction.ActionReplaced,
	"REASON_CHANGE": transaction.ActionReasonChange,
}

func actionFromString(s string) (transaction.Action, error) {
	a, ok := actionNames[s]
	if !ok {
		return 0, errors.Errorf("replay: unknown action %q", s)
	}
	return a, nil
}

var reasonByName = map[string]state.Reason{
	"CLEAN":           state.ReasonClean,
	"WEAK_DEPENDENCY": state.ReasonWeakDependency,
	"DEPENDENCY":      state.ReasonDependency,
	"GROUP":           state.ReasonGroup,
	"USER":            state.ReasonUser,
	"EXTERNAL_USER":   state.ReasonExternalUser,
}

var reasonByValue = func() map[state.Reason]string {
	m := make(map[state.Reason]string, len(reasonByName))
	for name, r := range reasonByName {
		m[r] = name
	}
	return m
}()

func reasonFromString(s string) state.Reason {
	return reasonByName[s] // zero value (ReasonNone) for an empty/unknown string
}

func reasonToString(r state.Reason) string {
	if r == state.ReasonNone {
		return ""
	}
	return reasonByValue[r]
}
