// Copyright 2026 The dnfcore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package replay

import (
	"github.com/pkg/errors"

	"github.com/dnfcore/engine/state"
	"github.com/dnfcore/engine/transaction"
)

// revertAction is the table gives for inverting one
// completed transaction's action. UPGRADE/DOWNGRADE have no true
// inverse action of their own kind — both revert to REPLACED, since
// reverting either one reinstates a specific predecessor NEVRA rather
// than performing a fresh upgrade/downgrade comparison.
var revertAction = map[transaction.Action]transaction.Action{
	transaction.ActionInstall:      transaction.ActionRemove,
	transaction.ActionUpgrade:      transaction.ActionReplaced,
	transaction.ActionDowngrade:    transaction.ActionReplaced,
	transaction.ActionReinstall:    transaction.ActionReinstall,
	transaction.ActionRemove:       transaction.ActionInstall,
	transaction.ActionReplaced:     transaction.ActionInstall,
	transaction.ActionReasonChange: transaction.ActionReasonChange,
}

// HistoryLookup resolves the reason an rpm entry carried at some
// predecessor transaction, needed to revert a REASON_CHANGE (whose
// reverted reason isn't recoverable from the entry alone) and to
// distinguish DEPENDENCY from WEAK_DEPENDENCY when an INSTALL's
// original reason was CLEAN.
type HistoryLookup func(nevra string) (reasonName string, ok bool)

// Revert inverts t using the fixed revert table below. Every rpm/group
// entry's action is looked up in revertAction; REASON_CHANGE entries and
// CLEAN-reason INSTALLs consult history to recover the reason that
// actually applies after the revert, since the table alone can't
// supply it. An environment UPGRADE has no inverse: Revert skips it and
// returns it in the skipped slice instead of silently dropping it, so
// the caller can log a warning.
func Revert(t *TransactionReplay, history HistoryLookup) (reverted *TransactionReplay, skipped []GroupEntry, err error) {
	out := &TransactionReplay{Major: t.Major, Minor: t.Minor}

	for _, e := range t.RPMs {
		action, ok := revertAction[e.Action]
		if !ok {
			return nil, nil, errors.Errorf("replay: no revert mapping for action %v", e.Action)
		}

		reason := e.Reason
		if e.Action == transaction.ActionReasonChange || (e.Action == transaction.ActionInstall && e.Reason == state.ReasonClean) {
			if history != nil {
				if name, ok := history(e.Nevra); ok {
					reason = reasonByName[name]
				}
			}
		}

		out.RPMs = append(out.RPMs, RPMEntry{
			Nevra:       e.Nevra,
			Action:      action,
			Reason:      reason,
			RepoID:      e.RepoID,
			PackagePath: e.PackagePath,
			GroupID:     e.GroupID,
		})
	}

	for _, g := range t.Groups {
		action, ok := revertAction[g.Action]
		if !ok {
			return nil, nil, errors.Errorf("replay: no revert mapping for action %v", g.Action)
		}
		out.Groups = append(out.Groups, GroupEntry{
			ID:           g.ID,
			Action:       action,
			Reason:       g.Reason,
			GroupPath:    g.GroupPath,
			RepoID:       g.RepoID,
			PackageTypes: g.PackageTypes,
		})
	}

	for _, e := range t.Environments {
		if e.Action == transaction.ActionUpgrade {
			skipped = append(skipped, GroupEntry{ID: e.ID, Action: e.Action})
			continue
		}
		action, ok := revertAction[e.Action]
		if !ok {
			return nil, nil, errors.Errorf("replay: no revert mapping for action %v", e.Action)
		}
		out.Environments = append(out.Environments, EnvironmentEntry{
			ID:              e.ID,
			Action:          action,
			EnvironmentPath: e.EnvironmentPath,
			RepoID:          e.RepoID,
		})
	}

	return out, skipped, nil
}

