package compare

import (
	"fmt"

	"github.com/sui-replay/replaycore/model"
)

// diffEffects compares id sets order-insensitively and the gas
// four-tuple (zero tolerance), and flags unreachable mutated/created ids
// as a soft diff rather than a regression, since wrapped-object
// mechanics can legitimately produce ids the local replay can't explain
// from its own input/result graph.
func diffEffects(local, recorded *model.Effects) DiffSet {
	var diffs DiffSet

	diffs = append(diffs, diffIDSet("created", local.Created, recorded.Created)...)
	diffs = append(diffs, diffIDSet("mutated", local.Mutated, recorded.Mutated)...)
	diffs = append(diffs, diffIDSet("deleted", local.Deleted, recorded.Deleted)...)
	diffs = append(diffs, diffIDSet("wrapped", local.Wrapped, recorded.Wrapped)...)
	diffs = append(diffs, diffIDSet("unwrapped", local.Unwrapped, recorded.Unwrapped)...)

	if !local.GasUsed.Equal(recorded.GasUsed) {
		diffs = append(diffs, DiffEntry{
			Field: "gas_used",
			Local: fmt.Sprintf("%+v", local.GasUsed),
			Chain: fmt.Sprintf("%+v", recorded.GasUsed),
		})
	}

	diffs = append(diffs, diffSoftUnreachable(local, recorded)...)

	return diffs
}

// diffIDSet performs an order-insensitive symmetric-difference comparison
// between two ObjectRef slices: id-set comparisons never depend on
// ordering.
func diffIDSet(field string, local, recorded []model.ObjectRef) DiffSet {
	localSet := model.IDSet(local)
	recordedSet := model.IDSet(recorded)

	var diffs DiffSet
	for id, ref := range localSet {
		if _, ok := recordedSet[id]; !ok {
			diffs = append(diffs, DiffEntry{Field: field, Local: ref.ID.Hex(), Chain: "<absent>"})
		}
	}
	for id, ref := range recordedSet {
		if _, ok := localSet[id]; !ok {
			diffs = append(diffs, DiffEntry{Field: field, Local: "<absent>", Chain: ref.ID.Hex()})
		}
	}
	return diffs
}

// diffSoftUnreachable flags any recorded created/mutated id that the local
// replay cannot explain from its own inputs or results as a soft diff
// rather than a regression — wrapped-object mechanics can legitimately
// produce ids unreachable from the transaction's own input/result graph.
func diffSoftUnreachable(local, recorded *model.Effects) DiffSet {
	reachable := model.IDSet(local.Created)
	for id, ref := range model.IDSet(local.Mutated) {
		reachable[id] = ref
	}

	var diffs DiffSet
	for id, ref := range model.IDSet(recorded.Created) {
		if _, ok := reachable[id]; !ok {
			diffs = append(diffs, DiffEntry{Field: "soft_unreachable_created", Local: "<n/a>", Chain: ref.ID.Hex()})
		}
	}
	for id, ref := range model.IDSet(recorded.Mutated) {
		if _, ok := reachable[id]; !ok {
			diffs = append(diffs, DiffEntry{Field: "soft_unreachable_mutated", Local: "<n/a>", Chain: ref.ID.Hex()})
		}
	}
	return diffs
}
