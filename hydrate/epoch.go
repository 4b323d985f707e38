package hydrate

import (
	"sort"

	"github.com/sui-replay/replaycore/model"
)

// EpochTable pins the protocol parameter set in force at each checkpoint,
// keyed directly by checkpoint number. The table's own construction —
// who populates it for which epoch boundaries — is outside this core's
// scope; this core only consumes it.
type EpochTable map[uint64]model.ProtocolParams

// Resolve returns the protocol params pinned at or before checkpoint. If
// the table has no entry at or before checkpoint, it falls back to the
// latest known entry and sets FellBackToLatestKnown so a caller can
// record a warning rather than silently treating the replay as a clean
// Pass.
func (t EpochTable) Resolve(checkpoint uint64) model.ProtocolParams {
	if len(t) == 0 {
		return model.ProtocolParams{FellBackToLatestKnown: true}
	}

	keys := make([]uint64, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	best := keys[len(keys)-1]
	found := false
	for _, k := range keys {
		if k <= checkpoint {
			best = k
			found = true
		} else {
			break
		}
	}

	params := t[best]
	if !found {
		params.FellBackToLatestKnown = true
	}
	return params
}
