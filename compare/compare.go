// Package compare diffs local replay effects against recorded on-chain
// effects and classifies the result onto the
// Pass/LocalFailOnly/BothFail/DataGap/InfraError lattice.
package compare

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/obslog"
	"github.com/sui-replay/replaycore/replaykernel"
)

var log = obslog.Component("compare")

var outcomeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "replaycore_compare_outcome_total",
	Help: "Replay classification outcomes by kind.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(outcomeTotal)
}

// Outcome is the classification lattice's top-level discriminant.
type Outcome string

const (
	Pass          Outcome = "Pass"
	LocalFailOnly Outcome = "LocalFailOnly"
	BothFail      Outcome = "BothFail"
	DataGap       Outcome = "DataGap"
	InfraError    Outcome = "InfraError"
)

// DiffEntry records one field-level mismatch between local and recorded
// effects, used for Pass-with-warnings and for diagnosing a BothFail
// whose abort codes don't match.
type DiffEntry struct {
	Field string
	Local string
	Chain string
}

// DiffSet is the ordered collection of field-level diffs the comparator
// found; empty for a clean Pass.
type DiffSet []DiffEntry

// Classification is the comparator's full structured result.
type Classification struct {
	Outcome Outcome

	// MatchingCode is set only for BothFail: whether the abort
	// code/location agree between local and chain.
	MatchingCode bool

	// DataGapKinds carries through the hydration planner's recorded
	// synthesis gaps (replaykernel.DataGapRecord) when Outcome == DataGap.
	DataGapKinds []replaykernel.DataGapKind

	// Warning is set when a non-fatal condition (e.g. an epoch-table
	// fallback) affected the replay without itself causing a DataGap.
	Warning string

	Diff DiffSet
}

// Exit codes for callers that wrap a replay in a process boundary: a
// completed replay (Pass or a classified fail) is 0, a replay that could
// not run for lack of data is 2, infrastructure trouble is 3. Bad user
// input (4) never reaches Classify — it is rejected upstream of
// hydration — so it has no Outcome mapping here.
const (
	ExitReplayCompleted = 0
	ExitNotRunnable     = 2
	ExitInfraError      = 3
	ExitUserError       = 4
)

// ExitCode maps the classification onto the process exit-code contract.
func (c Classification) ExitCode() int {
	switch c.Outcome {
	case DataGap:
		return ExitNotRunnable
	case InfraError:
		return ExitInfraError
	default:
		return ExitReplayCompleted
	}
}

// Classify applies the classification lattice exactly. dataGaps carries
// any synthesis records the hydration planner attached to the bundle;
// their presence always wins over a coincidental effects match, since a
// replay built on synthesized data isn't meaningful to compare.
func Classify(local, recorded *model.Effects, dataGaps []replaykernel.DataGapRecord, fellBackToLatestKnownProtocol bool) Classification {
	if len(dataGaps) > 0 {
		kinds := make([]replaykernel.DataGapKind, 0, len(dataGaps))
		for _, g := range dataGaps {
			kinds = append(kinds, g.Kind)
		}
		c := Classification{Outcome: DataGap, DataGapKinds: kinds}
		outcomeTotal.WithLabelValues(string(DataGap)).Inc()
		return c
	}

	localAborted := local.Status.Kind != model.StatusSuccess
	chainAborted := recorded.Status.Kind != model.StatusSuccess

	var c Classification
	switch {
	case !localAborted && chainAborted:
		// Chain recorded a failure, local replay succeeded: not a
		// regression signal (the inverse direction is), but also not a
		// literal Pass — only LocalFailOnly is a named regression
		// direction, so this reports as a diff-bearing Pass to keep the
		// lattice total without inventing a sixth outcome.
		c = Classification{Outcome: Pass, Diff: diffEffects(local, recorded)}
	case localAborted && !chainAborted:
		c = Classification{Outcome: LocalFailOnly, Diff: diffEffects(local, recorded)}
	case localAborted && chainAborted:
		matching := local.Status.Kind == recorded.Status.Kind &&
			local.Status.Code == recorded.Status.Code &&
			local.Status.Location == recorded.Status.Location
		c = Classification{Outcome: BothFail, MatchingCode: matching, Diff: diffEffects(local, recorded)}
	default:
		diff := diffEffects(local, recorded)
		c = Classification{Outcome: Pass, Diff: diff}
	}

	if fellBackToLatestKnownProtocol {
		c.Warning = "protocol params fell back to most recent known version for this epoch"
	}

	if c.Outcome == LocalFailOnly {
		log.WithField("local_status", local.Status.Kind.String()).Warn("local replay aborted where the chain succeeded")
	}

	outcomeTotal.WithLabelValues(string(c.Outcome)).Inc()
	return c
}
