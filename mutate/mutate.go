// Package mutate implements structure-preserving mutation of replayed
// PTBs, differential replay of the variants, and fail/heal bucketization.
package mutate

import (
	"context"

	"github.com/sui-replay/replaycore/compare"
	"github.com/sui-replay/replaycore/hydrate"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/moveengine"
	"github.com/sui-replay/replaycore/obslog"
	"github.com/sui-replay/replaycore/replaykernel"
	"github.com/sui-replay/replaycore/stateprovider"
)

var log = obslog.Component("mutate")

// Candidate names one transaction the mutation lab may target. Pinned
// fixtures are constructed directly and passed to RunBatch, bypassing
// SelectCandidates entirely.
type Candidate struct {
	Digest     model.Digest
	Checkpoint uint64
}

// CandidatePool is the selected target set for a mutation batch.
type CandidatePool struct {
	Candidates []Candidate
}

// Replayer bundles everything RunBatch needs to hydrate and replay one
// transaction: a state provider, a hydration policy/epoch table, and an
// engine constructor (a Kernel is single-use, so a fresh engine is built
// per run — one session per replay).
type Replayer struct {
	Provider  stateprovider.Provider
	Policy    hydrate.SourcePolicy
	Epochs    hydrate.EpochTable
	NewEngine func() moveengine.Engine
}

// replayResult is what one hydrate+run+classify pass over a (possibly
// mutated) transaction produces.
type replayResult struct {
	classification compare.Classification
	err            error
}

// run hydrates digest/checkpoint, substituting txOverride for the fetched
// transaction when non-nil (the mutation lab's variants never exist on
// chain, so there is nothing to re-fetch for them — the recorded effects
// used for classification are always the baseline digest's).
func (r *Replayer) run(ctx context.Context, digest model.Digest, checkpoint uint64, txOverride *model.Transaction) replayResult {
	bundle, err := hydrate.Plan(ctx, digest, checkpoint, r.Policy, r.Epochs, r.Provider)
	if err != nil {
		return replayResult{err: err}
	}
	if txOverride != nil {
		bundle.Tx = txOverride
	}

	kernel := replaykernel.New(r.NewEngine())
	local, err := kernel.Run(ctx, bundle)
	if err != nil {
		return replayResult{err: err}
	}

	c := compare.Classify(local, bundle.Effects, bundle.DataGaps, bundle.ProtocolParams.FellBackToLatestKnown)
	return replayResult{classification: c}
}

// SelectCandidates replays each of the supplied candidates (typically
// ScanWindow's output, or a pinned fixture list that bypasses scanning)
// and keeps up to maxTransactions that classify Pass, preferring
// candidates already known to replay cleanly.
func SelectCandidates(ctx context.Context, window []Candidate, maxTransactions int, replayer *Replayer) (*CandidatePool, error) {
	pool := &CandidatePool{}
	for _, cand := range window {
		if len(pool.Candidates) >= maxTransactions {
			break
		}
		result := replayer.run(ctx, cand.Digest, cand.Checkpoint, nil)
		if result.err != nil {
			log.WithField("digest", cand.Digest.Hex()).WithField("error", result.err).Debug("candidate replay failed, skipping")
			continue
		}
		if result.classification.Outcome == compare.Pass {
			pool.Candidates = append(pool.Candidates, cand)
		}
	}
	return pool, nil
}
