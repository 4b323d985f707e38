package mutate

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sui-replay/replaycore/compare"
	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
)

// AttemptRecord is one (target, mutator) pair's outcome. The attempt log
// is complete — one entry per (target, mutator) pair, no silent drops —
// so a discarded mutation still gets a record with Discarded=true rather
// than being omitted.
type AttemptRecord struct {
	Target    model.Digest
	Mutator   Operator
	Discarded bool
	Outcome   compare.Outcome
	Err       error
}

// Report aggregates a batch's attempts into outcome buckets and a
// per-mutator breakdown.
type Report struct {
	Buckets      map[compare.Outcome]int
	CrossMutator map[Operator]int
}

func newReport() *Report {
	return &Report{Buckets: map[compare.Outcome]int{}, CrossMutator: map[Operator]int{}}
}

func (r *Report) record(a AttemptRecord) {
	if a.Discarded {
		return
	}
	r.Buckets[a.Outcome]++
	r.CrossMutator[a.Mutator]++
}

// BatchConfig controls the batch scheduler's concurrency and retry/stop
// behavior.
type BatchConfig struct {
	Jobs      int  // concurrent targets per batch
	Retries   int  // transient-failure budget per target
	KeepGoing bool // continue scanning after the first fail->heal pair
}

// HealPair is a baseline-Pass candidate whose mutated variant no longer
// passes — the signal the mutation lab exists to surface.
type HealPair struct {
	Target         model.Digest
	Mutator        Operator
	BaselinePass   bool
	VariantAttempt AttemptRecord
}

// RunBatch drives every candidate through every operator, classifies
// each variant, and aggregates into a Report. differential, if non-nil,
// re-runs a candidate whose variant diverged against a second Replayer
// (e.g. rpc_only vs blob_only) and only counts the fail->heal pair once
// both sources agree, so a heal isn't mistaken for an artifact of one
// source's data-availability gaps.
func RunBatch(ctx context.Context, pool *CandidatePool, cfg BatchConfig, replayer *Replayer, differential *Replayer) ([]AttemptRecord, []HealPair, *Report, error) {
	report := newReport()
	var attempts []AttemptRecord
	var heals []HealPair
	var mu sync.Mutex
	stop := false

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Jobs > 0 {
		g.SetLimit(cfg.Jobs)
	}

	for _, cand := range pool.Candidates {
		cand := cand
		g.Go(func() error {
			mu.Lock()
			shouldStop := stop
			mu.Unlock()
			if shouldStop {
				return nil
			}

			baseline := replayer.run(gctx, cand.Digest, cand.Checkpoint, nil)
			baselinePass := baseline.err == nil && baseline.classification.Outcome == compare.Pass

			baseTx, err := hydrateOnce(gctx, replayer, cand)
			if err != nil {
				for _, op := range Operators() {
					recordAttempt(&mu, report, &attempts, AttemptRecord{Target: cand.Digest, Mutator: op.Name, Outcome: compare.InfraError, Err: err})
				}
				return nil
			}

			for _, op := range Operators() {
				variant, ok := op.Fn(baseTx)
				if !ok {
					recordAttempt(&mu, report, &attempts, AttemptRecord{Target: cand.Digest, Mutator: op.Name, Discarded: true})
					continue
				}

				attempt := runWithRetries(gctx, replayer, cand, variant, op.Name, cfg.Retries)
				recordAttempt(&mu, report, &attempts, attempt)

				if baselinePass && attempt.Outcome == compare.LocalFailOnly {
					confirmed := true
					if differential != nil {
						diffAttempt := runWithRetries(gctx, differential, cand, variant, op.Name, cfg.Retries)
						confirmed = diffAttempt.Outcome == attempt.Outcome
					}
					if confirmed {
						mu.Lock()
						heals = append(heals, HealPair{Target: cand.Digest, Mutator: op.Name, BaselinePass: baselinePass, VariantAttempt: attempt})
						if !cfg.KeepGoing {
							stop = true
						}
						mu.Unlock()
					}
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return attempts, heals, report, err
	}
	return attempts, heals, report, nil
}

func recordAttempt(mu *sync.Mutex, report *Report, attempts *[]AttemptRecord, a AttemptRecord) {
	mu.Lock()
	*attempts = append(*attempts, a)
	report.record(a)
	mu.Unlock()
}

// hydrateOnce fetches just the baseline transaction shape for a candidate
// so mutators have a model.Transaction to work from; errors here become
// an InfraError attempt record for every operator rather than aborting
// the whole candidate.
func hydrateOnce(ctx context.Context, replayer *Replayer, cand Candidate) (*model.Transaction, error) {
	tx, err := replayer.Provider.GetTransaction(ctx, cand.Digest)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// runWithRetries classifies one mutated variant, retrying only on an
// InfraError classification (or a raw hydration/kernel error surfaced as
// one) up to cfg.Retries times. A Pass/Aborted/DataGap classification is
// deterministic and is never retried.
func runWithRetries(ctx context.Context, replayer *Replayer, cand Candidate, variant *model.Transaction, op Operator, retries int) AttemptRecord {
	var last AttemptRecord
	for attempt := 0; attempt <= retries; attempt++ {
		result := replayer.run(ctx, cand.Digest, cand.Checkpoint, variant)
		if result.err != nil {
			last = AttemptRecord{Target: cand.Digest, Mutator: op, Outcome: compare.InfraError, Err: result.err}
			if errors.Is(result.err, errtax.ErrCancelled) {
				break
			}
			continue
		}
		last = AttemptRecord{Target: cand.Digest, Mutator: op, Outcome: result.classification.Outcome}
		if last.Outcome != compare.InfraError {
			return last
		}
	}
	return last
}
