package mutate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/hydrate"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/moveengine"
	"github.com/sui-replay/replaycore/mutate"
)

type scheduleFakeProvider struct {
	objects      map[model.ObjectKey]model.Object
	packages     map[model.PackageID]model.Package
	transactions map[model.Digest]model.Transaction
	effects      map[model.Digest]model.Effects
}

func newScheduleFakeProvider() *scheduleFakeProvider {
	return &scheduleFakeProvider{
		objects:      map[model.ObjectKey]model.Object{},
		packages:     map[model.PackageID]model.Package{},
		transactions: map[model.Digest]model.Transaction{},
		effects:      map[model.Digest]model.Effects{},
	}
}

func (f *scheduleFakeProvider) GetObject(ctx context.Context, id model.ObjectID, version uint64) (model.Object, error) {
	o, ok := f.objects[model.ObjectKey{ID: id, Version: version}]
	if !ok {
		return model.Object{}, errtax.MissingInput(id, version)
	}
	return o, nil
}

func (f *scheduleFakeProvider) GetPackageForCheckpoint(ctx context.Context, originalID model.PackageID, checkpoint uint64) (model.Package, error) {
	pkg, ok := f.packages[originalID]
	if !ok {
		return model.Package{}, errtax.MissingPackage(originalID)
	}
	return pkg, nil
}

func (f *scheduleFakeProvider) GetTransaction(ctx context.Context, digest model.Digest) (model.Transaction, error) {
	tx, ok := f.transactions[digest]
	if !ok {
		return model.Transaction{}, errtax.NotAvailable("transaction")
	}
	return tx, nil
}

func (f *scheduleFakeProvider) GetEffects(ctx context.Context, digest model.Digest) (model.Effects, error) {
	e, ok := f.effects[digest]
	if !ok {
		return model.Effects{}, errtax.NotAvailable("effects")
	}
	return e, nil
}

func (f *scheduleFakeProvider) GetDynamicFieldChild(ctx context.Context, parent model.ObjectID, keyType model.TypeTag, keyBytes []byte) (model.Object, error) {
	return model.Object{}, errtax.MissingDynamicChild(parent, "")
}

func scheduleDigest(b byte) model.Digest {
	var d model.Digest
	d[31] = b
	return d
}

// TestRunBatchAttemptLogIsComplete covers the no-silent-drops property: a
// commandless transaction (nothing for any mutator to grab onto) must
// still produce one discarded attempt per operator, never an omission.
func TestRunBatchAttemptLogIsComplete(t *testing.T) {
	provider := newScheduleFakeProvider()
	txDigest := scheduleDigest(1)
	provider.transactions[txDigest] = model.Transaction{Digest: txDigest}
	provider.effects[txDigest] = model.Effects{Status: model.Status{Kind: model.StatusSuccess}}

	replayer := &mutate.Replayer{
		Provider:  provider,
		Policy:    hydrate.SourcePolicy{Mode: hydrate.BlobOnly},
		Epochs:    hydrate.EpochTable{},
		NewEngine: moveengine.New,
	}

	pool := &mutate.CandidatePool{Candidates: []mutate.Candidate{{Digest: txDigest, Checkpoint: 1}}}
	attempts, heals, report, err := mutate.RunBatch(context.Background(), pool, mutate.BatchConfig{Jobs: 1, KeepGoing: true}, replayer, nil)
	require.NoError(t, err)
	require.Len(t, attempts, 5, "one attempt record per operator, no silent drops")
	require.Empty(t, heals)
	for _, a := range attempts {
		require.True(t, a.Discarded, "a commandless transaction has no applicable mutation site for any operator")
	}
	require.Empty(t, report.Buckets, "discarded attempts never enter the outcome buckets")
}

func TestSelectCandidatesKeepsOnlyPassingTransactions(t *testing.T) {
	provider := newScheduleFakeProvider()
	passDigest := scheduleDigest(2)
	failDigest := scheduleDigest(3)

	provider.transactions[passDigest] = model.Transaction{Digest: passDigest}
	provider.effects[passDigest] = model.Effects{Status: model.Status{Kind: model.StatusSuccess}}

	provider.transactions[failDigest] = model.Transaction{Digest: failDigest}
	provider.effects[failDigest] = model.Effects{Status: model.Status{Kind: model.StatusAborted, Code: 1, Location: "m::f"}}

	replayer := &mutate.Replayer{
		Provider:  provider,
		Policy:    hydrate.SourcePolicy{Mode: hydrate.BlobOnly},
		Epochs:    hydrate.EpochTable{},
		NewEngine: moveengine.New,
	}

	window := []mutate.Candidate{{Digest: passDigest, Checkpoint: 1}, {Digest: failDigest, Checkpoint: 1}}
	pool, err := mutate.SelectCandidates(context.Background(), window, 10, replayer)
	require.NoError(t, err)
	require.Len(t, pool.Candidates, 1)
	require.Equal(t, passDigest, pool.Candidates[0].Digest)
}
