package hydrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/hydrate"
	"github.com/sui-replay/replaycore/model"
)

type fakeProvider struct {
	objects      map[model.ObjectKey]model.Object
	packages     map[model.PackageID]model.Package
	transactions map[model.Digest]model.Transaction
	effects      map[model.Digest]model.Effects
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		objects:      map[model.ObjectKey]model.Object{},
		packages:     map[model.PackageID]model.Package{},
		transactions: map[model.Digest]model.Transaction{},
		effects:      map[model.Digest]model.Effects{},
	}
}

func (f *fakeProvider) GetObject(ctx context.Context, id model.ObjectID, version uint64) (model.Object, error) {
	o, ok := f.objects[model.ObjectKey{ID: id, Version: version}]
	if !ok {
		return model.Object{}, errtax.MissingInput(id, version)
	}
	return o, nil
}

func (f *fakeProvider) GetPackageForCheckpoint(ctx context.Context, originalID model.PackageID, checkpoint uint64) (model.Package, error) {
	pkg, ok := f.packages[originalID]
	if !ok {
		return model.Package{}, errtax.MissingPackage(originalID)
	}
	return pkg, nil
}

func (f *fakeProvider) GetTransaction(ctx context.Context, digest model.Digest) (model.Transaction, error) {
	tx, ok := f.transactions[digest]
	if !ok {
		return model.Transaction{}, errtax.NotAvailable("transaction")
	}
	return tx, nil
}

func (f *fakeProvider) GetEffects(ctx context.Context, digest model.Digest) (model.Effects, error) {
	e, ok := f.effects[digest]
	if !ok {
		return model.Effects{}, errtax.NotAvailable("effects")
	}
	return e, nil
}

func (f *fakeProvider) GetDynamicFieldChild(ctx context.Context, parent model.ObjectID, keyType model.TypeTag, keyBytes []byte) (model.Object, error) {
	return model.Object{}, errtax.MissingDynamicChild(parent, "")
}

func addr(b byte) model.Address {
	var a model.Address
	a[31] = b
	return a
}

func digest(b byte) model.Digest {
	var d model.Digest
	d[31] = b
	return d
}

func TestPlanPinsInputsAndResolvesPackages(t *testing.T) {
	provider := newFakeProvider()
	txDigest := digest(1)
	coinID, pkgID := addr(10), addr(20)

	provider.transactions[txDigest] = model.Transaction{
		Digest: txDigest,
		Inputs: []model.Input{
			{Kind: model.InputOwned, ObjectID: coinID, Version: 5},
		},
		Commands: []model.Command{
			{Kind: model.CmdMoveCall, Target: model.MoveCallTarget{Package: pkgID, Module: "coin", Function: "split"}},
		},
	}
	provider.effects[txDigest] = model.Effects{Status: model.Status{Kind: model.StatusSuccess}}
	provider.objects[model.ObjectKey{ID: coinID, Version: 5}] = model.Object{ID: coinID, Version: 5}
	provider.packages[pkgID] = model.Package{OriginalID: pkgID, StorageID: pkgID, Version: 1}

	policy := hydrate.DefaultPolicy()
	policy.PredictivePrefetch = false

	bundle, err := hydrate.Plan(context.Background(), txDigest, 100, policy, hydrate.EpochTable{}, provider)
	require.NoError(t, err)
	require.NotNil(t, bundle.Tx)
	require.Contains(t, bundle.Packages, pkgID)
	require.Empty(t, bundle.DataGaps)
}

func TestPlanFailsFatalOnMissingInputWithoutSynthesis(t *testing.T) {
	provider := newFakeProvider()
	txDigest := digest(2)
	missingID := addr(30)

	provider.transactions[txDigest] = model.Transaction{
		Digest: txDigest,
		Inputs: []model.Input{{Kind: model.InputOwned, ObjectID: missingID, Version: 1}},
	}
	provider.effects[txDigest] = model.Effects{Status: model.Status{Kind: model.StatusSuccess}}

	policy := hydrate.DefaultPolicy()
	policy.PredictivePrefetch = false

	_, err := hydrate.Plan(context.Background(), txDigest, 100, policy, hydrate.EpochTable{}, provider)
	require.Error(t, err)
}

func TestPlanRecordsDataGapWhenSynthesisEnabled(t *testing.T) {
	provider := newFakeProvider()
	txDigest := digest(3)
	missingID := addr(31)

	provider.transactions[txDigest] = model.Transaction{
		Digest: txDigest,
		Inputs: []model.Input{{Kind: model.InputOwned, ObjectID: missingID, Version: 1}},
	}
	provider.effects[txDigest] = model.Effects{Status: model.Status{Kind: model.StatusSuccess}}

	policy := hydrate.DefaultPolicy()
	policy.PredictivePrefetch = false
	policy.SynthesizeMissing = true

	bundle, err := hydrate.Plan(context.Background(), txDigest, 100, policy, hydrate.EpochTable{}, provider)
	require.NoError(t, err)
	require.Len(t, bundle.DataGaps, 1)
	require.Equal(t, "SyntheticSubstitution", string(bundle.DataGaps[0].Kind))
}

func TestEpochTableResolveFallsBackAndWarns(t *testing.T) {
	table := hydrate.EpochTable{10: {ProtocolVersion: 1}}
	params := table.Resolve(1)
	require.True(t, params.FellBackToLatestKnown)

	table2 := hydrate.EpochTable{10: {ProtocolVersion: 1}, 20: {ProtocolVersion: 2}}
	params2 := table2.Resolve(15)
	require.False(t, params2.FellBackToLatestKnown)
	require.EqualValues(t, 1, params2.ProtocolVersion)
}
