package stateprovider_test

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/stateprovider"
)

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

func newTestFileProvider() *stateprovider.FileProvider {
	objID, pkgID, parentID, childID := addr(1), addr(2), addr(3), addr(4)
	txDigest := digest(9)

	return stateprovider.NewFileProvider(
		map[model.ObjectKey]model.Object{
			{ID: objID, Version: 5}: {ID: objID, Version: 5, Type: "0x2::coin::Coin"},
		},
		map[stateprovider.PackageKey]model.Package{
			{OriginalID: pkgID, Checkpoint: 100}: {OriginalID: pkgID, StorageID: pkgID, Version: 1},
		},
		map[model.Digest]model.Transaction{
			txDigest: {Digest: txDigest},
		},
		map[model.Digest]model.Effects{
			txDigest: {Status: model.Status{Kind: model.StatusSuccess}},
		},
		map[stateprovider.DynamicChildKey]model.Object{
			{Parent: parentID, KeyType: "u64", KeyHex: hex.EncodeToString([]byte{1})}: {ID: childID, Version: 2},
		},
	)
}

func TestFileProviderAnswersEveryKeyspace(t *testing.T) {
	p := newTestFileProvider()
	ctx := context.Background()

	obj, err := p.GetObject(ctx, addr(1), 5)
	require.NoError(t, err)
	require.Equal(t, model.TypeTag("0x2::coin::Coin"), obj.Type)

	pkg, err := p.GetPackageForCheckpoint(ctx, addr(2), 100)
	require.NoError(t, err)
	require.EqualValues(t, 1, pkg.Version)

	tx, err := p.GetTransaction(ctx, digest(9))
	require.NoError(t, err)
	require.Equal(t, digest(9), tx.Digest)

	effects, err := p.GetEffects(ctx, digest(9))
	require.NoError(t, err)
	require.True(t, effects.Status.IsSuccess())

	child, err := p.GetDynamicFieldChild(ctx, addr(3), "u64", []byte{1})
	require.NoError(t, err)
	require.Equal(t, addr(4), child.ID)
}

func TestFileProviderMissesAreStructured(t *testing.T) {
	p := newTestFileProvider()
	ctx := context.Background()

	// Wrong version of a known object is as missing as an unknown id.
	_, err := p.GetObject(ctx, addr(1), 6)
	require.ErrorIs(t, err, errtax.ErrMissingInput)

	// Same original id at a different checkpoint is a distinct pin.
	_, err = p.GetPackageForCheckpoint(ctx, addr(2), 101)
	require.ErrorIs(t, err, errtax.ErrMissingPackage)

	_, err = p.GetTransaction(ctx, digest(8))
	require.ErrorIs(t, err, errtax.ErrNotAvailable)

	_, err = p.GetEffects(ctx, digest(8))
	require.ErrorIs(t, err, errtax.ErrNotAvailable)

	// A child outside the captured set was never fetched, not deleted.
	_, err = p.GetDynamicFieldChild(ctx, addr(3), "u64", []byte{2})
	require.ErrorIs(t, err, errtax.ErrMissingDynamicChild)
}

func TestNetworkProviderDynamicChildRequiresPrefetch(t *testing.T) {
	p := stateprovider.NewNetworkProvider(nil, nil)
	_, err := p.GetDynamicFieldChild(context.Background(), addr(1), "u64", []byte{1})
	require.ErrorIs(t, err, errtax.ErrNotAvailable)
}
