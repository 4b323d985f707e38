package bundle_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/bundle"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/replaykernel"
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

func sampleBundle(t *testing.T) (*replaykernel.HydratedBundle, *model.Effects) {
	t.Helper()
	coinID := addr(1)
	pkgID := addr(2)
	txDigest := digest(9)

	tx := &model.Transaction{
		Digest: txDigest,
		Inputs: []model.Input{{Kind: model.InputOwned, ObjectID: coinID, Version: 3}},
	}
	effects := &model.Effects{
		Status:                    model.Status{Kind: model.StatusSuccess},
		SharedObjectInputVersions: map[model.ObjectID]uint64{},
	}
	pkg := &model.Package{
		OriginalID: pkgID, StorageID: pkgID, Version: 1,
		Modules:         map[string][]byte{"coin": {1, 2, 3}},
		Linkage:         map[model.PackageID]model.LinkageEntry{},
		TypeOriginTable: map[string]model.PackageID{},
	}

	hb := &replaykernel.HydratedBundle{
		Tx:      tx,
		Effects: effects,
		Packages: map[model.PackageID]*model.Package{
			pkgID: pkg,
		},
		ProtocolParams: model.ProtocolParams{ProtocolVersion: 7, Epoch: 42, ReferenceGasPrice: 1000},
	}
	return hb, effects
}

func TestExportCapturesPinnedObjectsAndPackages(t *testing.T) {
	hb, effects := sampleBundle(t)
	coinID := hb.Tx.Inputs[0].ObjectID

	fetch := func(id model.ObjectID, version uint64) (model.Object, error) {
		return model.Object{ID: id, Version: version, Type: "0x2::coin::Coin"}, nil
	}

	doc, err := bundle.Export(hb, effects, nil, fetch)
	require.NoError(t, err)
	require.Contains(t, doc.Objects, coinID.Hex())
	require.Len(t, doc.Packages, 1)
	require.Equal(t, bundle.CurrentSchemaVersion, doc.SchemaVersion)
}

func TestJSONRoundTrip(t *testing.T) {
	hb, effects := sampleBundle(t)
	fetch := func(id model.ObjectID, version uint64) (model.Object, error) {
		return model.Object{ID: id, Version: version}, nil
	}
	doc, err := bundle.Export(hb, effects, nil, fetch)
	require.NoError(t, err)

	raw, err := bundle.EncodeJSON(doc)
	require.NoError(t, err)

	decoded, err := bundle.DecodeJSON(raw)
	require.NoError(t, err)
	require.Equal(t, doc.Transaction.Digest, decoded.Transaction.Digest)
	require.Equal(t, doc.ProtocolVersion, decoded.ProtocolVersion)
	require.Len(t, decoded.Objects, len(doc.Objects))
}

func TestBinaryRoundTrip(t *testing.T) {
	hb, effects := sampleBundle(t)
	fetch := func(id model.ObjectID, version uint64) (model.Object, error) {
		return model.Object{ID: id, Version: version}, nil
	}
	doc, err := bundle.Export(hb, effects, nil, fetch)
	require.NoError(t, err)

	raw := bundle.EncodeBinary(doc)
	decoded, err := bundle.DecodeBinary(raw)
	require.NoError(t, err)
	require.Equal(t, doc.Transaction.Digest, decoded.Transaction.Digest)
	require.Equal(t, doc.Epoch, decoded.Epoch)
	require.Len(t, decoded.Packages, len(doc.Packages))
}

func TestSaveAndLoadJSONRoundTripThroughMemMapFs(t *testing.T) {
	hb, effects := sampleBundle(t)
	fetch := func(id model.ObjectID, version uint64) (model.Object, error) {
		return model.Object{ID: id, Version: version}, nil
	}
	doc, err := bundle.Export(hb, effects, nil, fetch)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, bundle.SaveJSON(fs, "/bundles/one.json", doc))

	loaded, err := bundle.LoadJSON(fs, "/bundles/one.json")
	require.NoError(t, err)
	require.Equal(t, doc.Transaction.Digest, loaded.Transaction.Digest)
}

func TestSaveAndLoadBinaryRoundTripThroughMemMapFs(t *testing.T) {
	hb, effects := sampleBundle(t)
	fetch := func(id model.ObjectID, version uint64) (model.Object, error) {
		return model.Object{ID: id, Version: version}, nil
	}
	doc, err := bundle.Export(hb, effects, nil, fetch)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, bundle.SaveBinary(fs, "/bundles/one.bin", doc))

	loaded, err := bundle.LoadBinary(fs, "/bundles/one.bin")
	require.NoError(t, err)
	require.Equal(t, doc.Transaction.Digest, loaded.Transaction.Digest)
}

func TestImportRejectsUnknownSchemaVersion(t *testing.T) {
	doc := &bundle.Doc{SchemaVersion: bundle.CurrentSchemaVersion + 1}
	_, err := bundle.Import(doc)
	require.ErrorIs(t, err, bundle.ErrUnknownSchemaVersion)
}

func TestDynamicChildKeepsItsOwnIDThroughExportImport(t *testing.T) {
	hb, effects := sampleBundle(t)
	parentID := hb.Tx.Inputs[0].ObjectID
	childID := addr(77)

	touched := []replaykernel.ChildTouch{
		{
			Parent:   parentID,
			KeyType:  "u64",
			KeyBytes: []byte{1, 0, 0, 0, 0, 0, 0, 0},
			Object:   model.Object{ID: childID, Version: 5, Type: "0x2::dynamic_field::Field"},
		},
	}
	fetch := func(id model.ObjectID, version uint64) (model.Object, error) {
		return model.Object{ID: id, Version: version}, nil
	}

	doc, err := bundle.Export(hb, effects, touched, fetch)
	require.NoError(t, err)
	require.Len(t, doc.DynamicChildren, 1)

	provider, err := bundle.Import(doc)
	require.NoError(t, err)

	child, err := provider.GetDynamicFieldChild(context.Background(), parentID, "u64", []byte{1, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, childID, child.ID, "dynamic-field child must keep its own id, not its parent's")
	require.NotEqual(t, parentID, child.ID)
	require.EqualValues(t, 5, child.Version)
}

func TestImportProducesOfflineProvider(t *testing.T) {
	hb, effects := sampleBundle(t)
	coinID := hb.Tx.Inputs[0].ObjectID

	fetch := func(id model.ObjectID, version uint64) (model.Object, error) {
		return model.Object{ID: id, Version: version, Type: "0x2::coin::Coin"}, nil
	}
	doc, err := bundle.Export(hb, effects, nil, fetch)
	require.NoError(t, err)

	provider, err := bundle.Import(doc)
	require.NoError(t, err)

	var p stateprovider.Provider = provider
	obj, err := p.GetObject(context.Background(), coinID, 3)
	require.NoError(t, err)
	require.Equal(t, model.TypeTag("0x2::coin::Coin"), obj.Type)

	tx, err := p.GetTransaction(context.Background(), hb.Tx.Digest)
	require.NoError(t, err)
	require.Equal(t, hb.Tx.Digest, tx.Digest)
}
