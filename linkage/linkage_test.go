package linkage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/linkage"
	"github.com/sui-replay/replaycore/model"
)

type fakeProvider struct {
	packages map[model.PackageID]model.Package
}

func (f *fakeProvider) GetObject(ctx context.Context, id model.ObjectID, version uint64) (model.Object, error) {
	panic("not used")
}
func (f *fakeProvider) GetTransaction(ctx context.Context, digest model.Digest) (model.Transaction, error) {
	panic("not used")
}
func (f *fakeProvider) GetEffects(ctx context.Context, digest model.Digest) (model.Effects, error) {
	panic("not used")
}
func (f *fakeProvider) GetDynamicFieldChild(ctx context.Context, parent model.ObjectID, keyType model.TypeTag, keyBytes []byte) (model.Object, error) {
	panic("not used")
}
func (f *fakeProvider) GetPackageForCheckpoint(ctx context.Context, originalID model.PackageID, checkpoint uint64) (model.Package, error) {
	pkg, ok := f.packages[originalID]
	if !ok {
		return model.Package{}, errtax.MissingPackage(originalID)
	}
	return pkg, nil
}

func addr(b byte) model.Address {
	var a model.Address
	a[31] = b
	return a
}

func TestResolveTransitiveClosure(t *testing.T) {
	root, dep, transitive := addr(1), addr(2), addr(3)

	provider := &fakeProvider{packages: map[model.PackageID]model.Package{
		root: {
			OriginalID: root, StorageID: root, Version: 1,
			Linkage: map[model.PackageID]model.LinkageEntry{dep: {StorageID: dep, Version: 1}},
		},
		dep: {
			OriginalID: dep, StorageID: dep, Version: 1,
			Linkage: map[model.PackageID]model.LinkageEntry{transitive: {StorageID: transitive, Version: 1}},
		},
		transitive: {
			OriginalID: transitive, StorageID: transitive, Version: 1,
		},
	}}

	closure, err := linkage.Resolve(context.Background(), []model.PackageID{root}, 100, provider)
	require.NoError(t, err)
	require.Len(t, closure.ByOriginalID, 3)
	require.Contains(t, closure.ByOriginalID, root)
	require.Contains(t, closure.ByOriginalID, dep)
	require.Contains(t, closure.ByOriginalID, transitive)
}

func TestResolveCyclicLinkageTerminates(t *testing.T) {
	a, b := addr(1), addr(2)
	provider := &fakeProvider{packages: map[model.PackageID]model.Package{
		a: {OriginalID: a, StorageID: a, Version: 1, Linkage: map[model.PackageID]model.LinkageEntry{b: {StorageID: b, Version: 1}}},
		b: {OriginalID: b, StorageID: b, Version: 1, Linkage: map[model.PackageID]model.LinkageEntry{a: {StorageID: a, Version: 1}}},
	}}

	closure, err := linkage.Resolve(context.Background(), []model.PackageID{a}, 1, provider)
	require.NoError(t, err)
	require.Len(t, closure.ByOriginalID, 2)
}

func TestResolveMissingSeedPackage(t *testing.T) {
	provider := &fakeProvider{packages: map[model.PackageID]model.Package{}}
	_, err := linkage.Resolve(context.Background(), []model.PackageID{addr(9)}, 1, provider)
	require.Error(t, err)
}
