package moveengine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/moveengine"
)

type seeder interface {
	SeedResult(module, function string, values ...moveengine.Value)
}

func TestReferenceEngineCallReturnsSeededResult(t *testing.T) {
	e := moveengine.New()
	seed, ok := e.(seeder)
	require.True(t, ok, "reference engine must expose SeedResult for tests")

	var pkgID model.PackageID
	pkgID[31] = 1
	require.NoError(t, e.LoadPackage(pkgID, &model.Package{
		Modules: map[string][]byte{"coin": {}},
	}))

	seed.SeedResult("coin", "split", moveengine.Value{TypeTag: "u64", Bytes: []byte{1, 0, 0, 0, 0, 0, 0, 0}})

	results, err := e.Call(context.Background(), moveengine.CallTarget{
		Package: pkgID, Module: "coin", Function: "split",
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, model.TypeTag("u64"), results[0].TypeTag)
}

func TestReferenceEngineCallWithoutLoadedPackageIsLinkageFailure(t *testing.T) {
	e := moveengine.New()
	var pkgID model.PackageID
	pkgID[31] = 9

	_, err := e.Call(context.Background(), moveengine.CallTarget{
		Package: pkgID, Module: "coin", Function: "split",
	}, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, errtax.ErrLinkageFailure)
}

func TestReferencePublishProducesLoadablePackage(t *testing.T) {
	e := moveengine.New()
	pkg, err := e.Publish(context.Background(), [][]byte{{1, 2, 3}}, nil)
	require.NoError(t, err)
	require.Len(t, pkg.Modules, 1)
}
