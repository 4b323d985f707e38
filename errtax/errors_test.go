package errtax_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
)

func TestMissingInputMatchesSentinel(t *testing.T) {
	var id model.ObjectID
	id[31] = 7
	err := errtax.MissingInput(id, 12)
	require.ErrorIs(t, err, errtax.ErrMissingInput)
	require.Contains(t, err.Error(), "version 12")
	require.Contains(t, err.Error(), id.Hex())
}

func TestWrappedSentinelsSurviveFurtherWrapping(t *testing.T) {
	var pkg model.PackageID
	pkg[31] = 2
	inner := errtax.MissingPackage(pkg)
	outer := errors.Wrapf(inner, "resolving closure at checkpoint %d", 100)
	require.ErrorIs(t, outer, errtax.ErrMissingPackage)
}

func TestLinkageFailureIsDistinctFromMissingPackage(t *testing.T) {
	err := errtax.LinkageFailure("coin", "split")
	require.ErrorIs(t, err, errtax.ErrLinkageFailure)
	require.NotErrorIs(t, err, errtax.ErrMissingPackage)
}

func TestCodecCarriesOffset(t *testing.T) {
	err := errtax.Codec(17, "truncated varint")
	require.ErrorIs(t, err, errtax.ErrCodec)
	require.Contains(t, err.Error(), "truncated varint")
	require.Contains(t, errors.GetAllDetails(err), "offset=17")
}

func TestNotAvailableIsNotHostError(t *testing.T) {
	na := errtax.NotAvailable("deleted child")
	require.ErrorIs(t, na, errtax.ErrNotAvailable)
	require.NotErrorIs(t, na, errtax.ErrHost)

	host := errtax.Host("read", errors.New("io failure"))
	require.ErrorIs(t, host, errtax.ErrHost)
	require.NotErrorIs(t, host, errtax.ErrNotAvailable)
}

func TestMissingDynamicChildMatchesSentinel(t *testing.T) {
	var parent model.ObjectID
	parent[31] = 3
	err := errtax.MissingDynamicChild(parent, "deadbeef")
	require.ErrorIs(t, err, errtax.ErrMissingDynamicChild)
}
