package mutate_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/mutate"
	"github.com/sui-replay/replaycore/sourceadapter"
	"github.com/sui-replay/replaycore/wire"
)

type fakeArchive struct {
	tip         uint64
	checkpoints map[uint64][]model.Digest
	fetches     int
}

func (f *fakeArchive) GetCheckpoint(ctx context.Context, n uint64) (sourceadapter.CheckpointBlob, error) {
	digests, ok := f.checkpoints[n]
	if !ok {
		return sourceadapter.CheckpointBlob{}, errtax.NotAvailable("future_or_recent")
	}
	f.fetches++
	m := &wire.CheckpointManifest{Checkpoint: n, Digests: digests}
	return sourceadapter.CheckpointBlob{Checkpoint: n, Data: wire.EncodeCheckpointManifest(m)}, nil
}

func (f *fakeArchive) GetLatestTip(ctx context.Context) (uint64, error) { return f.tip, nil }

func (f *fakeArchive) IsArchived(ctx context.Context, n uint64) (bool, error) {
	_, ok := f.checkpoints[n]
	return ok, nil
}

func TestScanWindowLatestN(t *testing.T) {
	archive := &fakeArchive{
		tip: 102,
		checkpoints: map[uint64][]model.Digest{
			100: {scheduleDigest(1)},
			101: {scheduleDigest(2), scheduleDigest(3)},
			102: {},
		},
	}
	store := sourceadapter.NewFileLocalStore(afero.NewMemMapFs(), "/scan")

	candidates, err := mutate.ScanWindow(context.Background(), archive, store, mutate.WindowConfig{Latest: 3})
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	require.Equal(t, scheduleDigest(1), candidates[0].Digest)
	require.EqualValues(t, 100, candidates[0].Checkpoint)
	require.EqualValues(t, 101, candidates[2].Checkpoint)
}

func TestScanWindowPinnedRangeSkipsUnarchivedCheckpoints(t *testing.T) {
	archive := &fakeArchive{
		tip: 12,
		checkpoints: map[uint64][]model.Digest{
			10: {scheduleDigest(4)},
			12: {scheduleDigest(5)},
		},
	}
	store := sourceadapter.NewFileLocalStore(afero.NewMemMapFs(), "/scan")

	candidates, err := mutate.ScanWindow(context.Background(), archive, store, mutate.WindowConfig{From: 10, To: 12})
	require.NoError(t, err)
	require.Len(t, candidates, 2, "checkpoint 11 is still propagating and must be skipped, not fatal")
}

func TestScanWindowCachesManifestsInLocalStore(t *testing.T) {
	archive := &fakeArchive{
		tip:         5,
		checkpoints: map[uint64][]model.Digest{5: {scheduleDigest(6)}},
	}
	store := sourceadapter.NewFileLocalStore(afero.NewMemMapFs(), "/scan")
	cfg := mutate.WindowConfig{From: 5, To: 5}

	_, err := mutate.ScanWindow(context.Background(), archive, store, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, archive.fetches)

	_, err = mutate.ScanWindow(context.Background(), archive, store, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, archive.fetches, "a re-scan of the same window must be served from the local store")
}

func TestScanWindowRejectsEmptyRange(t *testing.T) {
	archive := &fakeArchive{tip: 5}
	store := sourceadapter.NewFileLocalStore(afero.NewMemMapFs(), "/scan")
	_, err := mutate.ScanWindow(context.Background(), archive, store, mutate.WindowConfig{From: 9, To: 3})
	require.Error(t, err)
}
