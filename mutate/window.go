package mutate

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/sourceadapter"
	"github.com/sui-replay/replaycore/wire"
)

// WindowConfig selects the checkpoint window candidates are drawn from:
// either the Latest N checkpoints behind the archive tip, or a pinned
// [From, To] range. Latest wins when both are set.
type WindowConfig struct {
	Latest uint64
	From   uint64
	To     uint64
}

// ScanWindow enumerates candidate transactions from a checkpoint window
// by fetching each checkpoint's manifest from the blob archive, caching
// manifests read-through in the local store so a re-scan of an
// overlapping window never refetches a blob. A checkpoint the archive
// doesn't have yet (still propagating, or beyond the tip) is skipped
// rather than failing the scan; anything else surfaces.
func ScanWindow(ctx context.Context, archive sourceadapter.BlobArchive, store sourceadapter.LocalStore, cfg WindowConfig) ([]Candidate, error) {
	from, to := cfg.From, cfg.To
	if cfg.Latest > 0 {
		tip, err := archive.GetLatestTip(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "resolve archive tip")
		}
		to = tip
		if tip >= cfg.Latest {
			from = tip - cfg.Latest + 1
		} else {
			from = 0
		}
	}
	if to < from {
		return nil, errors.Newf("mutate: empty checkpoint window [%d, %d]", from, to)
	}

	var candidates []Candidate
	for n := from; n <= to; n++ {
		manifest, err := checkpointManifest(ctx, archive, store, n)
		if errors.Is(err, errtax.ErrNotAvailable) {
			log.WithField("checkpoint", n).Debug("checkpoint not yet archived, skipping")
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, d := range manifest.Digests {
			candidates = append(candidates, Candidate{Digest: d, Checkpoint: n})
		}
	}
	return candidates, nil
}

// checkpointManifest is the read-through path for one checkpoint's
// manifest: local store first, then the blob archive, storing the decoded
// manifest's canonical encoding on the way back. A stored manifest that
// fails to decode is treated as absent and refetched, the same recovery
// the historical cache applies to its own corrupt entries.
func checkpointManifest(ctx context.Context, archive sourceadapter.BlobArchive, store sourceadapter.LocalStore, n uint64) (*wire.CheckpointManifest, error) {
	key := fmt.Sprintf("manifests/%d", n)

	if raw, ok, err := store.Get(ctx, key); err == nil && ok {
		if m, err := wire.DecodeCheckpointManifest(raw); err == nil {
			return m, nil
		}
		log.WithField("checkpoint", n).Warn("stored manifest failed to decode, refetching")
	}

	blob, err := archive.GetCheckpoint(ctx, n)
	if err != nil {
		return nil, err
	}
	m, err := wire.DecodeCheckpointManifest(blob.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode checkpoint %d manifest", n)
	}
	if err := store.Put(ctx, key, wire.EncodeCheckpointManifest(m)); err != nil {
		// A cache write failure never fails the scan; the next scan just
		// refetches.
		log.WithField("checkpoint", n).WithField("error", err).Warn("manifest cache write failed")
	}
	return m, nil
}
