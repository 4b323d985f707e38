// Package sourceadapter defines the three independent fetchers the rest
// of the core treats as capabilities, never as a single monolithic
// client. Each adapter is safe for concurrent use by multiple replay
// sessions and carries no cross-call ordering guarantee.
package sourceadapter

import (
	"context"

	"github.com/sui-replay/replaycore/model"
)

// CheckpointBlob is the raw archived payload for one checkpoint, as
// produced by the blob archive's bulk export.
type CheckpointBlob struct {
	Checkpoint uint64
	Data       []byte
}

// BlobArchive fetches bulk checkpoint data over plain HTTP, unauthenticated.
type BlobArchive interface {
	GetCheckpoint(ctx context.Context, n uint64) (CheckpointBlob, error)
	GetLatestTip(ctx context.Context) (uint64, error)
	// IsArchived reports whether checkpoint n has been written to
	// long-term archival storage yet, distinct from whether it exists at
	// all in the hot serving path.
	IsArchived(ctx context.Context, n uint64) (bool, error)
}

// ArchiveRPC fetches individual objects, packages, and transactions,
// optionally authenticated.
type ArchiveRPC interface {
	GetObject(ctx context.Context, id model.ObjectID, version uint64) (model.Object, error)
	GetPackageModules(ctx context.Context, storageID model.PackageID) (model.Package, error)
	GetTransaction(ctx context.Context, digest model.Digest) (model.Transaction, model.Effects, error)
}

// LocalStore is a content-addressed key/value store with atomic writes.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}
