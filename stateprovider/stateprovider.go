// Package stateprovider defines the uniform interface the hydration
// planner depends on, with two concrete implementations — NetworkProvider
// (adapters + cache) and FileProvider (a purely local bundle reader).
package stateprovider

import (
	"context"

	"github.com/sui-replay/replaycore/model"
)

// Provider is the uniform state lookup surface. NotAvailable is distinct
// from an InfraError (errtax.ErrHost/Timeout/etc.): the former means "this
// genuinely doesn't exist" (e.g. a deleted dynamic field child), the
// latter means "ask again."
type Provider interface {
	GetObject(ctx context.Context, id model.ObjectID, version uint64) (model.Object, error)
	GetPackageForCheckpoint(ctx context.Context, originalID model.PackageID, checkpoint uint64) (model.Package, error)
	GetTransaction(ctx context.Context, digest model.Digest) (model.Transaction, error)
	GetEffects(ctx context.Context, digest model.Digest) (model.Effects, error)
	GetDynamicFieldChild(ctx context.Context, parent model.ObjectID, keyType model.TypeTag, keyBytes []byte) (model.Object, error)
}
