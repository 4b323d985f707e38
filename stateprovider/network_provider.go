package stateprovider

import (
	"context"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/histcache"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/sourceadapter"
)

// NetworkProvider composes the source adapters with the historical cache.
// GetTransaction/GetEffects are not cached beyond the transaction
// keyspace — effects are loaded once per replay, consumed by the
// comparator, and released at the end, so caching them long-term buys
// nothing.
type NetworkProvider struct {
	rpc   sourceadapter.ArchiveRPC
	cache *histcache.Cache
}

// NewNetworkProvider composes an ArchiveRPC adapter with a historical
// cache. The blob archive and local store are used by the mutation lab's
// checkpoint-window scan, outside the object/package/transaction
// keyspaces this provider answers.
func NewNetworkProvider(rpc sourceadapter.ArchiveRPC, cache *histcache.Cache) *NetworkProvider {
	return &NetworkProvider{rpc: rpc, cache: cache}
}

func (p *NetworkProvider) GetObject(ctx context.Context, id model.ObjectID, version uint64) (model.Object, error) {
	return p.cache.GetObject(ctx, model.ObjectKey{ID: id, Version: version}, func(ctx context.Context) (model.Object, error) {
		return p.rpc.GetObject(ctx, id, version)
	})
}

// GetPackageForCheckpoint serves the package from the cache under
// (originalID, checkpoint); on a miss it passes originalID unchanged to the
// archive's GetPackageModules as a storage id and does not itself look up
// which storage id is valid at checkpoint. The linkage resolver is what knows which storage id
// corresponds to an original id at a given checkpoint, so this method
// expects originalID to already have been resolved to a storage id by the
// caller when hitting the network path for the first time.
func (p *NetworkProvider) GetPackageForCheckpoint(ctx context.Context, originalID model.PackageID, checkpoint uint64) (model.Package, error) {
	return p.cache.GetPackage(ctx, originalID, checkpoint, func(ctx context.Context) (model.Package, error) {
		return p.rpc.GetPackageModules(ctx, originalID)
	})
}

func (p *NetworkProvider) GetTransaction(ctx context.Context, digest model.Digest) (model.Transaction, error) {
	tx, _, err := p.txAndEffects(ctx, digest)
	return tx, err
}

func (p *NetworkProvider) GetEffects(ctx context.Context, digest model.Digest) (model.Effects, error) {
	_, effects, err := p.txAndEffects(ctx, digest)
	return effects, err
}

func (p *NetworkProvider) txAndEffects(ctx context.Context, digest model.Digest) (model.Transaction, model.Effects, error) {
	return p.cache.GetTransaction(ctx, digest, func(ctx context.Context) (histcache.TxAndEffects, error) {
		tx, effects, err := p.rpc.GetTransaction(ctx, digest)
		return histcache.TxAndEffects{Tx: tx, Effects: effects}, err
	})
}

// GetDynamicFieldChild is the VM's lazy-fetch hook. The network provider
// has no RPC for "fetch by parent+key" and does not resolve a child any
// other way: every call returns NotAvailable.
func (p *NetworkProvider) GetDynamicFieldChild(ctx context.Context, parent model.ObjectID, keyType model.TypeTag, keyBytes []byte) (model.Object, error) {
	return model.Object{}, errtax.NotAvailable("dynamic_field_child_requires_prefetch")
}
