package stateprovider

import (
	"context"
	"encoding/hex"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
)

// PackageKey addresses a package by (original id, checkpoint), the same
// keyspace histcache uses.
type PackageKey struct {
	OriginalID model.PackageID
	Checkpoint uint64
}

// DynamicChildKey addresses one lazily-fetched dynamic field child.
type DynamicChildKey struct {
	Parent  model.ObjectID
	KeyType model.TypeTag
	KeyHex  string
}

// FileProvider answers every Provider method from in-memory maps captured
// by a prior bundle import; it never reaches out to the network, purely
// local.
type FileProvider struct {
	objects         map[model.ObjectKey]model.Object
	packages        map[PackageKey]model.Package
	transactions    map[model.Digest]model.Transaction
	effects         map[model.Digest]model.Effects
	dynamicChildren map[DynamicChildKey]model.Object
}

// NewFileProvider builds a FileProvider from the decoded contents of an
// exported bundle. Called by bundle.Import, never constructed directly by
// the replay kernel.
func NewFileProvider(
	objects map[model.ObjectKey]model.Object,
	packages map[PackageKey]model.Package,
	transactions map[model.Digest]model.Transaction,
	effects map[model.Digest]model.Effects,
	dynamicChildren map[DynamicChildKey]model.Object,
) *FileProvider {
	return &FileProvider{
		objects:         objects,
		packages:        packages,
		transactions:    transactions,
		effects:         effects,
		dynamicChildren: dynamicChildren,
	}
}

func (p *FileProvider) GetObject(ctx context.Context, id model.ObjectID, version uint64) (model.Object, error) {
	o, ok := p.objects[model.ObjectKey{ID: id, Version: version}]
	if !ok {
		return model.Object{}, errtax.MissingInput(id, version)
	}
	return o, nil
}

func (p *FileProvider) GetPackageForCheckpoint(ctx context.Context, originalID model.PackageID, checkpoint uint64) (model.Package, error) {
	pkg, ok := p.packages[PackageKey{OriginalID: originalID, Checkpoint: checkpoint}]
	if !ok {
		return model.Package{}, errtax.MissingPackage(originalID)
	}
	return pkg, nil
}

func (p *FileProvider) GetTransaction(ctx context.Context, digest model.Digest) (model.Transaction, error) {
	tx, ok := p.transactions[digest]
	if !ok {
		return model.Transaction{}, errtax.NotAvailable("transaction")
	}
	return tx, nil
}

func (p *FileProvider) GetEffects(ctx context.Context, digest model.Digest) (model.Effects, error) {
	e, ok := p.effects[digest]
	if !ok {
		return model.Effects{}, errtax.NotAvailable("effects")
	}
	return e, nil
}

func (p *FileProvider) GetDynamicFieldChild(ctx context.Context, parent model.ObjectID, keyType model.TypeTag, keyBytes []byte) (model.Object, error) {
	key := DynamicChildKey{Parent: parent, KeyType: keyType, KeyHex: hex.EncodeToString(keyBytes)}
	child, ok := p.dynamicChildren[key]
	if !ok {
		// A bundle only ever captures what the original replay touched; a
		// child outside that set was never fetched, not deleted, so this
		// is a MissingDynamicChild error rather than a host error.
		return model.Object{}, errtax.MissingDynamicChild(parent, key.KeyHex)
	}
	return child, nil
}
