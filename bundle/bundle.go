// Package bundle implements a self-contained state-bundle document
// sufficient to replay a transaction with zero network access, plus the
// structured-text (JSON) and compact binary (wire) encodings of it, and
// the afero-backed file layer (file.go) that reads/writes those
// encodings the same testable-filesystem way sourceadapter's local store
// does.
package bundle

import (
	"encoding/hex"

	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/replaykernel"
)

// CurrentSchemaVersion is the highest schema version this reader/writer
// understands. A reader rejects any Doc with a higher SchemaVersion and
// accepts lower versions, defaulting removed fields to their zero value.
const CurrentSchemaVersion uint16 = 1

// ObjectState is one object's exported state. ID is carried explicitly
// rather than left to be inferred from whatever map key the object
// happens to be stored under: Doc.Objects is keyed by the object's own
// id, but Doc.DynamicChildren is keyed by (parent, key type, key bytes),
// so a dynamic-field child's id would otherwise be unrecoverable on
// import — it would silently take on its parent's id instead.
type ObjectState struct {
	ID         model.ObjectID
	Version    uint64
	Digest     model.Digest
	Owner      model.Owner
	Type       model.TypeTag
	Contents   []byte
	PreviousTx model.Digest
}

func (o ObjectState) toObject() model.Object {
	return model.Object{
		ID: o.ID, Version: o.Version, Digest: o.Digest, Owner: o.Owner,
		Type: o.Type, Contents: o.Contents, PreviousTx: o.PreviousTx,
	}
}

func objectStateOf(o model.Object) ObjectState {
	return ObjectState{
		ID: o.ID, Version: o.Version, Digest: o.Digest, Owner: o.Owner,
		Type: o.Type, Contents: o.Contents, PreviousTx: o.PreviousTx,
	}
}

// PackageState is one package's exported state, keyed by original package
// id in Doc.Packages.
type PackageState struct {
	StorageID       model.PackageID
	Version         uint64
	Modules         map[string][]byte
	Linkage         map[model.PackageID]model.LinkageEntry
	TypeOriginTable map[string]model.PackageID
}

func (p PackageState) toPackage(originalID model.PackageID) model.Package {
	return model.Package{
		OriginalID: originalID, StorageID: p.StorageID, Version: p.Version,
		Modules: p.Modules, Linkage: p.Linkage, TypeOriginTable: p.TypeOriginTable,
	}
}

func packageStateOf(p *model.Package) PackageState {
	return PackageState{
		StorageID: p.StorageID, Version: p.Version,
		Modules: p.Modules, Linkage: p.Linkage, TypeOriginTable: p.TypeOriginTable,
	}
}

// dynamicChildKey is the exported doc's string key for one captured
// dynamic-field child: parent hex, key-type tag, and hex-encoded key
// bytes, joined so the key space matches stateprovider.DynamicChildKey
// one-for-one on import.
func dynamicChildKey(parent model.ObjectID, keyType model.TypeTag, keyBytes []byte) string {
	return parent.Hex() + "|" + string(keyType) + "|" + hex.EncodeToString(keyBytes)
}

// Doc is the canonical export document.
type Doc struct {
	SchemaVersion     uint16
	ProtocolVersion   uint32
	Epoch             uint64
	ReferenceGasPrice uint64
	Checkpoint        uint64

	Transaction model.Transaction
	Effects     model.Effects

	// Keyed by hex object id. A given id appears at most once: a replay
	// pins each input id at exactly one version, so one version per id
	// is always sufficient to reproduce it.
	Objects map[string]ObjectState

	// Keyed by original package id hex.
	Packages map[string]PackageState

	// Keyed by dynamicChildKey(parent, keyType, keyBytes).
	DynamicChildren map[string]ObjectState
}

// Export builds a Doc from a hydrated bundle, its locally-produced (or
// recorded) effects, and the set of dynamic-field children the replay
// actually touched (replaykernel.Kernel.TouchedChildren) — not a
// predictive superset, so import never claims to have data the original
// replay never observed.
func Export(hb *replaykernel.HydratedBundle, effects *model.Effects, touched []replaykernel.ChildTouch, fetchObject func(id model.ObjectID, version uint64) (model.Object, error)) (*Doc, error) {
	doc := &Doc{
		SchemaVersion:     CurrentSchemaVersion,
		ProtocolVersion:   hb.ProtocolParams.ProtocolVersion,
		Epoch:             hb.ProtocolParams.Epoch,
		ReferenceGasPrice: hb.ProtocolParams.ReferenceGasPrice,
		Checkpoint:        hb.Tx.Checkpoint,
		Transaction:       *hb.Tx,
		Effects:           *effects,
		Objects:           map[string]ObjectState{},
		Packages:          map[string]PackageState{},
		DynamicChildren:   map[string]ObjectState{},
	}

	seen := map[model.ObjectKey]struct{}{}
	addObject := func(id model.ObjectID, version uint64) error {
		key := model.ObjectKey{ID: id, Version: version}
		if _, ok := seen[key]; ok {
			return nil
		}
		seen[key] = struct{}{}
		obj, err := fetchObject(id, version)
		if err != nil {
			return err
		}
		doc.Objects[id.Hex()] = objectStateOf(obj)
		return nil
	}

	for _, in := range append(append([]model.Input{}, hb.Tx.GasPayment...), hb.Tx.Inputs...) {
		switch in.Kind {
		case model.InputShared:
			version := in.InitialSharedVersion
			if actual, ok := effects.SharedObjectInputVersions[in.ObjectID]; ok {
				version = actual
			}
			if err := addObject(in.ObjectID, version); err != nil {
				return nil, err
			}
		case model.InputOwned:
			if err := addObject(in.ObjectID, in.Version); err != nil {
				return nil, err
			}
		}
	}
	for _, ref := range effects.UnchangedLoadedRuntimeObjects {
		if err := addObject(ref.ID, ref.Version); err != nil {
			return nil, err
		}
	}

	for originalID, pkg := range hb.Packages {
		doc.Packages[originalID.Hex()] = packageStateOf(pkg)
	}

	for _, t := range touched {
		doc.DynamicChildren[dynamicChildKey(t.Parent, t.KeyType, t.KeyBytes)] = objectStateOf(t.Object)
	}

	return doc, nil
}
