package bundle

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/stateprovider"
)

// ErrUnknownSchemaVersion is returned by Import when a Doc's SchemaVersion
// is higher than CurrentSchemaVersion: a reader must reject a schema
// version it doesn't understand rather than guess at the shape of fields
// it has never seen.
var ErrUnknownSchemaVersion = errors.New("bundle: unknown schema version")

// Import decodes a Doc into a FileProvider by reconstructing every
// keyspace stateprovider.Provider answers purely from the doc's maps —
// no network reachable from the result, so a replay driven by the
// returned provider reproduces the original exactly.
func Import(doc *Doc) (*stateprovider.FileProvider, error) {
	if doc.SchemaVersion > CurrentSchemaVersion {
		return nil, errors.Wrapf(ErrUnknownSchemaVersion, "got %d, know up to %d", doc.SchemaVersion, CurrentSchemaVersion)
	}

	objects := make(map[model.ObjectKey]model.Object, len(doc.Objects))
	for idHex, state := range doc.Objects {
		id, err := model.ParseAddress(idHex)
		if err != nil {
			return nil, errors.Wrapf(err, "object id %q", idHex)
		}
		objects[model.ObjectKey{ID: id, Version: state.Version}] = state.toObject()
	}

	packages := make(map[stateprovider.PackageKey]model.Package, len(doc.Packages))
	for idHex, state := range doc.Packages {
		id, err := model.ParseAddress(idHex)
		if err != nil {
			return nil, errors.Wrapf(err, "package id %q", idHex)
		}
		packages[stateprovider.PackageKey{OriginalID: id, Checkpoint: doc.Checkpoint}] = state.toPackage(id)
	}

	transactions := map[model.Digest]model.Transaction{doc.Transaction.Digest: doc.Transaction}
	effects := map[model.Digest]model.Effects{doc.Transaction.Digest: doc.Effects}

	dynamicChildren := make(map[stateprovider.DynamicChildKey]model.Object, len(doc.DynamicChildren))
	for key, state := range doc.DynamicChildren {
		parent, keyType, keyHex, err := splitDynamicChildKey(key)
		if err != nil {
			return nil, err
		}
		dynamicChildren[stateprovider.DynamicChildKey{Parent: parent, KeyType: keyType, KeyHex: keyHex}] = state.toObject()
	}

	return stateprovider.NewFileProvider(objects, packages, transactions, effects, dynamicChildren), nil
}

func splitDynamicChildKey(key string) (model.ObjectID, model.TypeTag, string, error) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return model.ObjectID{}, "", "", errors.Newf("bundle: malformed dynamic child key %q", key)
	}
	parent, err := model.ParseAddress(parts[0])
	if err != nil {
		return model.ObjectID{}, "", "", errors.Wrapf(err, "dynamic child parent %q", parts[0])
	}
	return parent, model.TypeTag(parts[1]), parts[2], nil
}
