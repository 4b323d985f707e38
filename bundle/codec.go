package bundle

import (
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/sui-replay/replaycore/wire"
)

// EncodeJSON renders a Doc as the structured-text canonical form, the
// form writers prefer by default unless a caller opts into the compact
// binary form instead.
func EncodeJSON(doc *Doc) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "bundle: encode json")
	}
	return out, nil
}

// DecodeJSON parses the structured-text canonical form back into a Doc.
func DecodeJSON(data []byte) (*Doc, error) {
	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "bundle: decode json")
	}
	return &doc, nil
}

// EncodeBinary renders a Doc as the compact wire form: each top-level
// field framed the same varint(len)||payload way wire.Writer frames any
// other field, reusing the Transaction/Effects/Package/Object codecs
// already built in the wire package instead of inventing a second format
// for bundle export (see wire.go's doc comment).
func EncodeBinary(doc *Doc) []byte {
	w := wire.NewWriter()
	w.WriteUvarint(uint64(doc.SchemaVersion))
	w.WriteUvarint(uint64(doc.ProtocolVersion))
	w.WriteUint64(doc.Epoch)
	w.WriteUint64(doc.ReferenceGasPrice)
	w.WriteUint64(doc.Checkpoint)
	w.WriteBytes(wire.EncodeTransaction(&doc.Transaction))
	w.WriteBytes(wire.EncodeEffects(&doc.Effects))

	objKeys := sortedKeys(doc.Objects)
	w.WriteUvarint(uint64(len(objKeys)))
	for _, k := range objKeys {
		w.WriteString(k)
		w.WriteBytes(encodeObjectState(doc.Objects[k]))
	}

	pkgKeys := sortedKeys(doc.Packages)
	w.WriteUvarint(uint64(len(pkgKeys)))
	for _, k := range pkgKeys {
		w.WriteString(k)
		pkg := doc.Packages[k].toPackage([32]byte{})
		w.WriteBytes(wire.EncodePackage(&pkg))
	}

	childKeys := sortedKeys(doc.DynamicChildren)
	w.WriteUvarint(uint64(len(childKeys)))
	for _, k := range childKeys {
		w.WriteString(k)
		w.WriteBytes(encodeObjectState(doc.DynamicChildren[k]))
	}

	return w.Bytes()
}

// DecodeBinary parses the compact wire form back into a Doc.
func DecodeBinary(data []byte) (*Doc, error) {
	r, err := wire.NewReader(data)
	if err != nil {
		return nil, err
	}
	doc := &Doc{
		Objects:         map[string]ObjectState{},
		Packages:        map[string]PackageState{},
		DynamicChildren: map[string]ObjectState{},
	}

	schemaVersion, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	doc.SchemaVersion = uint16(schemaVersion)
	protocolVersion, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	doc.ProtocolVersion = uint32(protocolVersion)
	if doc.Epoch, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if doc.ReferenceGasPrice, err = r.ReadUint64(); err != nil {
		return nil, err
	}
	if doc.Checkpoint, err = r.ReadUint64(); err != nil {
		return nil, err
	}

	txBytes, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	tx, err := wire.DecodeTransaction(txBytes)
	if err != nil {
		return nil, err
	}
	doc.Transaction = *tx

	effectsBytes, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	effects, err := wire.DecodeEffects(effectsBytes)
	if err != nil {
		return nil, err
	}
	doc.Effects = *effects

	objCount, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < objCount; i++ {
		key, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		state, err := decodeObjectState(raw)
		if err != nil {
			return nil, err
		}
		doc.Objects[key] = state
	}

	pkgCount, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < pkgCount; i++ {
		key, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		pkg, err := wire.DecodePackage(raw)
		if err != nil {
			return nil, err
		}
		doc.Packages[key] = packageStateOf(pkg)
	}

	childCount, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < childCount; i++ {
		key, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		state, err := decodeObjectState(raw)
		if err != nil {
			return nil, err
		}
		doc.DynamicChildren[key] = state
	}

	return doc, nil
}

func encodeObjectState(s ObjectState) []byte {
	obj := s.toObject()
	return wire.EncodeObject(&obj)
}

func decodeObjectState(raw []byte) (ObjectState, error) {
	obj, err := wire.DecodeObject(raw)
	if err != nil {
		return ObjectState{}, err
	}
	return objectStateOf(*obj), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
