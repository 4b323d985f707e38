package model

// TypeTag names a Move type, e.g. "0x2::coin::Coin<0x2::sui::SUI>". It is
// kept as a string rather than a parsed structure: the core never needs to
// evaluate type relationships itself, only to carry and compare tags.
type TypeTag string

// Object is an immutable snapshot of on-chain object state at one version.
// (id, version, digest) uniquely identifies it; constructing a new Object
// for a later version never mutates an existing one.
type Object struct {
	ID         ObjectID
	Version    uint64
	Digest     Digest
	Owner      Owner
	Type       TypeTag
	Contents   []byte // canonical BCS-equivalent bytes, opaque to the core
	PreviousTx Digest
}

// Key returns the (id, version) pair that uniquely addresses this object
// state in the historical cache and state provider.
func (o *Object) Key() ObjectKey {
	return ObjectKey{ID: o.ID, Version: o.Version}
}

// ObjectKey is the cache/provider lookup key for a historical object state.
type ObjectKey struct {
	ID      ObjectID
	Version uint64
}
