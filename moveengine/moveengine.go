// Package moveengine is the boundary between the replay kernel and the
// Move VM. The VM's internals are out of scope here — only what's fed
// into it and what comes back out — so this package defines only the
// narrow Engine interface and two build-tag-selected implementations,
// one wrapping a native FFI binding and one a pure-Go reference engine
// that returns caller-seeded results.
package moveengine

import (
	"context"

	"github.com/sui-replay/replaycore/model"
)

// Value is an opaque argument or return value passed across the VM
// boundary; the kernel never inspects its bytes, only routes it.
type Value struct {
	TypeTag model.TypeTag
	Bytes   []byte
}

// CallTarget names the function a MoveCall command invokes.
type CallTarget struct {
	Package  model.PackageID
	Module   string
	Function string
	TypeArgs []model.TypeTag
}

// EngineEffects is what the engine has accumulated across the calls made
// on it: the kernel folds this into the
// transaction's overall model.Effects at finalization.
type EngineEffects struct {
	Created []model.ObjectRef
	Mutated []model.ObjectRef
	Deleted []model.ObjectRef
}

// ChildFetcher is the kernel's lazy dynamic-field-child fetch hook,
// installed on the engine as a single optional callback the engine
// invokes synchronously mid-execution.
type ChildFetcher func(ctx context.Context, parent model.ObjectID, keyType model.TypeTag, keyBytes []byte) (model.Object, error)

// Engine is the narrow boundary the replay kernel depends on. LoadPackage
// installs a package's modules under its original id (the relocation
// invariant enforced by the caller, linkage.Closure). Call invokes a
// function and returns its results. Publish runs the publish pipeline.
// Effects returns a copy of everything accumulated so far; reading it does
// not reset the engine's record.
type Engine interface {
	LoadPackage(original model.PackageID, pkg *model.Package) error
	Call(ctx context.Context, target CallTarget, args []Value) ([]Value, error)
	Publish(ctx context.Context, modules [][]byte, deps []model.PackageID) (*model.Package, error)
	Effects() *EngineEffects
	SetChildFetcher(fetch ChildFetcher)
}

// BatchKey names one prefetchable dynamic-field child, grouped by parent
// so a native engine can round-trip the whole batch across the FFI
// boundary in one call.
type BatchKey struct {
	Parent     model.ObjectID
	KeyEncoded []byte
}
