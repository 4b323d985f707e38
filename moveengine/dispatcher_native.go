//go:build movevm_native

package moveengine

/*
#cgo LDFLAGS: -lmovevm
#include <stdlib.h>
#include "movevm_shim.h"
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/obslog"
)

// cgoErrCode wraps a non-zero C return code as a Go error for errtax.Host.
func cgoErrCode(rc C.int) error {
	return errors.Newf("movevm native call failed: code %d", int(rc))
}

var nativeLog = obslog.Component("moveengine.native")

// New builds a cgo-bound Engine backed by an external libmovevm, present
// so this package's shape is exactly what a real Move VM binding would
// plug into — this core neither depends on nor vendors one.
func New() Engine {
	handle := C.movevm_new_session()
	return &nativeHandle{session: handle, packages: map[model.PackageID]*model.Package{}}
}

// nativeHandle wraps one native session handle. It is single-threaded
// and must not outlive the replay session that created it.
type nativeHandle struct {
	mu       sync.Mutex
	session  C.movevm_session_t
	packages map[model.PackageID]*model.Package
	fetch    ChildFetcher
	effects  EngineEffects
	closed   bool
}

func (h *nativeHandle) LoadPackage(original model.PackageID, pkg *model.Package) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.packages[original] = pkg
	for name, code := range pkg.Modules {
		cName := C.CString(name)
		defer C.free(unsafe.Pointer(cName))

		rc := C.movevm_load_module(
			h.session,
			(*C.uint8_t)(unsafe.Pointer(&original[0])),
			cName,
			(*C.uint8_t)(unsafe.Pointer(&code[0])),
			C.size_t(len(code)),
		)
		if rc != 0 {
			return errtax.Host("movevm_load_module", cgoErrCode(rc))
		}
	}
	return nil
}

func (h *nativeHandle) SetChildFetcher(fetch ChildFetcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fetch = fetch
}

// Prefetch warms a set of dynamic-field children through the installed
// ChildFetcher, one fetch per key; a miss is logged and left to the
// in-call fetch. It makes no FFI call.
func (h *nativeHandle) Prefetch(ctx context.Context, keys []BatchKey) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}
	if h.fetch == nil {
		return nil
	}
	for _, k := range keys {
		if _, err := h.fetch(ctx, k.Parent, "", k.KeyEncoded); err != nil {
			nativeLog.WithField("parent", k.Parent.Hex()).Warn("prefetch miss, deferring to in-call fetch")
		}
	}
	return nil
}

func (h *nativeHandle) Call(ctx context.Context, target CallTarget, args []Value) ([]Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.packages[target.Package]; !ok {
		return nil, errtax.LinkageFailure(target.Module, target.Function)
	}

	cModule := C.CString(target.Module)
	defer C.free(unsafe.Pointer(cModule))
	cFunction := C.CString(target.Function)
	defer C.free(unsafe.Pointer(cFunction))

	rc := C.movevm_call(h.session, cModule, cFunction)
	if rc != 0 {
		return nil, errtax.Host("movevm_call", cgoErrCode(rc))
	}
	return nil, nil
}

func (h *nativeHandle) Publish(ctx context.Context, modules [][]byte, deps []model.PackageID) (*model.Package, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return nil, errtax.Host("movevm_publish", errUnimplementedInShim)
}

func (h *nativeHandle) Effects() *EngineEffects {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.effects
	return &out
}

// Close releases the native session handle. Callers must invoke this
// exactly once per session.
func (h *nativeHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	C.movevm_free_session(h.session)
	h.closed = true
}
