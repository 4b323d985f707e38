//go:build !movevm_native

package moveengine

import (
	"context"
	"sync"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/obslog"
)

var log = obslog.Component("moveengine")

// New builds the default Engine: a pure-Go, dependency-free
// referenceEngine used by the test suite and by any caller that only
// needs the kernel's command-dispatch, hydration, and comparison machinery
// exercised. It does not interpret Move bytecode — it records calls and
// returns caller-seeded canned results.
func New() Engine {
	return &referenceEngine{
		packages:   map[model.PackageID]*model.Package{},
		results:    map[string][]Value{},
		aborts:     map[string]error{},
		childReads: map[string][]childRead{},
	}
}

// referenceEngine is the !movevm_native build's Engine. SeedResult lets a
// test pre-seed what Call should return for a given target, driving the
// engine from fixture state without an actual VM underneath it.
type referenceEngine struct {
	mu       sync.Mutex
	packages map[model.PackageID]*model.Package
	fetch    ChildFetcher
	effects  EngineEffects

	// results is keyed by "module::function" and consumed one call at a
	// time (FIFO); SeedResult appends.
	results map[string][]Value

	// aborts is keyed the same way as results; a seeded abort is returned
	// in place of a seeded result the next time that target is called,
	// letting tests exercise the kernel's abort-classification path
	// without a real VM.
	aborts map[string]error

	// childReads is keyed the same way; a seeded read makes every Call
	// to that target go through the installed ChildFetcher first, the way
	// a real VM reads a dynamic-field child mid-execution. A fetcher miss
	// surfaces as a Move-side abort, consistent with the chain.
	childReads map[string][]childRead
}

type childRead struct {
	parent   model.ObjectID
	keyType  model.TypeTag
	keyBytes []byte
}

// missingChildAbortCode is the abort code a dynamic-field read miss
// produces, mirroring the chain's borrow-on-absent-field failure.
const missingChildAbortCode = 1

// SeedResult queues a canned return value for the next Call to
// module::function. Test-only: production callers never seed results
// because there is no production caller of the reference engine — it
// exists for the kernel's own test suite and for callers who have
// explicitly opted out of a real VM.
func (e *referenceEngine) SeedResult(module, function string, values ...Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := module + "::" + function
	e.results[key] = append(e.results[key], values...)
}

// SeedAbort queues an abort to be returned the next time module::function
// is called instead of any seeded result.
func (e *referenceEngine) SeedAbort(module, function string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aborts[module+"::"+function] = err
}

// SeedChildRead makes every Call to module::function read the given
// dynamic-field child through the installed ChildFetcher before
// returning, so tests can drive the kernel's lazy-fetch path and its
// miss-becomes-abort behavior without a real VM.
func (e *referenceEngine) SeedChildRead(module, function string, parent model.ObjectID, keyType model.TypeTag, keyBytes []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := module + "::" + function
	e.childReads[key] = append(e.childReads[key], childRead{parent: parent, keyType: keyType, keyBytes: keyBytes})
}

func (e *referenceEngine) LoadPackage(original model.PackageID, pkg *model.Package) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.packages[original] = pkg
	return nil
}

func (e *referenceEngine) SetChildFetcher(fetch ChildFetcher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fetch = fetch
}

func (e *referenceEngine) Call(ctx context.Context, target CallTarget, args []Value) ([]Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pkg, ok := e.packages[target.Package]
	if !ok {
		return nil, errtax.LinkageFailure(target.Module, target.Function)
	}
	if _, ok := pkg.Modules[target.Module]; !ok {
		return nil, errtax.LinkageFailure(target.Module, target.Function)
	}

	key := target.Module + "::" + target.Function
	if abortErr, ok := e.aborts[key]; ok {
		delete(e.aborts, key)
		return nil, abortErr
	}
	for _, read := range e.childReads[key] {
		if e.fetch == nil {
			return nil, Abort(missingChildAbortCode, key)
		}
		if _, err := e.fetch(ctx, read.parent, read.keyType, read.keyBytes); err != nil {
			return nil, Abort(missingChildAbortCode, key)
		}
	}
	queued := e.results[key]
	if len(queued) == 0 {
		log.WithField("target", key).Debug("reference engine call with no seeded result, returning empty")
		return nil, nil
	}
	e.results[key] = queued[1:]
	return []Value{queued[0]}, nil
}

func (e *referenceEngine) Publish(ctx context.Context, modules [][]byte, deps []model.PackageID) (*model.Package, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	moduleMap := map[string][]byte{}
	for i, code := range modules {
		moduleMap[syntheticModuleName(i)] = code
	}
	pkg := &model.Package{
		Modules:         moduleMap,
		Linkage:         map[model.PackageID]model.LinkageEntry{},
		TypeOriginTable: map[string]model.PackageID{},
	}
	for _, dep := range deps {
		pkg.Linkage[dep] = model.LinkageEntry{StorageID: dep, Version: 1}
	}
	return pkg, nil
}

func (e *referenceEngine) Effects() *EngineEffects {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.effects
	return &out
}

func syntheticModuleName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return "module_" + string(letters[i])
	}
	return "module_extra"
}
