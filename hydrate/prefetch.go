package hydrate

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sui-replay/replaycore/analyze"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/stateprovider"
	"github.com/sui-replay/replaycore/wire"
)

// batch groups derived child-object lookups by parent for one FFI
// round-trip (see moveengine.BatchKey).
type batch struct {
	parent  model.ObjectID
	keyType model.TypeTag
	keyHex  []byte
}

// deriveChildKeyBytes computes the canonical key encoding a dynamic field
// access site uses to address its child. The real chain computes this via
// a domain-separated hash of (parent, key type, key value); lacking the
// real Move runtime this core never has the concrete key *value* at
// analysis time (only the key *type*, from the sink-propagation walk), so
// the derived bytes are a stable placeholder seeded from the sink's
// coordinates — sufficient to make the same sink always resolve to the
// same prefetch key across runs, not to predict the chain's real child
// id.
func deriveChildKeyBytes(module, function string, depth int, keyType model.TypeTag) []byte {
	seed := module + "::" + function + "#" + string(rune('0'+depth)) + "::" + string(keyType)
	h := wire.CacheKeyHash([]byte(seed))
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(h >> (8 * uint(i)))
	}
	return out
}

// predictivePrefetch walks, for every MoveCall command, the target
// function's call graph for dynamic-field-access sinks (via
// analyze.PredictDynamicFieldTouches, bounded to policy.PrefetchDepth),
// derives each sink's child key, and asks the provider to prefetch it.
// Failures here are soft — missing predictive children are not fatal,
// since the kernel's demand-driven child fetcher still serves them on
// first VM read.
func predictivePrefetch(ctx context.Context, tx *model.Transaction, packages map[model.PackageID]*model.Package, policy SourcePolicy, provider stateprovider.Provider) []batch {
	var batches []batch
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, cmd := range tx.Commands {
		if cmd.Kind != model.CmdMoveCall {
			continue
		}
		pkg, ok := packages[cmd.Target.Package]
		if !ok {
			continue
		}
		cmd := cmd
		g.Go(func() error {
			an := analyze.New(pkg)
			sinks, err := an.PredictDynamicFieldTouches(cmd.Target.Module, cmd.Target.Function, policy.PrefetchDepth)
			if err != nil {
				return nil // best-effort: analysis failure never aborts hydration
			}
			for _, sink := range sinks {
				keyBytes := deriveChildKeyBytes(sink.Module, sink.Function, sink.Depth, sink.KeyType)
				parent := cmd.Target.Package // best-effort parent guess absent a real key value
				if _, err := provider.GetDynamicFieldChild(gctx, parent, sink.KeyType, keyBytes); err == nil {
					mu.Lock()
					batches = append(batches, batch{parent: parent, keyType: sink.KeyType, keyHex: keyBytes})
					mu.Unlock()
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return batches
}
