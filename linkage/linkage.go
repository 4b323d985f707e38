// Package linkage resolves a transaction's named package ids into the
// full set of Package records the VM must load, relocated so internal
// self-calls resolve by original id.
package linkage

import (
	"context"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/stateprovider"
)

// seenKey is the (original_id, storage_id) pair the BFS uses for cycle
// detection: discovery can revisit a node via different edges, but a
// given (original, storage) resolution is walked once.
type seenKey [2]model.Address

// Closure is the resolved, relocated package set a replay needs: every
// entry is installed under its OriginalID, never its StorageID — the
// kernel's module cache consumes this side-table directly. Keying the
// hot path by storage id would break self-calls inside an upgraded
// package, whose bytecode names the original id as receiver.
type Closure struct {
	ByOriginalID map[model.PackageID]*model.Package
	// Order preserves BFS discovery order, used only for diagnostics.
	Order []model.PackageID
}

// Resolve walks the linkage graph breadth-first from the transaction's
// seed package ids, pinning every dependency to the storage version
// active at the given checkpoint.
func Resolve(ctx context.Context, seedOriginalIDs []model.PackageID, checkpoint uint64, provider stateprovider.Provider) (*Closure, error) {
	closure := &Closure{ByOriginalID: map[model.PackageID]*model.Package{}}
	seen := map[seenKey]struct{}{}
	queue := append([]model.PackageID(nil), seedOriginalIDs...)

	for len(queue) > 0 {
		originalID := queue[0]
		queue = queue[1:]

		if _, already := closure.ByOriginalID[originalID]; already {
			continue
		}

		pkg, err := provider.GetPackageForCheckpoint(ctx, originalID, checkpoint)
		if err != nil {
			return nil, err
		}

		key := seenKey{originalID, pkg.StorageID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		// Relocate: the package is always addressed by original id from
		// here on, matching step 5 ("install modules under the original
		// id, not the storage id").
		relocated := pkg
		closure.ByOriginalID[originalID] = &relocated
		closure.Order = append(closure.Order, originalID)

		for depOriginalID := range pkg.Linkage {
			if _, already := closure.ByOriginalID[depOriginalID]; !already {
				queue = append(queue, depOriginalID)
			}
		}
	}

	for _, id := range seedOriginalIDs {
		if _, ok := closure.ByOriginalID[id]; !ok {
			return nil, errtax.MissingPackage(id)
		}
	}
	return closure, nil
}
