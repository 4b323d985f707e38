// Package hydrate turns a transaction digest into a complete,
// replay-ready HydratedBundle — pinning every input object at its exact
// version, resolving the package closure, and optionally running
// predictive dynamic-field prefetch.
package hydrate

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/linkage"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/obslog"
	"github.com/sui-replay/replaycore/replaykernel"
	"github.com/sui-replay/replaycore/stateprovider"
)

var log = obslog.Component("hydrate")

// Plan runs the full hydration pipeline, producing a HydratedBundle the
// replay kernel can run without further network access (beyond the
// kernel's own lazy child-object fetches, which the provider still
// answers). epochs resolves the protocol parameter set in force at the
// transaction's checkpoint.
func Plan(ctx context.Context, digest model.Digest, checkpoint uint64, policy SourcePolicy, epochs EpochTable, provider stateprovider.Provider) (*replaykernel.HydratedBundle, error) {
	// Step 1: fetch (Tx, Effects).
	tx, err := provider.GetTransaction(ctx, digest)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch transaction %s", digest.Hex())
	}
	effects, err := provider.GetEffects(ctx, digest)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch effects %s", digest.Hex())
	}

	bundle := &replaykernel.HydratedBundle{
		Tx:             &tx,
		Effects:        &effects,
		Packages:       map[model.PackageID]*model.Package{},
		ProtocolParams: epochs.Resolve(checkpoint),
		Provider:       provider,
	}

	// Step 2: pin declared inputs (shared and imm/owned).
	for _, in := range append(append([]model.Input{}, tx.GasPayment...), tx.Inputs...) {
		switch in.Kind {
		case model.InputShared:
			version := in.InitialSharedVersion
			if actual, ok := effects.SharedObjectInputVersions[in.ObjectID]; ok {
				version = actual
			}
			if _, err := provider.GetObject(ctx, in.ObjectID, version); err != nil {
				if !recordDataGapIfSynthesizable(bundle, policy, replaykernel.DataGapMissingSharedInput, in.ObjectID, err) {
					return nil, errtax.MissingInput(in.ObjectID, version)
				}
			}
		case model.InputOwned:
			if _, err := provider.GetObject(ctx, in.ObjectID, in.Version); err != nil {
				if !recordDataGapIfSynthesizable(bundle, policy, replaykernel.DataGapSyntheticSubstitution, in.ObjectID, err) {
					return nil, errtax.MissingInput(in.ObjectID, in.Version)
				}
			}
		case model.InputPure:
			// No object identity to pin.
		}
	}

	// Step 3: ground-truth runtime-read objects.
	for _, ref := range effects.UnchangedLoadedRuntimeObjects {
		if _, err := provider.GetObject(ctx, ref.ID, ref.Version); err != nil {
			if !recordDataGapIfSynthesizable(bundle, policy, replaykernel.DataGapSyntheticSubstitution, ref.ID, err) {
				return nil, errtax.MissingInput(ref.ID, ref.Version)
			}
		}
	}

	// Step 5 (resolved before step 4 here: predictive prefetch needs the
	// package closure already loaded so analyze has bytecode to walk).
	seeds := seedPackageIDs(&tx)
	closure, err := linkage.Resolve(ctx, seeds, checkpoint, provider)
	if err != nil {
		if !recordPackageDataGap(bundle, policy, err) {
			return nil, err
		}
	}
	if closure != nil {
		bundle.Packages = closure.ByOriginalID
	}

	// Step 4: predictive prefetch (optional, default on).
	if policy.PredictivePrefetch && len(bundle.Packages) > 0 {
		batches := predictivePrefetch(ctx, &tx, bundle.Packages, policy, provider)
		log.WithField("derived_children", len(batches)).Debug("predictive prefetch complete")
	}

	// The session object store and the lazy child-fetch callback are both
	// backed directly by Provider — replaykernel registers the
	// child-fetch callback itself, so there is nothing further to
	// populate here; every GetObject call above already warmed the
	// provider's own cache.

	return bundle, nil
}

// seedPackageIDs gathers the transaction's named package ids from command
// targets and publish/upgrade dependency lists.
func seedPackageIDs(tx *model.Transaction) []model.PackageID {
	seen := map[model.PackageID]struct{}{}
	var out []model.PackageID
	add := func(id model.PackageID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, cmd := range tx.Commands {
		switch cmd.Kind {
		case model.CmdMoveCall:
			add(cmd.Target.Package)
		case model.CmdPublish, model.CmdUpgrade:
			for _, dep := range cmd.Dependencies {
				add(dep)
			}
		}
	}
	return out
}

// recordDataGapIfSynthesizable returns true (and records a DataGap) when
// policy.SynthesizeMissing is set; otherwise returns false so the caller
// surfaces the original MissingInput error — a missing input is only
// fatal when no synthesis policy is active.
func recordDataGapIfSynthesizable(bundle *replaykernel.HydratedBundle, policy SourcePolicy, kind replaykernel.DataGapKind, id model.ObjectID, cause error) bool {
	if !policy.SynthesizeMissing {
		return false
	}
	bundle.DataGaps = append(bundle.DataGaps, replaykernel.DataGapRecord{
		Kind:   kind,
		Detail: id.Hex() + ": " + cause.Error(),
	})
	return true
}

// recordPackageDataGap returns true (and records a DataGap) when policy
// synthesis is active and the package-closure error is a missing-package
// class failure; false otherwise, surfacing the resolver's error as-is.
func recordPackageDataGap(bundle *replaykernel.HydratedBundle, policy SourcePolicy, cause error) bool {
	if !policy.SynthesizeMissing || !errors.Is(cause, errtax.ErrMissingPackage) {
		return false
	}
	bundle.DataGaps = append(bundle.DataGaps, replaykernel.DataGapRecord{
		Kind:   replaykernel.DataGapMissingPackageVersion,
		Detail: cause.Error(),
	})
	return true
}
