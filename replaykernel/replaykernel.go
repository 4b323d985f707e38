// Package replaykernel executes a hydrated bundle's PTB against a
// moveengine.Engine and produces local effects: one single-use,
// single-threaded Kernel per replay, walking commands through an
// explicit per-command state machine.
package replaykernel

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/moveengine"
	"github.com/sui-replay/replaycore/obslog"
	"github.com/sui-replay/replaycore/stateprovider"
)

var log = obslog.Component("replaykernel")

// ErrLinkageFailure is the fatal, never-recovered error raised when a
// module/function is not found after the linkage resolver has already
// run. Test suites assert this is never raised.
var ErrLinkageFailure = errtax.ErrLinkageFailure

// commandState is the per-command execution state machine.
type commandState int

const (
	statePlanned commandState = iota
	stateArgumentsResolved
	stateExecuting
	stateDone
	stateAborted
)

// DataGapKind names why a bundle is not meaningful to classify as a clean
// Pass/Fail. hydrate attaches these when the SynthesizeMissing policy let
// it continue past missing data (no placeholder is installed); compare
// surfaces them instead of scoring a coincidental effects match.
type DataGapKind string

const (
	DataGapMissingSharedInput    DataGapKind = "MissingSharedInput"
	DataGapMissingDynamicChild   DataGapKind = "MissingDynamicChild"
	DataGapMissingPackageVersion DataGapKind = "MissingPackageVersion"
	DataGapSyntheticSubstitution DataGapKind = "SyntheticSubstitution"
)

// DataGapRecord is one piece of missing data the hydration planner
// recorded, instead of failing, under the SynthesizeMissing policy.
type DataGapRecord struct {
	Kind   DataGapKind
	Detail string
}

// HydratedBundle is the hydration planner's output; replaykernel only
// reads it. Effects is the recorded on-chain outcome fetched during
// planning, carried alongside so the comparator never has to refetch it.
// DataGaps is populated by hydrate when a synthesis policy papered over
// missing data.
type HydratedBundle struct {
	Tx             *model.Transaction
	Effects        *model.Effects
	Packages       map[model.PackageID]*model.Package
	ProtocolParams model.ProtocolParams
	Provider       stateprovider.Provider
	DataGaps       []DataGapRecord
}

// Kernel executes one hydrated bundle. A Kernel instance is single-use
// and single-threaded; concurrency happens across kernels, never inside
// one.
type Kernel struct {
	id      string
	engine  moveengine.Engine
	session *session
}

// New builds a kernel around an engine. Callers typically pass
// moveengine.New() (the default reference engine) or a native-build
// engine; the kernel never constructs one itself.
func New(engine moveengine.Engine) *Kernel {
	return &Kernel{id: uuid.NewString(), engine: engine}
}

// SessionID identifies this replay session in logs and diagnostics.
func (k *Kernel) SessionID() string { return k.id }

// Run executes the bundle's PTB and returns the locally-produced
// effects: packages installed under original ids, commands executed in
// declared order, then a finalize pass that folds the engine's and the
// session's bookkeeping into one Effects value.
func (k *Kernel) Run(ctx context.Context, bundle *HydratedBundle) (*model.Effects, error) {
	k.session = newSession(bundle)

	for original, pkg := range bundle.Packages {
		if err := k.engine.LoadPackage(original, pkg); err != nil {
			return nil, errors.Wrapf(err, "load package %s", original.Hex())
		}
	}
	k.engine.SetChildFetcher(func(ctx context.Context, parent model.ObjectID, keyType model.TypeTag, keyBytes []byte) (model.Object, error) {
		child, err := bundle.Provider.GetDynamicFieldChild(ctx, parent, keyType, keyBytes)
		if err == nil {
			k.session.recordChildTouch(ChildTouch{Parent: parent, KeyType: keyType, KeyBytes: keyBytes, Object: child})
		}
		return child, err
	})

	var abortStatus *model.Status
	for i, cmd := range bundle.Tx.Commands {
		// Cancellation is checked between commands, never mid-command: the
		// VM is synchronous inside a command and partial effects are
		// discarded wholesale by returning before finalize.
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, errtax.ErrTimeout
			}
			return nil, errtax.ErrCancelled
		}

		status, state, err := k.step(ctx, i, cmd)
		if err != nil {
			return nil, err
		}
		if state == stateAborted {
			log.WithField("session", k.id).WithField("command", i).WithField("code", status.Code).Debug("command aborted, halting PTB")
			abortStatus = status
			break
		}
	}

	return k.finalize(abortStatus), nil
}

// TouchedChildren returns every dynamic-field child the just-completed
// run actually fetched, so bundle export captures exactly what the
// replay needed rather than a superset. Valid only after Run returns.
func (k *Kernel) TouchedChildren() []ChildTouch {
	if k.session == nil {
		return nil
	}
	return k.session.touchedChildren()
}

// step executes one command through Planned -> ArgumentsResolved ->
// Executing -> Done|Aborted.
func (k *Kernel) step(ctx context.Context, idx int, cmd model.Command) (*model.Status, commandState, error) {
	state := statePlanned

	resolved, err := k.session.resolveArguments(cmd)
	if err != nil {
		return nil, stateAborted, err
	}
	state = stateArgumentsResolved

	state = stateExecuting
	results, abortStatus, err := k.dispatch(ctx, cmd, resolved)
	if err != nil {
		return nil, stateAborted, err
	}
	if abortStatus != nil {
		state = stateAborted
		return abortStatus, state, nil
	}

	k.session.recordResults(idx, results)
	state = stateDone
	return nil, state, nil
}

func (k *Kernel) finalize(abortStatus *model.Status) *model.Effects {
	effects := &model.Effects{
		SharedObjectInputVersions: k.session.sharedObjectInputVersions(),
	}
	if abortStatus != nil {
		effects.Status = *abortStatus
	} else {
		effects.Status = model.Status{Kind: model.StatusSuccess}
	}

	engineEffects := k.engine.Effects()
	effects.Created = engineEffects.Created
	effects.Mutated = append(engineEffects.Mutated, k.session.nativeMutations()...)
	effects.Deleted = engineEffects.Deleted
	effects.UnchangedLoadedRuntimeObjects = k.session.unchangedLoadedRuntimeObjects()
	return effects
}
