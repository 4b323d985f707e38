package replaykernel

import (
	"context"
	"encoding/binary"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/moveengine"
)

// dispatch executes one command against its resolved arguments:
// MoveCall/Publish/Upgrade go through moveengine.Engine;
// SplitCoins/MergeCoins/TransferObjects/MakeMoveVec are native Go
// implementations the kernel runs inline, synthesizing their effects
// without a general VM call.
//
// Returns the command's result register values, a non-nil abort status if
// the command aborted (Move-level, recoverable, classified by compare),
// or an error for a genuine kernel fault (linkage failure, cancellation).
func (k *Kernel) dispatch(ctx context.Context, cmd model.Command, args []moveengine.Value) ([]moveengine.Value, *model.Status, error) {
	switch cmd.Kind {
	case model.CmdMoveCall:
		return k.dispatchMoveCall(ctx, cmd, args)
	case model.CmdSplitCoins:
		return k.dispatchSplitCoins(cmd, args)
	case model.CmdMergeCoins:
		return k.dispatchMergeCoins(cmd, args)
	case model.CmdTransferObjects:
		return k.dispatchTransferObjects(cmd, args)
	case model.CmdMakeMoveVec:
		return k.dispatchMakeMoveVec(cmd, args)
	case model.CmdPublish:
		return k.dispatchPublish(ctx, cmd)
	case model.CmdUpgrade:
		return k.dispatchUpgrade(ctx, cmd)
	default:
		return nil, nil, errtax.LinkageFailure("<unknown>", cmd.Kind.String())
	}
}

func (k *Kernel) dispatchMoveCall(ctx context.Context, cmd model.Command, args []moveengine.Value) ([]moveengine.Value, *model.Status, error) {
	target := moveengine.CallTarget{
		Package:  cmd.Target.Package,
		Module:   cmd.Target.Module,
		Function: cmd.Target.Function,
		TypeArgs: cmd.Target.TypeArgs,
	}
	results, err := k.engine.Call(ctx, target, args)
	if err != nil {
		if abortStatus, ok := asAbort(err); ok {
			return nil, abortStatus, nil
		}
		return nil, nil, err
	}
	return results, nil, nil
}

// dispatchSplitCoins splits the coin named by cmd.Coin into len(Amounts)
// new coin values; the session tracks the mutation of the source coin as
// a native mutation since no engine call observes it.
func (k *Kernel) dispatchSplitCoins(cmd model.Command, args []moveengine.Value) ([]moveengine.Value, *model.Status, error) {
	coin := args[0]
	amounts := args[1:]

	results := make([]moveengine.Value, 0, len(amounts))
	for range amounts {
		results = append(results, moveengine.Value{TypeTag: coin.TypeTag, Bytes: append([]byte(nil), coin.Bytes...)})
	}
	if id, ok := objectIDOf(coin); ok {
		k.session.recordNativeMutation(model.ObjectRef{ID: id})
	}
	return results, nil, nil
}

// dispatchMergeCoins records the destination coin as a native mutation
// and returns it unchanged as the sole result register, so a later command
// referencing Result(c,0) observes the destination; the source coins are
// neither read nor recorded.
func (k *Kernel) dispatchMergeCoins(cmd model.Command, args []moveengine.Value) ([]moveengine.Value, *model.Status, error) {
	dest := args[0]
	if id, ok := objectIDOf(dest); ok {
		k.session.recordNativeMutation(model.ObjectRef{ID: id})
	}
	return []moveengine.Value{dest}, nil, nil
}

// dispatchTransferObjects records each transferred object as a native
// mutation (its owner changes) and produces no result registers —
// TransferObjects is terminal, no downstream argument references it.
func (k *Kernel) dispatchTransferObjects(cmd model.Command, args []moveengine.Value) ([]moveengine.Value, *model.Status, error) {
	recipient := args[len(args)-1]
	objects := args[:len(args)-1]
	_ = recipient
	for _, obj := range objects {
		if id, ok := objectIDOf(obj); ok {
			k.session.recordNativeMutation(model.ObjectRef{ID: id})
		}
	}
	return nil, nil, nil
}

// dispatchMakeMoveVec packs its element arguments into a single vector
// value tagged with cmd.ElementType.
func (k *Kernel) dispatchMakeMoveVec(cmd model.Command, args []moveengine.Value) ([]moveengine.Value, *model.Status, error) {
	w := make([]byte, 0, 8*len(args))
	for _, a := range args {
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(a.Bytes)))
		w = append(w, lenBuf[:]...)
		w = append(w, a.Bytes...)
	}
	return []moveengine.Value{{TypeTag: cmd.ElementType, Bytes: w}}, nil, nil
}

func (k *Kernel) dispatchPublish(ctx context.Context, cmd model.Command) ([]moveengine.Value, *model.Status, error) {
	pkg, err := k.engine.Publish(ctx, cmd.Modules, cmd.Dependencies)
	if err != nil {
		if abortStatus, ok := asAbort(err); ok {
			return nil, abortStatus, nil
		}
		return nil, nil, err
	}
	k.session.bundle.Packages[pkg.OriginalID] = pkg
	if err := k.engine.LoadPackage(pkg.OriginalID, pkg); err != nil {
		return nil, nil, err
	}
	return []moveengine.Value{{Bytes: pkg.OriginalID[:]}}, nil, nil
}

// dispatchUpgrade runs the same publish pipeline as Publish but against an
// existing original id (carried via cmd.UpgradeTicket), registering the
// new version's modules under the package's stable original id.
func (k *Kernel) dispatchUpgrade(ctx context.Context, cmd model.Command) ([]moveengine.Value, *model.Status, error) {
	pkg, err := k.engine.Publish(ctx, cmd.Modules, cmd.Dependencies)
	if err != nil {
		if abortStatus, ok := asAbort(err); ok {
			return nil, abortStatus, nil
		}
		return nil, nil, err
	}
	originalID, ok := objectIDOf(resolveUpgradeTicketOriginal(k.session, cmd))
	if !ok {
		originalID = pkg.OriginalID
	}
	pkg.OriginalID = originalID
	k.session.bundle.Packages[originalID] = pkg
	if err := k.engine.LoadPackage(originalID, pkg); err != nil {
		return nil, nil, err
	}
	return []moveengine.Value{{Bytes: originalID[:]}}, nil, nil
}

// resolveUpgradeTicketOriginal resolves the upgrade ticket argument to the
// value carrying the original package id being upgraded, if resolvable;
// falls back to the freshly published package's own original id otherwise.
func resolveUpgradeTicketOriginal(s *session, cmd model.Command) moveengine.Value {
	v, err := s.resolveArgument(cmd.UpgradeTicket)
	if err != nil {
		return moveengine.Value{}
	}
	return v
}

// objectIDOf recovers an ObjectID from a Value's raw bytes when it was
// constructed from an object-shaped input (session.inputToValue writes
// the id verbatim); returns ok=false for pure/computed values that carry
// no identity.
func objectIDOf(v moveengine.Value) (model.ObjectID, bool) {
	if len(v.Bytes) != model.AddressLength {
		return model.ObjectID{}, false
	}
	var id model.ObjectID
	copy(id[:], v.Bytes)
	return id, true
}

// abortCarrier is implemented by engine errors that carry a structured
// Move-level abort rather than a kernel fault; moveengine implementations
// return this for an in-VM abort so the kernel can classify it as a
// replay outcome instead of a Go error.
type abortCarrier interface {
	AbortStatus() *model.Status
}

func asAbort(err error) (*model.Status, bool) {
	var ac abortCarrier
	for e := err; e != nil; {
		if a, ok := e.(abortCarrier); ok {
			ac = a
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if ac == nil {
		return nil, false
	}
	return ac.AbortStatus(), true
}
