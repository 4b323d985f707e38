package replaykernel

import (
	"strconv"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/moveengine"
)

// session is the kernel's private, single-threaded working state for one
// replay: the input register file, the per-command result registers, and
// bookkeeping for the effects the native commands produce directly
// without going through moveengine.Engine.
type session struct {
	bundle *HydratedBundle

	inputs  []moveengine.Value
	results [][]moveengine.Value

	nativeMuts []model.ObjectRef
	loaded     []model.ObjectRef
	sharedVers map[model.ObjectID]uint64
	touched    []ChildTouch
}

// ChildTouch records one successful lazy dynamic-field-child fetch made
// during a replay, so bundle export can capture exactly what the replay
// actually needed — not a superset guessed by predictive prefetch.
type ChildTouch struct {
	Parent   model.ObjectID
	KeyType  model.TypeTag
	KeyBytes []byte
	Object   model.Object
}

func newSession(bundle *HydratedBundle) *session {
	s := &session{
		bundle:     bundle,
		results:    make([][]moveengine.Value, len(bundle.Tx.Commands)),
		sharedVers: map[model.ObjectID]uint64{},
	}
	for _, in := range bundle.Tx.Inputs {
		s.inputs = append(s.inputs, inputToValue(in))
		if in.Kind == model.InputShared {
			s.sharedVers[in.ObjectID] = in.InitialSharedVersion
		}
		if in.Kind == model.InputOwned || in.Kind == model.InputShared {
			s.loaded = append(s.loaded, model.ObjectRef{ID: in.ObjectID, Version: in.Version, Digest: in.Digest})
		}
	}
	return s
}

func inputToValue(in model.Input) moveengine.Value {
	switch in.Kind {
	case model.InputPure:
		return moveengine.Value{Bytes: in.PureBytes}
	default:
		return moveengine.Value{Bytes: in.ObjectID[:]}
	}
}

// resolveArguments turns a command's Argument references into concrete
// moveengine.Value slices, reading either the input register file
// (InputRef(i)) or a prior command's result registers (Result(c, r)).
func (s *session) resolveArguments(cmd model.Command) ([]moveengine.Value, error) {
	var out []moveengine.Value
	for _, arg := range argumentsOf(cmd) {
		v, err := s.resolveArgument(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *session) resolveArgument(arg model.Argument) (moveengine.Value, error) {
	switch arg.Kind {
	case model.ArgInput:
		if arg.InputIndex < 0 || arg.InputIndex >= len(s.inputs) {
			return moveengine.Value{}, errtax.MissingInput(intStringer(arg.InputIndex), 0)
		}
		return s.inputs[arg.InputIndex], nil
	case model.ArgResult, model.ArgNestedResult:
		if arg.CommandIdx < 0 || arg.CommandIdx >= len(s.results) {
			return moveengine.Value{}, errtax.MissingInput(intStringer(arg.CommandIdx), 0)
		}
		regs := s.results[arg.CommandIdx]
		if arg.ResultIndex < 0 || arg.ResultIndex >= len(regs) {
			return moveengine.Value{}, errtax.MissingInput(intStringer(arg.ResultIndex), 0)
		}
		return regs[arg.ResultIndex], nil
	default:
		return moveengine.Value{}, errtax.MissingInput(intStringer(-1), 0)
	}
}

// argumentsOf flattens every argument a command references, independent
// of which field they live in, for uniform resolution.
func argumentsOf(cmd model.Command) []model.Argument {
	switch cmd.Kind {
	case model.CmdMoveCall:
		return cmd.Args
	case model.CmdTransferObjects:
		return append(append([]model.Argument{}, cmd.Objects...), cmd.Recipient)
	case model.CmdSplitCoins:
		return append([]model.Argument{cmd.Coin}, cmd.Amounts...)
	case model.CmdMergeCoins:
		return append([]model.Argument{cmd.Destination}, cmd.Sources...)
	case model.CmdMakeMoveVec:
		return cmd.Elements
	case model.CmdPublish, model.CmdUpgrade:
		return nil
	default:
		return nil
	}
}

func (s *session) recordResults(idx int, values []moveengine.Value) {
	s.results[idx] = values
}

func (s *session) recordNativeMutation(ref model.ObjectRef) {
	s.nativeMuts = append(s.nativeMuts, ref)
}

func (s *session) nativeMutations() []model.ObjectRef { return s.nativeMuts }

func (s *session) unchangedLoadedRuntimeObjects() []model.ObjectRef { return s.loaded }

func (s *session) sharedObjectInputVersions() map[model.ObjectID]uint64 { return s.sharedVers }

func (s *session) recordChildTouch(t ChildTouch) { s.touched = append(s.touched, t) }

func (s *session) touchedChildren() []ChildTouch { return s.touched }

// intStringer adapts an int index to fmt.Stringer for errtax constructors
// that expect an identifier, used here purely for diagnostic context.
type intStringer int

func (i intStringer) String() string { return strconv.Itoa(int(i)) }
