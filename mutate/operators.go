package mutate

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/sui-replay/replaycore/model"
)

// Operator names one of the mutation lab's five mutation operators.
type Operator string

const (
	OpScalarPerturbation  Operator = "scalar_perturbation"
	OpTypeArgumentShuffle Operator = "type_argument_shuffle"
	OpCommandReordering   Operator = "command_reordering"
	OpCommandDeletion     Operator = "command_deletion"
	OpArgumentReAliasing  Operator = "argument_re_aliasing"
)

// Mutator produces a structurally valid variant of tx, or ok=false when
// no applicable site exists or the mutation would violate type
// well-formedness: an invalid mutation is discarded before execution,
// never handed to the kernel.
type Mutator func(tx *model.Transaction) (variant *model.Transaction, ok bool)

// Operators returns every mutator paired with its name, in a fixed order.
func Operators() []struct {
	Name Operator
	Fn   Mutator
} {
	return []struct {
		Name Operator
		Fn   Mutator
	}{
		{OpScalarPerturbation, ScalarPerturbation},
		{OpTypeArgumentShuffle, TypeArgumentShuffle},
		{OpCommandReordering, CommandReordering},
		{OpCommandDeletion, CommandDeletion},
		{OpArgumentReAliasing, ArgumentReAliasing},
	}
}

func cloneTx(tx *model.Transaction) *model.Transaction {
	out := *tx
	out.Inputs = append([]model.Input(nil), tx.Inputs...)
	out.GasPayment = append([]model.Input(nil), tx.GasPayment...)
	out.Commands = append([]model.Command(nil), tx.Commands...)
	return &out
}

// ScalarPerturbation increments the first pure input that decodes as a
// little-endian integer within safe bounds, leaving every other field
// untouched. Move's pure-byte ABI encodes u8/u16/u32/u64/u128/u256
// arguments as fixed little-endian widths; u64 is perturbed with plain
// arithmetic, while the wider u128/u256 widths are perturbed through
// uint256.Int so the increment never silently wraps on the host's
// native integer types.
func ScalarPerturbation(tx *model.Transaction) (*model.Transaction, bool) {
	for i, in := range tx.Inputs {
		if in.Kind != model.InputPure {
			continue
		}
		switch len(in.PureBytes) {
		case 8:
			v := binary.LittleEndian.Uint64(in.PureBytes)
			if v == ^uint64(0) {
				continue // would overflow; not a safe bound
			}
			variant := cloneTx(tx)
			newBytes := make([]byte, 8)
			binary.LittleEndian.PutUint64(newBytes, v+1)
			variant.Inputs[i] = model.Input{Kind: model.InputPure, PureBytes: newBytes}
			return variant, true
		case 16, 32:
			width := len(in.PureBytes)
			v := new(uint256.Int).SetBytes(reverseBytes(in.PureBytes))
			sum := new(uint256.Int)
			_, overflow := sum.AddOverflow(v, uint256.NewInt(1))
			if overflow || !fitsWidth(sum, width) {
				continue // would overflow the declared width; not a safe bound
			}
			variant := cloneTx(tx)
			be := sum.Bytes32()
			newBytes := reverseBytes(be[32-width:])
			variant.Inputs[i] = model.Input{Kind: model.InputPure, PureBytes: newBytes}
			return variant, true
		}
	}
	return nil, false
}

// fitsWidth reports whether v fits in width little-endian bytes. At the
// full 32-byte width the 256-bit word itself is the bound, and shifting
// 1<<256 would wrap to zero, so only narrower widths need the check.
func fitsWidth(v *uint256.Int, width int) bool {
	if width >= 32 {
		return true
	}
	bound := new(uint256.Int).Lsh(uint256.NewInt(1), uint(width*8))
	return v.Lt(bound)
}

// reverseBytes returns a reversed copy, converting between Move's
// little-endian pure-byte encoding and uint256's big-endian internal form.
func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}

// TypeArgumentShuffle swaps the type-argument lists of the first two
// MoveCall commands that each carry the same number of type arguments
// (the only structurally safe swap without a real type-compatibility
// checker available).
func TypeArgumentShuffle(tx *model.Transaction) (*model.Transaction, bool) {
	first, second := -1, -1
	for i, cmd := range tx.Commands {
		if cmd.Kind != model.CmdMoveCall || len(cmd.Target.TypeArgs) == 0 {
			continue
		}
		if first == -1 {
			first = i
			continue
		}
		if len(tx.Commands[first].Target.TypeArgs) == len(cmd.Target.TypeArgs) {
			second = i
			break
		}
	}
	if first == -1 || second == -1 {
		return nil, false
	}
	variant := cloneTx(tx)
	variant.Commands[first].Target.TypeArgs, variant.Commands[second].Target.TypeArgs =
		variant.Commands[second].Target.TypeArgs, variant.Commands[first].Target.TypeArgs
	return variant, true
}

// CommandReordering swaps two adjacent commands when neither references
// the other's result — safe only when no data dependency crosses the
// swap.
func CommandReordering(tx *model.Transaction) (*model.Transaction, bool) {
	for i := 0; i+1 < len(tx.Commands); i++ {
		if !dependsOnCommand(tx.Commands[i+1], i) && !dependsOnCommand(tx.Commands[i], i+1) {
			variant := cloneTx(tx)
			variant.Commands[i], variant.Commands[i+1] = variant.Commands[i+1], variant.Commands[i]
			return variant, true
		}
	}
	return nil, false
}

func dependsOnCommand(cmd model.Command, cmdIdx int) bool {
	for _, arg := range commandArguments(cmd) {
		if (arg.Kind == model.ArgResult || arg.Kind == model.ArgNestedResult) && arg.CommandIdx == cmdIdx {
			return true
		}
	}
	return false
}

func commandArguments(cmd model.Command) []model.Argument {
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
	default:
		return nil
	}
}

// CommandDeletion drops a terminal TransferObjects command. Discarded
// (ok=false) if the last command isn't one, or if dropping it would
// leave nothing.
func CommandDeletion(tx *model.Transaction) (*model.Transaction, bool) {
	if len(tx.Commands) < 2 {
		return nil, false
	}
	last := tx.Commands[len(tx.Commands)-1]
	if last.Kind != model.CmdTransferObjects {
		return nil, false
	}
	variant := cloneTx(tx)
	variant.Commands = variant.Commands[:len(variant.Commands)-1]
	return variant, true
}

// ArgumentReAliasing retargets one Result(c,r) argument to a different,
// already-produced result register of a compatible earlier command,
// exercising the argument-resolution path against an aliased value.
func ArgumentReAliasing(tx *model.Transaction) (*model.Transaction, bool) {
	for cmdIdx, cmd := range tx.Commands {
		args := commandArguments(cmd)
		for argIdx, arg := range args {
			if arg.Kind != model.ArgResult {
				continue
			}
			for priorIdx := 0; priorIdx < cmdIdx; priorIdx++ {
				if priorIdx == arg.CommandIdx {
					continue
				}
				if tx.Commands[priorIdx].Kind == model.CmdSplitCoins || tx.Commands[priorIdx].Kind == model.CmdMoveCall {
					variant := cloneTx(tx)
					newArg := model.ResultArg(priorIdx, 0)
					setCommandArgument(&variant.Commands[cmdIdx], argIdx, newArg)
					return variant, true
				}
			}
		}
	}
	return nil, false
}

// setCommandArgument writes back one resolved argument at its original
// position within whichever field commandArguments flattened it from.
func setCommandArgument(cmd *model.Command, flatIdx int, arg model.Argument) {
	switch cmd.Kind {
	case model.CmdMoveCall:
		cmd.Args[flatIdx] = arg
	case model.CmdTransferObjects:
		if flatIdx < len(cmd.Objects) {
			cmd.Objects[flatIdx] = arg
		} else {
			cmd.Recipient = arg
		}
	case model.CmdSplitCoins:
		if flatIdx == 0 {
			cmd.Coin = arg
		} else {
			cmd.Amounts[flatIdx-1] = arg
		}
	case model.CmdMergeCoins:
		if flatIdx == 0 {
			cmd.Destination = arg
		} else {
			cmd.Sources[flatIdx-1] = arg
		}
	case model.CmdMakeMoveVec:
		cmd.Elements[flatIdx] = arg
	}
}
