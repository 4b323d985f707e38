package analyze

import (
	"github.com/sui-replay/replaycore/wire"
)

// This file defines the structural module encoding analyze decodes and
// moveengine's reference engine produces when publishing a test package.
// It is deliberately NOT a Move bytecode format — interpreting real Move
// bytecode is out of scope for this package, which only ever specifies
// what it feeds a VM and what it expects back, never the VM's internals.
// It is the minimal self-describing structure needed to exercise
// ListPublicFunctions and Disassemble against something concrete without
// depending on an external libmovevm at analysis time.

// ModuleFunction is one function's declaration plus its instruction body,
// the unit EncodeModule/decodeFunctionIndex/decodeFunctionBody operate on.
type ModuleFunction struct {
	Name         string
	IsEntry      bool
	ParamCount   int
	Instructions []Instruction
}

// EncodeModule serializes a module's function table to the structural
// format this package's decoders read. Used by test fixtures and by
// moveengine's reference Publish implementation.
func EncodeModule(functions []ModuleFunction) []byte {
	w := wire.NewWriter()
	w.WriteUvarint(uint64(len(functions)))
	for _, fn := range functions {
		w.WriteString(fn.Name)
		w.WriteBool(fn.IsEntry)
		w.WriteUvarint(uint64(fn.ParamCount))
		w.WriteUvarint(uint64(len(fn.Instructions)))
		for _, ins := range fn.Instructions {
			w.WriteUvarint(uint64(ins.Offset))
			w.WriteString(ins.Opcode)
			w.WriteBytes(ins.Operand)
		}
	}
	return w.Bytes()
}

func decodeModule(code []byte) ([]ModuleFunction, error) {
	r, err := wire.NewReader(code)
	if err != nil {
		return nil, err
	}
	numFns, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	functions := make([]ModuleFunction, 0, numFns)
	for i := uint64(0); i < numFns; i++ {
		fn := ModuleFunction{}
		if fn.Name, err = r.ReadString(); err != nil {
			return nil, err
		}
		if fn.IsEntry, err = r.ReadBool(); err != nil {
			return nil, err
		}
		paramCount, err := r.ReadUvarint()
		if err != nil {
			return nil, err
		}
		fn.ParamCount = int(paramCount)

		numIns, err := r.ReadUvarint()
		if err != nil {
			return nil, err
		}
		for j := uint64(0); j < numIns; j++ {
			offset, err := r.ReadUvarint()
			if err != nil {
				return nil, err
			}
			opcode, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			operand, err := r.ReadBytes()
			if err != nil {
				return nil, err
			}
			fn.Instructions = append(fn.Instructions, Instruction{
				Offset: int(offset), Opcode: opcode, Operand: operand,
			})
		}
		functions = append(functions, fn)
	}
	return functions, nil
}

func decodeFunctionIndex(module string, code []byte) ([]FunctionSig, error) {
	functions, err := decodeModule(code)
	if err != nil {
		return nil, err
	}
	sigs := make([]FunctionSig, 0, len(functions))
	for _, fn := range functions {
		sigs = append(sigs, FunctionSig{
			Module:     module,
			Name:       fn.Name,
			IsEntry:    fn.IsEntry,
			ParamCount: fn.ParamCount,
		})
	}
	return sigs, nil
}

func decodeFunctionBody(code []byte, function string) ([]Instruction, error) {
	functions, err := decodeModule(code)
	if err != nil {
		return nil, err
	}
	for _, fn := range functions {
		if fn.Name == function {
			return fn.Instructions, nil
		}
	}
	return nil, errFunctionNotFound(function)
}
