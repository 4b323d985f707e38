// Package analyze implements read-only introspection over a loaded
// package, including the sink-propagation walk the hydration planner's
// predictive prefetch depends on. Bytecode interpretation is out of
// scope — Disassemble decodes structure, it never evaluates it.
package analyze

import (
	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
)

// FunctionSig describes one function's exported signature.
type FunctionSig struct {
	Module     string
	Name       string
	IsEntry    bool
	ParamCount int
}

// Instruction is one decoded bytecode instruction: structural information
// only, never evaluated.
type Instruction struct {
	Offset  int
	Opcode  string
	Operand []byte
}

// Disassembly is a structured instruction listing for one function.
type Disassembly struct {
	Module       string
	Function     string
	Instructions []Instruction
}

// FieldSink names one dynamic-field access point a predictive prefetch
// derived from the call graph: the key type lets the caller compute the
// child object id via the standard encoding without touching the VM.
type FieldSink struct {
	Module   string
	Function string
	KeyType  model.TypeTag
	Depth    int
}

// Analyzer is a read-only view over one loaded package; it shares the
// session's immutable package cache by reference and never mutates it.
type Analyzer struct {
	pkg *model.Package
}

// New wraps a package for analysis.
func New(pkg *model.Package) *Analyzer {
	return &Analyzer{pkg: pkg}
}

// ListModules returns the package's module names in stable order.
func (a *Analyzer) ListModules() []string {
	return a.pkg.ModuleNames()
}

// ListPublicFunctions returns the decoded function signature table for one
// module. The reference implementation decodes only what the module's
// index header declares (function count, entry flags, param counts) — the
// per-instruction body is left to Disassemble.
func (a *Analyzer) ListPublicFunctions(module string) ([]FunctionSig, error) {
	code, ok := a.pkg.Modules[module]
	if !ok {
		return nil, errtax.NotAvailable("module")
	}
	return decodeFunctionIndex(module, code)
}

// Disassemble decodes one function's bytecode into a structured
// instruction listing.
func (a *Analyzer) Disassemble(module, function string) (*Disassembly, error) {
	code, ok := a.pkg.Modules[module]
	if !ok {
		return nil, errtax.NotAvailable("module")
	}
	instructions, err := decodeFunctionBody(code, function)
	if err != nil {
		return nil, err
	}
	return &Disassembly{Module: module, Function: function, Instructions: instructions}, nil
}

// TypeOriginTable returns the subset of the package's type-origin table
// whose keys are declared in module.
func (a *Analyzer) TypeOriginTable(module string) map[string]model.Address {
	prefix := module + "::"
	out := map[string]model.Address{}
	for k, v := range a.pkg.TypeOriginTable {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out[k] = v
		}
	}
	return out
}
