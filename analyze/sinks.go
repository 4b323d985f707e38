package analyze

import "github.com/sui-replay/replaycore/model"

const (
	opcodeDynamicFieldAccess = "DYNAMIC_FIELD_ACCESS"
	opcodeCall               = "CALL"
)

// PredictDynamicFieldTouches runs a sink-propagation walk: starting at
// (module, function), find every dynamic-field-access instruction
// reachable through the intra-package call graph, up to depth calls deep.
// A direct access in the entry function has depth 0.
func (a *Analyzer) PredictDynamicFieldTouches(module, function string, depth int) ([]FieldSink, error) {
	code, ok := a.pkg.Modules[module]
	if !ok {
		return nil, errFunctionNotFound(function)
	}
	functions, err := decodeModule(code)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]ModuleFunction, len(functions))
	for _, fn := range functions {
		byName[fn.Name] = fn
	}

	var sinks []FieldSink
	visited := map[string]bool{}
	var walk func(name string, currentDepth int)
	walk = func(name string, currentDepth int) {
		if currentDepth > depth || visited[name] {
			return
		}
		visited[name] = true
		fn, ok := byName[name]
		if !ok {
			return
		}
		for _, ins := range fn.Instructions {
			switch ins.Opcode {
			case opcodeDynamicFieldAccess:
				sinks = append(sinks, FieldSink{
					Module:   module,
					Function: name,
					KeyType:  model.TypeTag(ins.Operand),
					Depth:    currentDepth,
				})
			case opcodeCall:
				walk(string(ins.Operand), currentDepth+1)
			}
		}
	}
	walk(function, 0)
	return sinks, nil
}
