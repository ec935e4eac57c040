package dls

import (
	"github.com/lumen-data/particle.report/internal/analysis"
	"github.com/lumen-data/particle.report/internal/paramtree"
)

// variableDescriptor maps one physical quantity in the analyzer's
// parameter tree to its normalized variable. The table is configuration,
// not behavior: labels and units are fixed values, never derived from
// the source data.
type variableDescriptor struct {
	parameter   string
	symbol      string
	label       string
	units       string
	isDependent bool
}

// Exactly one descriptor is independent (Sizes, symbol x) and exactly
// one is the first dependent (Intensity, symbol y); a record missing
// either does not produce a spectrum.
var variableDescriptors = []variableDescriptor{
	{"Sizes", "x", "Size", "nm", false},
	{"Intensity", "y", "Intensity", "%", true},
	{"Volume", "v", "Volume", "%", true},
	{"Number", "n", "Number", "%", true},
	{"Molecular Weight", "w", "Molecular Weight", "kDa", true},
	{"Diffusion Coefficient", "d", "Diffusion Coefficient", "µm²/s", true},
	{"Relaxation Time", "t", "Relaxation Time", "µs", true},
	{"Form Factor", "f", "Form Factor", "", true},
}

// BuildVariableSet assembles the record's variable set from its
// parameter tree. Each descriptor is resolved with a deep lookup and
// accepted only when the node carries a numeric array; any other kind,
// or no match at all, skips that descriptor silently. The second return
// is false when the required x/y pair is incomplete, in which case the
// caller drops the record.
func BuildVariableSet(root *paramtree.Node) (analysis.VariableSet, bool) {
	vars := make(analysis.VariableSet, len(variableDescriptors))
	for _, d := range variableDescriptors {
		node := paramtree.FindDeep(root, d.parameter)
		if node == nil {
			continue
		}
		data, ok := node.Value.AsFloatArray()
		if !ok {
			continue
		}
		vars[d.symbol] = analysis.Variable{
			Symbol:      d.symbol,
			Label:       d.label,
			Units:       d.units,
			Data:        data,
			IsDependent: d.isDependent,
		}
	}
	if _, ok := vars["x"]; !ok {
		return nil, false
	}
	if _, ok := vars["y"]; !ok {
		return nil, false
	}
	return vars, true
}
