package dls

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lumen-data/particle.report/internal/analysis"
	"github.com/lumen-data/particle.report/internal/paramtree"
)

func arrayNode(name string, data ...float64) *paramtree.Node {
	return &paramtree.Node{Name: name, Value: paramtree.FloatArray(data)}
}

// sizeRecord wraps distribution nodes in the nesting the analyzer uses,
// so lookups have to descend to find them.
func sizeRecord(children ...*paramtree.Node) *paramtree.Node {
	return &paramtree.Node{
		Name: "Measurement",
		Children: []*paramtree.Node{
			{Name: "Record Number", Value: paramtree.Int(1)},
			{Name: "Size Analysis", Children: children},
		},
	}
}

func TestBuildVariableSetRequiredPair(t *testing.T) {
	sizes := arrayNode("Sizes", 10, 100, 1000)
	intensity := arrayNode("Intensity", 20, 60, 20)

	tests := []struct {
		name     string
		children []*paramtree.Node
		want     bool
	}{
		{"x and y present", []*paramtree.Node{sizes, intensity}, true},
		{"missing sizes", []*paramtree.Node{intensity}, false},
		{"missing intensity", []*paramtree.Node{sizes}, false},
		{"both missing", []*paramtree.Node{arrayNode("Volume", 1, 2, 3)}, false},
		{"sizes is a string", []*paramtree.Node{
			{Name: "Sizes", Value: paramtree.String("10,100,1000")},
			intensity,
		}, false},
		{"intensity is a scalar", []*paramtree.Node{
			sizes,
			{Name: "Intensity", Value: paramtree.Float(60)},
		}, false},
		{"empty record", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars, ok := BuildVariableSet(sizeRecord(tt.children...))
			if ok != tt.want {
				t.Fatalf("BuildVariableSet ok = %v, want %v", ok, tt.want)
			}
			if !ok && vars != nil {
				t.Errorf("failed build returned non-nil set: %v", vars)
			}
		})
	}
}

func TestBuildVariableSetAllDescriptors(t *testing.T) {
	root := sizeRecord(
		arrayNode("Sizes", 10, 100),
		arrayNode("Intensity", 40, 60),
		arrayNode("Volume", 30, 70),
		arrayNode("Number", 80, 20),
		arrayNode("Molecular Weight", 14.3, 28.6),
		arrayNode("Diffusion Coefficient", 4.9, 0.49),
		arrayNode("Relaxation Time", 12.5, 125),
		arrayNode("Form Factor", 1, 0.8),
	)

	vars, ok := BuildVariableSet(root)
	if !ok {
		t.Fatal("BuildVariableSet failed on a fully populated record")
	}

	want := analysis.VariableSet{
		"x": {Symbol: "x", Label: "Size", Units: "nm", Data: []float64{10, 100}},
		"y": {Symbol: "y", Label: "Intensity", Units: "%", Data: []float64{40, 60}, IsDependent: true},
		"v": {Symbol: "v", Label: "Volume", Units: "%", Data: []float64{30, 70}, IsDependent: true},
		"n": {Symbol: "n", Label: "Number", Units: "%", Data: []float64{80, 20}, IsDependent: true},
		"w": {Symbol: "w", Label: "Molecular Weight", Units: "kDa", Data: []float64{14.3, 28.6}, IsDependent: true},
		"d": {Symbol: "d", Label: "Diffusion Coefficient", Units: "µm²/s", Data: []float64{4.9, 0.49}, IsDependent: true},
		"t": {Symbol: "t", Label: "Relaxation Time", Units: "µs", Data: []float64{12.5, 125}, IsDependent: true},
		"f": {Symbol: "f", Label: "Form Factor", Units: "", Data: []float64{1, 0.8}, IsDependent: true},
	}
	if diff := cmp.Diff(want, vars); diff != "" {
		t.Errorf("variable set mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildVariableSetOptionalPresence(t *testing.T) {
	// Volume exists but as the wrong kind; Number does not exist at
	// all. Neither may appear, and neither blocks the build.
	root := sizeRecord(
		arrayNode("Sizes", 10, 100),
		arrayNode("Intensity", 40, 60),
		&paramtree.Node{Name: "Volume", Value: paramtree.String("n/a")},
	)

	vars, ok := BuildVariableSet(root)
	if !ok {
		t.Fatal("BuildVariableSet failed with valid x/y present")
	}
	for _, sym := range []string{"v", "n", "w", "d", "t", "f"} {
		if _, found := vars[sym]; found {
			t.Errorf("symbol %q present without a numeric-array source", sym)
		}
	}
	if len(vars) != 2 {
		t.Errorf("got %d variables, want exactly x and y", len(vars))
	}
}
