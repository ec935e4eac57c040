package paramtree

import (
	"testing"
)

// sampleTree builds a small record tree with deliberately duplicated names
// at different depths and positions:
//
//	Record
//	├── Size Analysis
//	│   ├── Sizes        [1.2 3.4]
//	│   └── Intensity    [10 20]
//	├── Material Settings
//	│   └── Material RI  1.45
//	├── Core Characteristics
//	│   └── Material RI  9.99
//	└── Sizes            "duplicate-as-string"
func sampleTree() *Node {
	return &Node{
		Name: "Record",
		Children: []*Node{
			{
				Name: "Size Analysis",
				Children: []*Node{
					{Name: "Sizes", Value: FloatArray([]float64{1.2, 3.4})},
					{Name: "Intensity", Value: FloatArray([]float64{10, 20})},
				},
			},
			{
				Name: "Material Settings",
				Children: []*Node{
					{Name: "Material RI", Value: Float(1.45)},
				},
			},
			{
				Name: "Core Characteristics",
				Children: []*Node{
					{Name: "Material RI", Value: Float(9.99)},
				},
			},
			{Name: "Sizes", Value: String("duplicate-as-string")},
		},
	}
}

func TestFindDirect(t *testing.T) {
	root := sampleTree()

	tests := []struct {
		name      string
		lookup    string
		wantFound bool
	}{
		{"existing direct child", "Material Settings", true},
		{"nested name not visible directly", "Material RI", false},
		{"missing name", "No Such Parameter", false},
		{"duplicate picks direct child", "Sizes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindDirect(root.Children, tt.lookup)
			if (got != nil) != tt.wantFound {
				t.Fatalf("FindDirect(%q) found=%v, want %v", tt.lookup, got != nil, tt.wantFound)
			}
			if got != nil && got.Name != tt.lookup {
				t.Errorf("FindDirect(%q) returned node %q", tt.lookup, got.Name)
			}
		})
	}

	// The direct duplicate is the string-valued top-level node, not the
	// array nested under Size Analysis.
	sizes := FindDirect(root.Children, "Sizes")
	if _, ok := sizes.Value.AsString(); !ok {
		t.Errorf("FindDirect returned the nested Sizes node, want the direct child")
	}
}

func TestFindDeepDocumentOrder(t *testing.T) {
	root := sampleTree()

	// The first "Sizes" in pre-order is the numeric array under Size
	// Analysis, even though a direct child of the root shares the name.
	sizes := FindDeep(root, "Sizes")
	if sizes == nil {
		t.Fatal("FindDeep(Sizes) returned nil")
	}
	if _, ok := sizes.Value.AsFloatArray(); !ok {
		t.Errorf("FindDeep(Sizes) returned %v node, want the earlier float-array node", sizes.Value.Kind)
	}

	// Material RI resolves to the Material Settings entry because that
	// subtree precedes Core Characteristics in document order.
	ri := FindDeep(root, "Material RI")
	if ri == nil {
		t.Fatal("FindDeep(Material RI) returned nil")
	}
	if got, _ := ri.Value.AsFloat(); got != 1.45 {
		t.Errorf("FindDeep(Material RI) = %v, want 1.45 (document-order first)", got)
	}
}

func TestFindDeepScopedSubtree(t *testing.T) {
	root := sampleTree()

	// Searching within Core Characteristics must never escape into the
	// rest of the record.
	core := FindDeep(root, "Core Characteristics")
	if core == nil {
		t.Fatal("missing Core Characteristics subtree")
	}
	ri := FindDeep(core, "Material RI")
	if got, _ := ri.Value.AsFloat(); got != 9.99 {
		t.Errorf("scoped FindDeep = %v, want 9.99", got)
	}
	if found := FindDeep(core, "Intensity"); found != nil {
		t.Errorf("scoped FindDeep escaped its subtree: found %q", found.Name)
	}
}

func TestFindDeepRootMatch(t *testing.T) {
	root := sampleTree()
	if got := FindDeep(root, "Record"); got != root {
		t.Error("FindDeep should check the root node itself first")
	}
	if got := FindDeep(nil, "Record"); got != nil {
		t.Error("FindDeep(nil) should return nil")
	}
}

func TestValueAccessors(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		defined bool
	}{
		{"none", Value{}, false},
		{"string", String("abc"), true},
		{"float", Float(1.5), true},
		{"int", Int(42), true},
		{"bool", Bool(true), true},
		{"float array", FloatArray([]float64{1, 2}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.IsDefined(); got != tt.defined {
				t.Errorf("IsDefined() = %v, want %v", got, tt.defined)
			}
		})
	}
}

func TestValueNoCoercion(t *testing.T) {
	// Numeric accessors must not accept string payloads and vice versa.
	str := String("1.5")
	if _, ok := str.AsFloat(); ok {
		t.Error("AsFloat accepted a string value")
	}
	if _, ok := str.AsNumber(); ok {
		t.Error("AsNumber accepted a string value")
	}
	if _, ok := str.AsFloatArray(); ok {
		t.Error("AsFloatArray accepted a string value")
	}

	// AsFloat is strict float64; AsNumber admits both numeric kinds.
	i := Int(7)
	if _, ok := i.AsFloat(); ok {
		t.Error("AsFloat accepted an int value")
	}
	if got, ok := i.AsNumber(); !ok || got != 7 {
		t.Errorf("AsNumber(int 7) = %v, %v; want 7, true", got, ok)
	}

	f := Float(2.5)
	if got, ok := f.AsNumber(); !ok || got != 2.5 {
		t.Errorf("AsNumber(float 2.5) = %v, %v; want 2.5, true", got, ok)
	}
}

func TestValueInterface(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  any
	}{
		{"none is nil", Value{}, nil},
		{"string", String("x"), "x"},
		{"float", Float(3.25), 3.25},
		{"int", Int(9), int64(9)},
		{"bool", Bool(false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Interface(); got != tt.want {
				t.Errorf("Interface() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}
