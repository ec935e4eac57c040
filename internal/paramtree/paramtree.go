// Package paramtree models the hierarchical parameter records found in
// analyzer export files and provides name-based lookups over them.
//
// A parameter tree is produced once by the archive reader and treated as
// read-only afterwards: every lookup is a pure traversal with no side
// effects. Node names are not unique — neither among siblings nor across
// levels — so both lookups return the first match in document order and
// callers disambiguate by searching from a narrower subtree root.
package paramtree

// ValueKind identifies the payload type carried by a node.
type ValueKind uint8

const (
	KindNone       ValueKind = iota // node carries no value (pure branch)
	KindString                      // UTF-8 string scalar
	KindFloat                       // float64 scalar
	KindInt                         // int64 scalar
	KindBool                        // boolean scalar
	KindFloatArray                  // []float64 numeric array
)

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindFloatArray:
		return "float-array"
	default:
		return "unknown"
	}
}

// Value is the optional payload of a node. Exactly one of the payload
// fields is meaningful, selected by Kind; the zero Value is KindNone.
type Value struct {
	Kind  ValueKind
	Str   string
	Num   float64
	Int   int64
	Bool  bool
	Array []float64
}

// Constructors for the non-empty kinds.

func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Float(f float64) Value { return Value{Kind: KindFloat, Num: f} }
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func FloatArray(a []float64) Value { return Value{Kind: KindFloatArray, Array: a} }

// IsDefined reports whether the value carries any payload at all.
func (v Value) IsDefined() bool { return v.Kind != KindNone }

// AsString returns the string payload. The second return is false for any
// other kind; no coercion is attempted.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// AsFloat returns the float64 payload only. Integer values are not
// promoted; use AsNumber where either numeric kind is acceptable.
func (v Value) AsFloat() (float64, bool) {
	if v.Kind != KindFloat {
		return 0, false
	}
	return v.Num, true
}

// AsInt returns the int64 payload.
func (v Value) AsInt() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.Int, true
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

// AsNumber returns the value as a float64 when the kind is float or int.
// String representations of numbers are deliberately rejected.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Num, true
	case KindInt:
		return float64(v.Int), true
	default:
		return 0, false
	}
}

// AsFloatArray returns the numeric array payload. Scalars of any kind do
// not qualify.
func (v Value) AsFloatArray() ([]float64, bool) {
	if v.Kind != KindFloatArray {
		return nil, false
	}
	return v.Array, true
}

// Interface returns the payload as a plain Go value for serialization:
// string, float64, int64, bool, []float64, or nil when undefined.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindFloat:
		return v.Num
	case KindInt:
		return v.Int
	case KindBool:
		return v.Bool
	case KindFloatArray:
		return v.Array
	default:
		return nil
	}
}

// Node is one named entry in a parameter tree. Children keep the order in
// which they appeared in the source document.
type Node struct {
	Name     string
	Value    Value
	Children []*Node
}

// FindDirect returns the first node in nodes whose name equals name, or nil.
// Only the given siblings are inspected, never their descendants.
func FindDirect(nodes []*Node, name string) *Node {
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// FindDeep returns the first node named name in a pre-order depth-first
// walk starting at root (root itself is checked first), or nil. When
// several nodes share the name the earliest in document order wins, which
// callers rely on for disambiguation.
func FindDeep(root *Node, name string) *Node {
	if root == nil {
		return nil
	}
	if root.Name == name {
		return root
	}
	for _, child := range root.Children {
		if found := FindDeep(child, name); found != nil {
			return found
		}
	}
	return nil
}
