package dls

import (
	"github.com/lumen-data/particle.report/internal/paramtree"
)

// metaField pairs a parameter name in the source tree with the key it
// takes in the normalized metadata record.
type metaField struct {
	parameter string
	key       string
}

// Fields read from the record root's immediate children only. The same
// names can appear deeper in the tree with different meaning, so these
// never use a deep lookup.
var directMetaFields = []metaField{
	{"Sample Description", "sampleDescription"},
	{"Record Number", "recordNumber"},
	{"Measurement Date And Time", "measurementDateTime"},
	{"Measurement Position", "measurementPosition"},
	{"Result Quality", "resultQuality"},
}

// Summary scalars that live at varying depths depending on the analysis
// performed, resolved with a deep lookup from the record root.
var deepMetaFields = []metaField{
	{"Z-Average", "zAverage"},
	{"Polydispersity Index", "polydispersityIndex"},
	{"Derived Mean Count Rate", "derivedMeanCountRate"},
}

// scopedMetaGroup names a subtree to locate first, then fields resolved
// within that subtree only. Scoping keeps a same-named node under an
// unrelated branch (a "Material RI" inside "Core Characteristics", say)
// from shadowing the one that belongs to the group.
type scopedMetaGroup struct {
	subtree string
	fields  []metaField
}

var scopedMetaGroups = []scopedMetaGroup{
	{"Material Settings", []metaField{
		{"Material Name", "materialName"},
		{"Material RI", "materialRI"},
		{"Material Absorption", "materialAbsorption"},
	}},
	{"Cumulants", []metaField{
		{"Fit Error", "cumulantsFitError"},
		{"Intercept", "cumulantsIntercept"},
	}},
}

// Dispersant fields occur once per record, so they resolve from the
// full record root without scoping.
var dispersantMetaFields = []metaField{
	{"Dispersant Name", "dispersantName"},
	{"Dispersant RI", "dispersantRI"},
	{"Dispersant Viscosity", "dispersantViscosity"},
}

// BuildMeta assembles the flat metadata record for one measurement.
// It never fails: fields absent from the tree, or present without a
// value, are simply omitted — no placeholder nulls. Values pass through
// unmodified, with no unit conversion or formatting.
func BuildMeta(root *paramtree.Node) map[string]any {
	meta := make(map[string]any)
	if root == nil {
		return meta
	}
	for _, f := range directMetaFields {
		if n := paramtree.FindDirect(root.Children, f.parameter); n != nil && n.Value.IsDefined() {
			meta[f.key] = n.Value.Interface()
		}
	}
	for _, f := range deepMetaFields {
		if n := paramtree.FindDeep(root, f.parameter); n != nil && n.Value.IsDefined() {
			meta[f.key] = n.Value.Interface()
		}
	}
	for _, g := range scopedMetaGroups {
		scope := paramtree.FindDeep(root, g.subtree)
		if scope == nil {
			continue
		}
		for _, f := range g.fields {
			if n := paramtree.FindDeep(scope, f.parameter); n != nil && n.Value.IsDefined() {
				meta[f.key] = n.Value.Interface()
			}
		}
	}
	for _, f := range dispersantMetaFields {
		if n := paramtree.FindDeep(root, f.parameter); n != nil && n.Value.IsDefined() {
			meta[f.key] = n.Value.Interface()
		}
	}
	return meta
}
