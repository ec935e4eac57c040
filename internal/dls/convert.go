// Package dls converts parsed analyzer archives into normalized
// analysis collections. Each archive record's parameter tree is mapped
// to one spectrum: a typed variable set (size classes plus the measured
// distributions), a flat metadata record, and the instrument settings.
// Records without the required size/intensity pair are dropped; every
// other absence degrades to an omitted field rather than an error.
package dls

import (
	"github.com/google/uuid"

	"github.com/lumen-data/particle.report/internal/analysis"
	"github.com/lumen-data/particle.report/internal/paramtree"
	"github.com/lumen-data/particle.report/internal/zmes"
)

// DataType tags every spectrum produced by this converter.
const DataType = "Size measurement"

// ConvertOptions carries the identity of the resulting collection.
// A zero ID is replaced with a fresh UUID.
type ConvertOptions struct {
	ID    string
	Label string
}

// Convert folds a parsed archive into an analysis collection, one
// spectrum per convertible record, preserving file order. Records whose
// variable set lacks x or y are skipped with no output and no error.
func Convert(file *zmes.File, opts ConvertOptions) *analysis.Analysis {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	a := analysis.New(id, opts.Label)
	if file == nil {
		return a
	}
	for _, rec := range file.Records {
		vars, ok := BuildVariableSet(rec.Params)
		if !ok {
			continue
		}
		a.PushSpectrum(vars, analysis.SpectrumOptions{
			ID:       rec.GUID,
			Title:    recordTitle(rec.Params),
			DataType: DataType,
			Meta:     BuildMeta(rec.Params),
		})
		// Settings ride on the spectrum but are not spectral data;
		// they are attached after the push.
		a.Last().Settings = BuildSettings(rec.Params)
	}
	return a
}

// ConvertBytes parses raw archive bytes and converts the result. A
// parse failure is returned unmodified; conversion itself cannot fail.
func ConvertBytes(data []byte, opts ConvertOptions) (*analysis.Analysis, error) {
	file, err := zmes.Parse(data)
	if err != nil {
		return nil, err
	}
	return Convert(file, opts), nil
}

// recordTitle pulls the sample name out of the record's Sample Settings
// group. The group must be a direct child of the record root; within it
// the name may sit at any depth. Anything missing or non-string yields
// the empty title.
func recordTitle(root *paramtree.Node) string {
	if root == nil {
		return ""
	}
	scope := paramtree.FindDirect(root.Children, "Sample Settings")
	if scope == nil {
		return ""
	}
	if n := paramtree.FindDeep(scope, "Sample Name"); n != nil {
		if title, ok := n.Value.AsString(); ok {
			return title
		}
	}
	return ""
}
