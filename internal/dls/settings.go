package dls

import (
	"github.com/lumen-data/particle.report/internal/paramtree"
)

// Instrument identity constants. The export container does not repeat
// these per record, so they are emitted unconditionally.
const (
	Manufacturer = "Malvern Panalytical"
	Model        = "Zetasizer Ultra"
	SoftwareName = "ZS XPLORER"
)

// Software identifies the acquisition software that wrote the record.
type Software struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Instrument identifies the analyzer a record was measured on.
type Instrument struct {
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SerialNumber string   `json:"serialNumber,omitempty"`
	Software     Software `json:"software"`
}

// Settings holds the acquisition configuration of one record: the
// instrument identity plus the numeric instrument settings found in
// the tree.
type Settings struct {
	Instrument Instrument         `json:"instrument"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
}

// Numeric acquisition settings, resolved with deep lookups. Only
// numeric values qualify; a string under the same name is discarded
// rather than coerced.
var numericSettingFields = []metaField{
	{"Detection Angle", "detectionAngle"},
	{"Measurement Duration", "measurementDuration"},
	{"Number Of Runs", "numberOfRuns"},
	{"Temperature", "temperature"},
	{"Attenuator", "attenuator"},
	{"Laser Wavelength", "laserWavelength"},
	{"Equilibration Time", "equilibrationTime"},
}

// BuildSettings assembles the settings record for one measurement. It
// never fails: the identity constants are always present, and every
// optional field is omitted when absent or of the wrong type.
//
// Software Version must be a direct child of the record root; the
// serial number and numeric settings may sit anywhere in the tree.
func BuildSettings(root *paramtree.Node) Settings {
	s := Settings{
		Instrument: Instrument{
			Manufacturer: Manufacturer,
			Model:        Model,
			Software:     Software{Name: SoftwareName},
		},
	}
	if root == nil {
		return s
	}
	if n := paramtree.FindDirect(root.Children, "Software Version"); n != nil {
		if v, ok := n.Value.AsString(); ok {
			s.Instrument.Software.Version = v
		}
	}
	if n := paramtree.FindDeep(root, "Instrument Serial Number"); n != nil {
		if v, ok := n.Value.AsString(); ok {
			s.Instrument.SerialNumber = v
		}
	}
	for _, f := range numericSettingFields {
		n := paramtree.FindDeep(root, f.parameter)
		if n == nil {
			continue
		}
		v, ok := n.Value.AsNumber()
		if !ok {
			continue
		}
		if s.Parameters == nil {
			s.Parameters = make(map[string]float64)
		}
		s.Parameters[f.key] = v
	}
	return s
}
