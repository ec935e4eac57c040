package dls

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/lumen-data/particle.report/internal/paramtree"
	"github.com/lumen-data/particle.report/internal/zmes"
)

const (
	guidComplete   = "0b9e4d2c-6a81-4f3e-bb1d-9f1a2c3d4e5f"
	guidIncomplete = "77c9a6f1-0d42-4bfa-9f2a-6c1b3a9d8e70"
)

var (
	sizeClasses  = []float64{105.7, 164.2, 255.0, 396.1, 615.1, 955.4}
	intensityPct = []float64{2.1, 8.4, 19.7, 31.9, 26.3, 11.6}
	volumePct    = []float64{1.2, 6.8, 17.5, 30.4, 29.9, 14.2}
)

// completeRecordTree mirrors the shape of a real analyzer export
// record: identity fields at the root, sample/instrument groups, and
// the size analysis with its distributions and cumulant fit.
func completeRecordTree() *paramtree.Node {
	return &paramtree.Node{
		Name: "Measurement",
		Children: []*paramtree.Node{
			{Name: "Sample Description", Value: paramtree.String("Lysozyme in PBS")},
			{Name: "Record Number", Value: paramtree.Int(42)},
			{Name: "Measurement Date And Time", Value: paramtree.String("2024-03-18T09:21:44Z")},
			{Name: "Result Quality", Value: paramtree.String("Good")},
			{Name: "Software Version", Value: paramtree.String("3.2.1.85")},
			{Name: "Sample Settings", Children: []*paramtree.Node{
				{Name: "Sample Name", Value: paramtree.String("Lysozyme 2 mg/mL")},
				{Name: "Material Settings", Children: []*paramtree.Node{
					{Name: "Material Name", Value: paramtree.String("Protein")},
					{Name: "Material RI", Value: paramtree.Float(1.45)},
					{Name: "Material Absorption", Value: paramtree.Float(0.001)},
				}},
				{Name: "Dispersant Settings", Children: []*paramtree.Node{
					{Name: "Dispersant Name", Value: paramtree.String("PBS")},
					{Name: "Dispersant RI", Value: paramtree.Float(1.33)},
					{Name: "Dispersant Viscosity", Value: paramtree.Float(0.8872)},
				}},
			}},
			{Name: "Instrument Settings", Children: []*paramtree.Node{
				{Name: "Instrument Serial Number", Value: paramtree.String("MAL1178276")},
				{Name: "Detection Angle", Value: paramtree.Float(173)},
				{Name: "Laser Wavelength", Value: paramtree.Float(632.8)},
				{Name: "Attenuator", Value: paramtree.Int(7)},
				{Name: "Temperature", Value: paramtree.Float(25)},
				{Name: "Measurement Duration", Value: paramtree.Int(60)},
				{Name: "Number Of Runs", Value: paramtree.Int(12)},
			}},
			{Name: "Size Analysis", Children: []*paramtree.Node{
				{Name: "Sizes", Value: paramtree.FloatArray(sizeClasses)},
				{Name: "Intensity", Value: paramtree.FloatArray(intensityPct)},
				{Name: "Volume", Value: paramtree.FloatArray(volumePct)},
				{Name: "Cumulants", Children: []*paramtree.Node{
					{Name: "Z-Average", Value: paramtree.Float(489.144)},
					{Name: "Polydispersity Index", Value: paramtree.Float(0.2645)},
					{Name: "Fit Error", Value: paramtree.Float(0.000887)},
					{Name: "Intercept", Value: paramtree.Float(0.943)},
				}},
				{Name: "Derived Mean Count Rate", Value: paramtree.Float(238.4)},
			}},
		},
	}
}

// incompleteRecordTree carries a volume distribution but neither Sizes
// nor Intensity, so conversion must drop it.
func incompleteRecordTree() *paramtree.Node {
	return &paramtree.Node{
		Name: "Measurement",
		Children: []*paramtree.Node{
			{Name: "Sample Description", Value: paramtree.String("aborted run")},
			{Name: "Size Analysis", Children: []*paramtree.Node{
				{Name: "Volume", Value: paramtree.FloatArray(volumePct)},
			}},
		},
	}
}

func archiveBytes(t *testing.T, records map[string]*paramtree.Node, order ...string) []byte {
	t.Helper()
	b := zmes.NewBuilder()
	for _, guid := range order {
		if err := b.AppendRecord(guid, records[guid]); err != nil {
			t.Fatalf("append record %s: %v", guid, err)
		}
	}
	return b.Bytes()
}

func TestConvertEndToEnd(t *testing.T) {
	data := archiveBytes(t, map[string]*paramtree.Node{
		guidComplete:   completeRecordTree(),
		guidIncomplete: incompleteRecordTree(),
	}, guidComplete, guidIncomplete)

	a, err := ConvertBytes(data, ConvertOptions{ID: "batch-7", Label: "stability series"})
	if err != nil {
		t.Fatalf("ConvertBytes: %v", err)
	}
	if a.ID != "batch-7" || a.Label != "stability series" {
		t.Errorf("collection identity = %q/%q, want batch-7/stability series", a.ID, a.Label)
	}
	if a.Len() != 1 {
		t.Fatalf("collection length = %d, want 1 (incomplete record dropped)", a.Len())
	}

	sp := a.Spectra[0]
	if sp.ID != guidComplete {
		t.Errorf("spectrum id = %q, want record guid %q", sp.ID, guidComplete)
	}
	if sp.Title != "Lysozyme 2 mg/mL" {
		t.Errorf("title = %q, want sample name", sp.Title)
	}
	if sp.DataType != DataType {
		t.Errorf("dataType = %q, want %q", sp.DataType, DataType)
	}

	for _, sym := range []string{"x", "y", "v"} {
		if _, found := sp.Variables[sym]; !found {
			t.Errorf("variable %q missing", sym)
		}
	}
	if got := sp.Variables["x"].Data; len(got) != len(sizeClasses) || got[0] != sizeClasses[0] {
		t.Errorf("x data = %v, want %v", got, sizeClasses)
	}

	if got := sp.Meta["zAverage"]; got != 489.144 {
		t.Errorf("meta zAverage = %v, want 489.144", got)
	}
	if got := sp.Meta["polydispersityIndex"]; got != 0.2645 {
		t.Errorf("meta polydispersityIndex = %v, want 0.2645", got)
	}
	if got := sp.Meta["materialRI"]; got != 1.45 {
		t.Errorf("meta materialRI = %v, want 1.45", got)
	}

	settings, ok := sp.Settings.(Settings)
	if !ok {
		t.Fatalf("settings not attached: %T", sp.Settings)
	}
	if settings.Instrument.Manufacturer != Manufacturer || settings.Instrument.Model != Model {
		t.Errorf("instrument identity = %+v", settings.Instrument)
	}
	if settings.Instrument.SerialNumber != "MAL1178276" {
		t.Errorf("serial = %q, want MAL1178276", settings.Instrument.SerialNumber)
	}
	if settings.Instrument.Software.Version != "3.2.1.85" {
		t.Errorf("software version = %q, want 3.2.1.85", settings.Instrument.Software.Version)
	}
	if got := settings.Parameters["detectionAngle"]; got != 173 {
		t.Errorf("detectionAngle = %v, want 173", got)
	}
	if got := settings.Parameters["attenuator"]; got != 7 {
		t.Errorf("attenuator = %v, want 7 (int promoted to number)", got)
	}
}

func TestConvertSkipsRecordsWithoutRequiredVariables(t *testing.T) {
	data := archiveBytes(t, map[string]*paramtree.Node{
		guidIncomplete: incompleteRecordTree(),
	}, guidIncomplete)

	a, err := ConvertBytes(data, ConvertOptions{})
	if err != nil {
		t.Fatalf("ConvertBytes: %v", err)
	}
	if a.Len() != 0 {
		t.Errorf("collection length = %d, want 0", a.Len())
	}
}

func TestConvertPreservesRecordOrder(t *testing.T) {
	second := "d2f3a4b5-c6d7-48e9-90a1-b2c3d4e5f607"
	data := archiveBytes(t, map[string]*paramtree.Node{
		guidComplete: completeRecordTree(),
		second:       completeRecordTree(),
	}, guidComplete, second)

	a, err := ConvertBytes(data, ConvertOptions{})
	if err != nil {
		t.Fatalf("ConvertBytes: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("collection length = %d, want 2", a.Len())
	}
	if a.Spectra[0].ID != guidComplete || a.Spectra[1].ID != second {
		t.Errorf("spectra order = %q, %q", a.Spectra[0].ID, a.Spectra[1].ID)
	}
}

func TestConvertDefaultCollectionID(t *testing.T) {
	a := Convert(&zmes.File{}, ConvertOptions{})
	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("default collection id %q is not a UUID: %v", a.ID, err)
	}
}

func TestConvertNilFile(t *testing.T) {
	a := Convert(nil, ConvertOptions{ID: "empty"})
	if a == nil || a.Len() != 0 {
		t.Errorf("Convert(nil) = %+v, want empty collection", a)
	}
}

func TestConvertBytesParseFailure(t *testing.T) {
	a, err := ConvertBytes([]byte("not an archive"), ConvertOptions{})
	if !errors.Is(err, zmes.ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
	if a != nil {
		t.Errorf("failed conversion returned a collection: %+v", a)
	}
}

func TestRecordTitle(t *testing.T) {
	tests := []struct {
		name string
		root *paramtree.Node
		want string
	}{
		{
			name: "nested sample name",
			root: completeRecordTree(),
			want: "Lysozyme 2 mg/mL",
		},
		{
			name: "no sample settings",
			root: &paramtree.Node{Name: "Measurement", Children: []*paramtree.Node{
				{Name: "Sample Name", Value: paramtree.String("orphan")},
			}},
			want: "",
		},
		{
			name: "sample settings not a direct child",
			root: &paramtree.Node{Name: "Measurement", Children: []*paramtree.Node{
				{Name: "Wrapper", Children: []*paramtree.Node{
					{Name: "Sample Settings", Children: []*paramtree.Node{
						{Name: "Sample Name", Value: paramtree.String("hidden")},
					}},
				}},
			}},
			want: "",
		},
		{
			name: "sample name not a string",
			root: &paramtree.Node{Name: "Measurement", Children: []*paramtree.Node{
				{Name: "Sample Settings", Children: []*paramtree.Node{
					{Name: "Sample Name", Value: paramtree.Int(12)},
				}},
			}},
			want: "",
		},
		{
			name: "nil root",
			root: nil,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recordTitle(tt.root); got != tt.want {
				t.Errorf("recordTitle = %q, want %q", got, tt.want)
			}
		})
	}
}
