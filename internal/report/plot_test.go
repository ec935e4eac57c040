package report

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/lumen-data/particle.report/internal/analysis"
	"github.com/lumen-data/particle.report/internal/fsutil"
	"github.com/lumen-data/particle.report/internal/units"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func makeSpectrum(id, title string, xs, ys []float64) *analysis.Spectrum {
	return &analysis.Spectrum{
		ID:       id,
		Title:    title,
		DataType: "Size measurement",
		Variables: analysis.VariableSet{
			"x": {Symbol: "x", Label: "Sizes", Units: "nm", Data: xs},
			"y": {Symbol: "y", Label: "Intensity", Units: "%", Data: ys, IsDependent: true},
		},
	}
}

func TestSpectrumPNG(t *testing.T) {
	sp := makeSpectrum("guid-1", "Latex 100nm", []float64{10, 100, 1000}, []float64{5, 90, 5})

	png, err := SpectrumPNG(sp, PlotOptions{SizeUnits: units.NM})
	if err != nil {
		t.Fatalf("SpectrumPNG failed: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Errorf("output does not start with PNG magic: % x", png[:8])
	}
}

func TestSpectrumPNGZeroSizeFallsBackToLinearAxis(t *testing.T) {
	// A zero size class cannot sit on a log axis; the render must still
	// succeed on a linear one.
	sp := makeSpectrum("guid-1", "", []float64{0, 100, 1000}, []float64{5, 90, 5})

	png, err := SpectrumPNG(sp, PlotOptions{SizeUnits: units.NM})
	if err != nil {
		t.Fatalf("SpectrumPNG failed: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("output does not start with PNG magic")
	}
}

func TestSpectrumPNGErrors(t *testing.T) {
	tests := []struct {
		name string
		sp   *analysis.Spectrum
	}{
		{"nil spectrum", nil},
		{
			"missing y",
			&analysis.Spectrum{ID: "g", Variables: analysis.VariableSet{
				"x": {Symbol: "x", Data: []float64{1, 2}},
			}},
		},
		{
			"length mismatch",
			makeSpectrum("g", "", []float64{1, 2, 3}, []float64{1}),
		},
		{
			"empty arrays",
			makeSpectrum("g", "", nil, nil),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SpectrumPNG(tt.sp, PlotOptions{}); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestOverlayPNG(t *testing.T) {
	a := analysis.New("col-1", "batch A")
	a.Spectra = append(a.Spectra,
		makeSpectrum("g1", "run 1", []float64{10, 100, 1000}, []float64{5, 90, 5}),
		makeSpectrum("g2", "run 2", []float64{10, 100, 1000}, []float64{10, 80, 10}),
	)

	png, err := OverlayPNG(a, PlotOptions{SizeUnits: units.NM})
	if err != nil {
		t.Fatalf("OverlayPNG failed: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("output does not start with PNG magic")
	}
}

func TestOverlayPNGEmptyCollection(t *testing.T) {
	if _, err := OverlayPNG(analysis.New("col-1", ""), PlotOptions{}); err == nil {
		t.Error("expected error for empty collection")
	}
}

func TestSaveCollectionPlots(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, PlotOptions{SizeUnits: units.NM})

	a := analysis.New("col-1", "batch A")
	a.Spectra = append(a.Spectra,
		makeSpectrum("g1", "run 1", []float64{10, 100}, []float64{40, 60}),
		makeSpectrum("g2", "run 2", []float64{10, 100}, []float64{30, 70}),
	)

	written, err := w.SaveCollectionPlots(a, "plots/col-1")
	if err != nil {
		t.Fatalf("SaveCollectionPlots failed: %v", err)
	}
	if written != 3 {
		t.Errorf("expected 3 files (2 spectra + overlay), got %d", written)
	}
	for _, name := range []string{"g1.png", "g2.png", "overlay.png"} {
		path := filepath.Join("plots/col-1", name)
		if !fs.Exists(path) {
			t.Errorf("expected %s to exist", path)
		}
		data, err := fs.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if !bytes.HasPrefix(data, pngMagic) {
			t.Errorf("%s is not a PNG", path)
		}
	}
}

func TestSaveCollectionPlotsSkipsUnplottable(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, PlotOptions{})

	a := analysis.New("col-1", "")
	a.Spectra = append(a.Spectra,
		makeSpectrum("good", "", []float64{10, 100}, []float64{40, 60}),
		makeSpectrum("bad", "", nil, nil),
	)

	written, err := w.SaveCollectionPlots(a, "plots/mixed")
	if err != nil {
		t.Fatalf("SaveCollectionPlots failed: %v", err)
	}
	// One spectrum plot plus the overlay; the empty spectrum is skipped.
	if written != 2 {
		t.Errorf("expected 2 files, got %d", written)
	}
	if fs.Exists(filepath.Join("plots/mixed", "bad.png")) {
		t.Error("unplottable spectrum should not produce a file")
	}
}

func TestGenerateColors(t *testing.T) {
	if got := generateColors(0); got != nil {
		t.Errorf("expected nil palette for n=0, got %v", got)
	}
	colors := generateColors(5)
	if len(colors) != 5 {
		t.Fatalf("expected 5 colors, got %d", len(colors))
	}
	seen := make(map[[3]uint32]bool)
	for _, c := range colors {
		r, g, b, _ := c.RGBA()
		key := [3]uint32{r, g, b}
		if seen[key] {
			t.Error("palette contains duplicate colors")
		}
		seen[key] = true
	}
}
