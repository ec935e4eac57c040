// Package report renders size-distribution plots from converted
// spectra: one PNG per spectrum for the API plot endpoint, and
// per-collection output directories (one file per spectrum plus an
// overlay) for batch reporting. File output goes through the fsutil
// abstraction so tests run against the in-memory filesystem.
package report

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lumen-data/particle.report/internal/analysis"
	"github.com/lumen-data/particle.report/internal/fsutil"
	"github.com/lumen-data/particle.report/internal/units"
)

// PlotOptions controls rendering. SizeUnits applies to the x axis; the
// stored nanometre values are converted on the way in.
type PlotOptions struct {
	Title     string
	SizeUnits string
}

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// SpectrumPNG renders one spectrum's size distribution (line plus
// point markers, log-scaled size axis) and returns the encoded PNG.
func SpectrumPNG(sp *analysis.Spectrum, opts PlotOptions) ([]byte, error) {
	if sp == nil {
		return nil, fmt.Errorf("report: nil spectrum")
	}
	title := opts.Title
	if title == "" {
		title = sp.Title
	}
	if title == "" {
		title = sp.ID
	}

	p, err := newDistributionPlot(title, []*analysis.Spectrum{sp}, opts)
	if err != nil {
		return nil, err
	}

	colors := generateColors(1)
	if err := addSpectrumSeries(p, sp, opts.SizeUnits, colors[0], ""); err != nil {
		return nil, err
	}
	return encodePNG(p)
}

// OverlayPNG renders every spectrum of a collection on one plot with a
// legend entry per spectrum.
func OverlayPNG(a *analysis.Analysis, opts PlotOptions) ([]byte, error) {
	if a == nil || a.Len() == 0 {
		return nil, fmt.Errorf("report: empty collection")
	}
	title := opts.Title
	if title == "" {
		title = a.Label
	}
	if title == "" {
		title = a.ID
	}

	p, err := newDistributionPlot(title, a.Spectra, opts)
	if err != nil {
		return nil, err
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	colors := generateColors(a.Len())
	plotted := 0
	for i, sp := range a.Spectra {
		label := sp.Title
		if label == "" {
			label = sp.ID
		}
		if err := addSpectrumSeries(p, sp, opts.SizeUnits, colors[i], label); err != nil {
			continue
		}
		plotted++
	}
	if plotted == 0 {
		return nil, fmt.Errorf("report: collection %s has no plottable spectra", a.ID)
	}
	return encodePNG(p)
}

// newDistributionPlot builds the empty plot frame: titles, axis labels,
// grid, and a log size axis when every size class across the given
// spectra is positive (a log scale cannot represent zero).
func newDistributionPlot(title string, spectra []*analysis.Spectrum, opts PlotOptions) (*plot.Plot, error) {
	sizeUnits := opts.SizeUnits
	if !units.IsValidSizeUnit(sizeUnits) {
		sizeUnits = units.NM
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("Size (%s)", sizeUnits)
	p.Y.Label.Text = yAxisLabel(spectra)
	p.Add(plotter.NewGrid())

	if allSizesPositive(spectra) {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	return p, nil
}

func yAxisLabel(spectra []*analysis.Spectrum) string {
	for _, sp := range spectra {
		y, ok := sp.Variables.Y()
		if !ok {
			continue
		}
		if y.Units != "" {
			return fmt.Sprintf("%s (%s)", y.Label, y.Units)
		}
		if y.Label != "" {
			return y.Label
		}
	}
	return "Intensity (%)"
}

func allSizesPositive(spectra []*analysis.Spectrum) bool {
	found := false
	for _, sp := range spectra {
		x, ok := sp.Variables.X()
		if !ok {
			continue
		}
		for _, v := range x.Data {
			if v <= 0 {
				return false
			}
			found = true
		}
	}
	return found
}

// addSpectrumSeries adds one spectrum's x/y pair as a line with point
// markers. An empty legend label adds no legend entry.
func addSpectrumSeries(p *plot.Plot, sp *analysis.Spectrum, sizeUnits string, c color.Color, legend string) error {
	xv, okX := sp.Variables.X()
	yv, okY := sp.Variables.Y()
	if !okX || !okY {
		return fmt.Errorf("report: spectrum %q has no x/y pair", sp.ID)
	}
	if len(xv.Data) != len(yv.Data) {
		return fmt.Errorf("report: spectrum %q length mismatch: %d sizes, %d values", sp.ID, len(xv.Data), len(yv.Data))
	}
	if len(xv.Data) == 0 {
		return fmt.Errorf("report: spectrum %q is empty", sp.ID)
	}

	sizes := units.ConvertSizes(xv.Data, sizeUnits)
	pts := make(plotter.XYs, len(sizes))
	for i := range sizes {
		pts[i] = plotter.XY{X: sizes[i], Y: yv.Data[i]}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Color = c
	scatter.GlyphStyle.Radius = vg.Points(2)

	p.Add(line, scatter)
	if legend != "" {
		p.Legend.Add(legend, line)
	}
	return nil
}

func encodePNG(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to encode plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write plot: %w", err)
	}
	return buf.Bytes(), nil
}

// Writer saves rendered plots through a FileSystem.
type Writer struct {
	fs   fsutil.FileSystem
	opts PlotOptions
}

func NewWriter(fs fsutil.FileSystem, opts PlotOptions) *Writer {
	return &Writer{fs: fs, opts: opts}
}

// SaveCollectionPlots writes one PNG per spectrum into dir, named by
// spectrum GUID, plus overlay.png when the collection holds more than
// one spectrum. Returns the number of files written. Spectra that
// cannot be plotted are skipped, not fatal.
func (w *Writer) SaveCollectionPlots(a *analysis.Analysis, dir string) (int, error) {
	if a == nil {
		return 0, fmt.Errorf("report: nil collection")
	}
	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	written := 0
	for _, sp := range a.Spectra {
		png, err := SpectrumPNG(sp, w.opts)
		if err != nil {
			continue
		}
		name := filepath.Join(dir, sp.ID+".png")
		if err := w.fs.WriteFile(name, png, os.FileMode(0644)); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written++
	}

	if a.Len() > 1 {
		png, err := OverlayPNG(a, w.opts)
		if err == nil {
			name := filepath.Join(dir, "overlay.png")
			if err := w.fs.WriteFile(name, png, os.FileMode(0644)); err != nil {
				return written, fmt.Errorf("failed to write %s: %w", name, err)
			}
			written++
		}
	}
	return written, nil
}
