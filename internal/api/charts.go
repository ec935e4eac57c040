package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/lumen-data/particle.report/internal/db"
	"github.com/lumen-data/particle.report/internal/httputil"
	"github.com/lumen-data/particle.report/internal/units"
)

// echartsAssetsHost serves the echarts runtime for the rendered pages.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleCollectionChart renders an HTML overlay of every distribution in
// a collection using go-echarts. This is a quick-look endpoint (no auth)
// for eyeballing a batch without the full UI; the PNG endpoint is the
// reportable output.
func (s *Server) handleCollectionChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/charts/collections/"))
	if id == "" || strings.Contains(id, "/") {
		httputil.BadRequest(w, "collection id is required")
		return
	}

	summary, spectra, err := s.db.Collection(id)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("collection %s not found", id))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load collection: %v", err))
		return
	}

	sizeUnits := s.displaySizeUnits(r)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  "Size Distributions",
			Theme:      "dark",
			Width:      "1200px",
			Height:     "700px",
			AssetsHost: echartsAssetsHost,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Size Distributions",
			Subtitle: fmt.Sprintf("collection=%s label=%q records=%d", summary.ID, summary.Label, summary.RecordCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "log", Name: fmt.Sprintf("Size (%s)", sizeUnits), NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Intensity (%)", NameLocation: "middle", NameGap: 40}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
	)

	seriesCount := 0
	for _, row := range spectra {
		// The collection listing omits variable arrays; fetch them.
		full, err := s.db.Spectrum(row.GUID)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to load spectrum %s: %v", row.GUID, err))
			return
		}

		var xs, ys []float64
		for _, v := range full.Variables {
			switch v.Symbol {
			case "x":
				xs = units.ConvertSizes(v.Points, sizeUnits)
			case "y":
				ys = v.Points
			}
		}
		if len(xs) == 0 || len(xs) != len(ys) {
			continue
		}

		data := make([]opts.LineData, 0, len(xs))
		for i := range xs {
			data = append(data, opts.LineData{Value: []interface{}{xs[i], ys[i]}})
		}

		name := full.Title
		if name == "" {
			name = full.GUID
		}
		line.AddSeries(name, data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		seriesCount++
	}

	if seriesCount == 0 {
		httputil.NotFound(w, "collection has no plottable spectra")
		return
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
