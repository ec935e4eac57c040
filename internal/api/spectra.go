package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lumen-data/particle.report/internal/analysis"
	"github.com/lumen-data/particle.report/internal/db"
	"github.com/lumen-data/particle.report/internal/httputil"
	"github.com/lumen-data/particle.report/internal/report"
	"github.com/lumen-data/particle.report/internal/units"
)

// handleSpectrumByGUID dispatches the spectrum subresources:
// /api/spectra/{guid}, /api/spectra/{guid}/stats and
// /api/spectra/{guid}/plot.png.
func (s *Server) handleSpectrumByGUID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/spectra/")
	parts := strings.Split(path, "/")
	guid := strings.TrimSpace(parts[0])
	if guid == "" {
		httputil.BadRequest(w, "spectrum guid is required")
		return
	}

	switch {
	case len(parts) == 1:
		s.showSpectrum(w, r, guid)
	case len(parts) == 2 && parts[1] == "stats":
		s.showSpectrumStats(w, r, guid)
	case len(parts) == 2 && parts[1] == "plot.png":
		s.renderSpectrumPlot(w, r, guid)
	default:
		httputil.NotFound(w, "unknown spectrum resource")
	}
}

func (s *Server) loadSpectrum(w http.ResponseWriter, guid string) (*db.SpectrumRow, bool) {
	sp, err := s.db.Spectrum(guid)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("spectrum %s not found", guid))
		return nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to load spectrum: %v", err))
		return nil, false
	}
	return sp, true
}

func (s *Server) showSpectrum(w http.ResponseWriter, r *http.Request, guid string) {
	sp, ok := s.loadSpectrum(w, guid)
	if !ok {
		return
	}

	// Size-valued variables are stored in nm; rewrite them for display.
	target := s.displaySizeUnits(r)
	if target != units.NM {
		for i, v := range sp.Variables {
			if v.Units == units.NM {
				sp.Variables[i].Points = units.ConvertSizes(v.Points, target)
				sp.Variables[i].Units = target
			}
		}
	}
	httputil.WriteJSONOK(w, sp)
}

// SpectrumStatsResponse is the stats endpoint body: the distribution
// summary plus the units its size-valued fields are expressed in.
type SpectrumStatsResponse struct {
	GUID  string `json:"guid"`
	Units string `json:"units"`
	analysis.DistributionStats
}

func (s *Server) showSpectrumStats(w http.ResponseWriter, r *http.Request, guid string) {
	sp, ok := s.loadSpectrum(w, guid)
	if !ok {
		return
	}

	spectrum := spectrumFromRow(sp)
	stats, err := analysis.SpectrumStats(spectrum)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("cannot compute stats: %v", err))
		return
	}

	target := s.displaySizeUnits(r)
	stats.WeightedMean = units.ConvertSize(stats.WeightedMean, target)
	stats.HarmonicMean = units.ConvertSize(stats.HarmonicMean, target)
	stats.StdDev = units.ConvertSize(stats.StdDev, target)
	stats.D10 = units.ConvertSize(stats.D10, target)
	stats.D50 = units.ConvertSize(stats.D50, target)
	stats.D90 = units.ConvertSize(stats.D90, target)
	// Span is dimensionless and stays as computed.

	httputil.WriteJSONOK(w, SpectrumStatsResponse{
		GUID:              guid,
		Units:             target,
		DistributionStats: stats,
	})
}

func (s *Server) renderSpectrumPlot(w http.ResponseWriter, r *http.Request, guid string) {
	sp, ok := s.loadSpectrum(w, guid)
	if !ok {
		return
	}

	png, err := report.SpectrumPNG(spectrumFromRow(sp), report.PlotOptions{
		SizeUnits: s.displaySizeUnits(r),
	})
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// spectrumFromRow rebuilds an analysis spectrum from its stored rows so
// the stats and plot code paths run on the same types the converter
// produces.
func spectrumFromRow(row *db.SpectrumRow) *analysis.Spectrum {
	vars := make(analysis.VariableSet, len(row.Variables))
	for _, v := range row.Variables {
		vars[v.Symbol] = analysis.Variable{
			Symbol:      v.Symbol,
			Label:       v.Label,
			Units:       v.Units,
			Data:        v.Points,
			IsDependent: v.IsDependent,
		}
	}
	return &analysis.Spectrum{
		ID:        row.GUID,
		Title:     row.Title,
		DataType:  row.DataType,
		Variables: vars,
		Meta:      row.Meta,
	}
}
