package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/lumen-data/particle.report/internal/db"
	"github.com/lumen-data/particle.report/internal/httputil"
	"github.com/lumen-data/particle.report/internal/units"
)

// convertLiveResult applies display-unit conversion to one streamed
// bench result. Z-average follows the size units, temperature the
// temperature units.
func (s *Server) convertLiveResult(result db.LiveResult, sizeUnits string) db.LiveResult {
	result.ZAverageNm = units.ConvertSize(result.ZAverageNm, sizeUnits)
	result.TemperatureC = units.ConvertTemperature(result.TemperatureC, s.tempUnits)
	return result
}

func (s *Server) listLiveResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := s.liveResultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	results, err := s.db.LiveResults(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list live results: %v", err))
		return
	}

	sizeUnits := s.displaySizeUnits(r)
	apiResults := make([]db.LiveResult, len(results))
	for i, res := range results {
		apiResults[i] = s.convertLiveResult(res, sizeUnits)
	}
	httputil.WriteJSONOK(w, apiResults)
}

func (s *Server) showLiveResultStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	days := s.rollupDays
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'days' parameter")
			return
		}
		days = parsed
	}

	rollup, err := s.db.ZAverageRollup(days)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to compute live result stats: %v", err))
		return
	}

	// Apply unit conversion to all Z-average values
	sizeUnits := s.displaySizeUnits(r)
	for i := range rollup {
		rollup[i].Average = units.ConvertSize(rollup[i].Average, sizeUnits)
		rollup[i].Min = units.ConvertSize(rollup[i].Min, sizeUnits)
		rollup[i].Max = units.ConvertSize(rollup[i].Max, sizeUnits)
	}

	if rollup == nil {
		rollup = []db.ZAverageDay{}
	}
	httputil.WriteJSONOK(w, rollup)
}
