// Package api serves the measurement archive and live bench data over
// HTTP/JSON. Handlers read normalized values from the database and
// convert sizes and temperatures to the configured display units at
// this edge only; everything below the API works in storage units
// (nanometres, degrees Celsius).
package api

import (
	"log"
	"net/http"
	"time"

	"github.com/lumen-data/particle.report/internal/db"
	"github.com/lumen-data/particle.report/internal/httputil"
	"github.com/lumen-data/particle.report/internal/serialmux"
	"github.com/lumen-data/particle.report/internal/units"
)

// ANSI colors for the request log.
const (
	colorCyan      = "\033[36m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
	colorReset     = "\033[0m"
)

type Server struct {
	m  serialmux.BenchLink
	db *db.DB

	// Display units applied on the way out. Stored values are always
	// nm and Celsius.
	sizeUnits string
	tempUnits string

	maxArchiveBytes int64
	liveResultLimit int
	rollupDays      int
}

// ServerOptions carries the display and tuning knobs the server needs;
// zero values fall back to sensible defaults.
type ServerOptions struct {
	SizeUnits        string
	TemperatureUnits string
	MaxArchiveBytes  int64
	LiveResultLimit  int
	RollupDays       int
}

func NewServer(m serialmux.BenchLink, db *db.DB, opts ServerOptions) *Server {
	s := &Server{
		m:               m,
		db:              db,
		sizeUnits:       opts.SizeUnits,
		tempUnits:       opts.TemperatureUnits,
		maxArchiveBytes: opts.MaxArchiveBytes,
		liveResultLimit: opts.LiveResultLimit,
		rollupDays:      opts.RollupDays,
	}
	if !units.IsValidSizeUnit(s.sizeUnits) {
		s.sizeUnits = units.NM
	}
	if !units.IsValidTemperatureUnit(s.tempUnits) {
		s.tempUnits = units.Celsius
	}
	if s.maxArchiveBytes <= 0 {
		s.maxArchiveBytes = 32 * 1024 * 1024
	}
	if s.liveResultLimit <= 0 {
		s.liveResultLimit = 100
	}
	if s.rollupDays <= 0 {
		s.rollupDays = 7
	}
	return s
}

// logWriter records the status code on its way through so the request
// log can report it.
type logWriter struct {
	http.ResponseWriter
	status int
}

func (w *logWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush passes through so the SSE endpoints keep streaming when the
// whole mux is wrapped.
func (w *logWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// statusColor picks the log color for a status code: green for success,
// yellow for redirects, red for errors.
func statusColor(code int) string {
	switch {
	case code >= 400:
		return colorBoldRed
	case code >= 300:
		return colorYellow
	default:
		return colorBoldGreen
	}
}

// LoggingMiddleware writes one line per request: status, method, URI,
// and elapsed time.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &logWriter{w, http.StatusOK}
		next.ServeHTTP(lw, r)
		log.Printf(
			"[%s%d%s] %s %s%s%s %vms",
			statusColor(lw.status), lw.status, colorReset, r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/measurements", s.handleMeasurements)
	mux.HandleFunc("/api/collections", s.listCollections)
	mux.HandleFunc("/api/collections/", s.handleCollectionByID)
	mux.HandleFunc("/api/spectra/", s.handleSpectrumByGUID)
	mux.HandleFunc("/api/live-results", s.listLiveResults)
	mux.HandleFunc("/api/live-results/stats", s.showLiveResultStats)
	mux.HandleFunc("/api/command", s.sendCommandHandler)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/charts/collections/", s.handleCollectionChart)
	return mux
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	command := r.FormValue("command")
	if command == "" {
		httputil.BadRequest(w, "command is required")
		return
	}

	if err := s.m.SendCommand(command); err != nil {
		httputil.InternalServerError(w, "failed to send command to bench")
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "sent"})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]any{
		"sizeUnits":        s.sizeUnits,
		"temperatureUnits": s.tempUnits,
		"maxArchiveBytes":  s.maxArchiveBytes,
		"liveResultLimit":  s.liveResultLimit,
		"rollupDays":       s.rollupDays,
	})
}

// displaySizeUnits resolves the size units for one request: an explicit
// valid ?units= wins, otherwise the server default applies.
func (s *Server) displaySizeUnits(r *http.Request) string {
	if u := r.URL.Query().Get("units"); u != "" && units.IsValidSizeUnit(u) {
		return u
	}
	return s.sizeUnits
}
