package api

import (
	"bytes"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumen-data/particle.report/internal/db"
	"github.com/lumen-data/particle.report/internal/testutil"
	"github.com/lumen-data/particle.report/internal/units"
)

func TestShowSpectrum(t *testing.T) {
	server, _ := setupTestServer(t)

	summary := uploadTestArchive(t, server, "Lysozyme", "batch-1")
	guid := summary.SpectrumIDs[0]

	req := testutil.NewTestRequest(http.MethodGet, "/api/spectra/"+guid)
	rec := httptest.NewRecorder()
	server.handleSpectrumByGUID(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var sp db.SpectrumRow
	testutil.DecodeJSON(t, rec, &sp)
	if sp.GUID != guid || sp.Title != "Lysozyme" {
		t.Errorf("spectrum = %s/%q, want %s/Lysozyme", sp.GUID, sp.Title, guid)
	}
	if len(sp.Variables) == 0 {
		t.Fatal("spectrum endpoint should include variables")
	}

	// Storage units by default.
	for _, v := range sp.Variables {
		if v.Symbol == "x" {
			if v.Units != units.NM {
				t.Errorf("x units = %q, want nm", v.Units)
			}
			if v.Points[0] != 50 {
				t.Errorf("x[0] = %v, want 50", v.Points[0])
			}
		}
	}
}

func TestShowSpectrumMicronDisplay(t *testing.T) {
	server, _ := setupTestServer(t)

	summary := uploadTestArchive(t, server, "Lysozyme", "batch-1")
	guid := summary.SpectrumIDs[0]

	req := testutil.NewTestRequest(http.MethodGet, "/api/spectra/"+guid+"?units=um")
	rec := httptest.NewRecorder()
	server.handleSpectrumByGUID(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var sp db.SpectrumRow
	testutil.DecodeJSON(t, rec, &sp)
	for _, v := range sp.Variables {
		switch v.Symbol {
		case "x":
			if v.Units != units.UM {
				t.Errorf("x units = %q, want um", v.Units)
			}
			if math.Abs(v.Points[0]-0.05) > 1e-12 {
				t.Errorf("x[0] = %v, want 0.05", v.Points[0])
			}
		case "y":
			// Percent values must never be touched by size conversion.
			if v.Units != "%" || v.Points[1] != 60 {
				t.Errorf("y = %q %v, want %% and 60", v.Units, v.Points)
			}
		}
	}
}

func TestSpectrumStats(t *testing.T) {
	server, _ := setupTestServer(t)

	summary := uploadTestArchive(t, server, "Lysozyme", "batch-1")
	guid := summary.SpectrumIDs[0]

	req := testutil.NewTestRequest(http.MethodGet, "/api/spectra/"+guid+"/stats")
	rec := httptest.NewRecorder()
	server.handleSpectrumByGUID(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var stats SpectrumStatsResponse
	testutil.DecodeJSON(t, rec, &stats)

	// sizes {50,100,200} weighted by {20,60,20}: mean 110, D50 100.
	if stats.Units != units.NM {
		t.Errorf("units = %q, want nm", stats.Units)
	}
	if stats.Count != 3 {
		t.Errorf("count = %d, want 3", stats.Count)
	}
	if math.Abs(stats.WeightedMean-110) > 1e-9 {
		t.Errorf("weightedMean = %v, want 110", stats.WeightedMean)
	}
	if stats.D50 != 100 {
		t.Errorf("d50 = %v, want 100", stats.D50)
	}
	if math.Abs(stats.Span-1.5) > 1e-9 {
		t.Errorf("span = %v, want 1.5", stats.Span)
	}
}

func TestSpectrumStatsMicronDisplay(t *testing.T) {
	server, _ := setupTestServer(t)

	summary := uploadTestArchive(t, server, "Lysozyme", "batch-1")
	guid := summary.SpectrumIDs[0]

	req := testutil.NewTestRequest(http.MethodGet, "/api/spectra/"+guid+"/stats?units=um")
	rec := httptest.NewRecorder()
	server.handleSpectrumByGUID(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var stats SpectrumStatsResponse
	testutil.DecodeJSON(t, rec, &stats)

	if stats.Units != units.UM {
		t.Errorf("units = %q, want um", stats.Units)
	}
	if math.Abs(stats.WeightedMean-0.110) > 1e-9 {
		t.Errorf("weightedMean = %v, want 0.110", stats.WeightedMean)
	}
	if math.Abs(stats.D50-0.1) > 1e-9 {
		t.Errorf("d50 = %v, want 0.1", stats.D50)
	}
	// Span is a ratio; the display units must not change it.
	if math.Abs(stats.Span-1.5) > 1e-9 {
		t.Errorf("span = %v, want 1.5", stats.Span)
	}
}

func TestSpectrumPlotPNG(t *testing.T) {
	server, _ := setupTestServer(t)

	summary := uploadTestArchive(t, server, "Lysozyme", "batch-1")
	guid := summary.SpectrumIDs[0]

	req := testutil.NewTestRequest(http.MethodGet, "/api/spectra/"+guid+"/plot.png")
	rec := httptest.NewRecorder()
	server.handleSpectrumByGUID(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	if !bytes.HasPrefix(rec.Body.Bytes(), pngMagic) {
		t.Error("body does not start with PNG magic")
	}
}

func TestSpectrumNotFound(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown guid", "/api/spectra/no-such-guid", http.StatusNotFound},
		{"unknown guid stats", "/api/spectra/no-such-guid/stats", http.StatusNotFound},
		{"unknown guid plot", "/api/spectra/no-such-guid/plot.png", http.StatusNotFound},
		{"missing guid", "/api/spectra/", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewTestRequest(http.MethodGet, tt.path)
			rec := httptest.NewRecorder()
			server.handleSpectrumByGUID(rec, req)
			testutil.AssertStatusCode(t, rec.Code, tt.want)
		})
	}
}

func TestUnknownSpectrumResource(t *testing.T) {
	server, _ := setupTestServer(t)

	summary := uploadTestArchive(t, server, "Lysozyme", "batch-1")
	guid := summary.SpectrumIDs[0]

	req := testutil.NewTestRequest(http.MethodGet, "/api/spectra/"+guid+"/waveform")
	rec := httptest.NewRecorder()
	server.handleSpectrumByGUID(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}
