package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name      string
		write     func(w http.ResponseWriter)
		wantCode  int
		wantError string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "invalid guid") }, http.StatusBadRequest, "invalid guid"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "no such measurement") }, http.StatusNotFound, "no such measurement"},
		{"internal error", func(w http.ResponseWriter) { InternalServerError(w, "query failed") }, http.StatusInternalServerError, "query failed"},
		{"method not allowed", func(w http.ResponseWriter) { MethodNotAllowed(w) }, http.StatusMethodNotAllowed, "method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %q, want application/json", ct)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestWriteJSONOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"count": 42})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var body map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["count"] != 42 {
		t.Errorf("count = %d, want 42", body["count"])
	}
}

func TestWriteJSONCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONCreated(rec, map[string]string{"guid": "d290f1ee-6c54-4b01-90e6-d701748f0851"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["guid"] != "d290f1ee-6c54-4b01-90e6-d701748f0851" {
		t.Errorf("guid = %q", body["guid"])
	}
}
