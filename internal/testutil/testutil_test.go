package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()

	req := NewTestRequest("GET", "/api/measurements")
	if req.Method != "GET" {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if req.URL.Path != "/api/measurements" {
		t.Errorf("path = %s, want /api/measurements", req.URL.Path)
	}
	if b, _ := io.ReadAll(req.Body); len(b) != 0 {
		t.Errorf("expected an empty body, got %d bytes", len(b))
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rec.Body.WriteString(`{"name":"lysozyme","count":3}`)

	var got struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	DecodeJSON(t, rec, &got)

	if got.Name != "lysozyme" {
		t.Errorf("name = %q, want lysozyme", got.Name)
	}
	if got.Count != 3 {
		t.Errorf("count = %d, want 3", got.Count)
	}
}

func TestNewUploadRequest(t *testing.T) {
	t.Parallel()

	payload := []byte{0x5a, 0x4d, 0x45, 0x53}
	req := NewUploadRequest(t, "/api/measurements", "file", "run.zmes", payload)

	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("ParseMultipartForm failed: %v", err)
	}
	files := req.MultipartForm.File["file"]
	if len(files) != 1 {
		t.Fatalf("expected 1 file part, got %d", len(files))
	}
	if files[0].Filename != "run.zmes" {
		t.Errorf("filename = %q, want run.zmes", files[0].Filename)
	}
	if files[0].Size != int64(len(payload)) {
		t.Errorf("size = %d, want %d", files[0].Size, len(payload))
	}
}
