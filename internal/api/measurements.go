package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/lumen-data/particle.report/internal/db"
	"github.com/lumen-data/particle.report/internal/dls"
	"github.com/lumen-data/particle.report/internal/httputil"
)

// UploadSummary is the response body for a stored measurement archive.
type UploadSummary struct {
	CollectionID string   `json:"collectionId"`
	Label        string   `json:"label,omitempty"`
	SourceFile   string   `json:"sourceFile,omitempty"`
	RecordCount  int      `json:"recordCount"`
	SpectrumIDs  []string `json:"spectrumIds"`
}

// handleMeasurements accepts one measurement archive per request,
// either as a multipart "file" part or as the raw request body,
// converts it, and stores the resulting collection. The optional id and
// label query parameters name the collection; a missing id gets a
// fresh UUID.
func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxArchiveBytes)

	data, sourceFile, err := readArchiveBody(r)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("failed to read archive: %v", err))
		return
	}
	if len(data) == 0 {
		httputil.BadRequest(w, "empty archive body")
		return
	}

	opts := dls.ConvertOptions{
		ID:    r.URL.Query().Get("id"),
		Label: r.URL.Query().Get("label"),
	}
	a, err := dls.ConvertBytes(data, opts)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid archive: %v", err))
		return
	}

	if err := s.db.SaveAnalysis(a, sourceFile); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to store collection: %v", err))
		return
	}

	summary := UploadSummary{
		CollectionID: a.ID,
		Label:        a.Label,
		SourceFile:   sourceFile,
		RecordCount:  a.Len(),
		SpectrumIDs:  make([]string, 0, a.Len()),
	}
	for _, sp := range a.Spectra {
		summary.SpectrumIDs = append(summary.SpectrumIDs, sp.ID)
	}
	httputil.WriteJSONCreated(w, summary)
}

// readArchiveBody pulls the archive bytes out of the request. Multipart
// uploads use the "file" part and report its filename; anything else is
// treated as a raw archive body.
func readArchiveBody(r *http.Request) ([]byte, string, error) {
	ct := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(ct)
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("missing multipart file field: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		return data, header.Filename, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	return data, r.URL.Query().Get("filename"), nil
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	collections, err := s.db.Collections()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list collections: %v", err))
		return
	}
	if collections == nil {
		collections = []db.CollectionSummary{}
	}
	httputil.WriteJSONOK(w, collections)
}

// CollectionDetail is one collection with its spectra (variables
// omitted; the spectrum endpoint carries those).
type CollectionDetail struct {
	Collection db.CollectionSummary `json:"collection"`
	Spectra    []db.SpectrumRow     `json:"spectra"`
}

func (s *Server) handleCollectionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/collections/"))
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
	if spectra == nil {
		spectra = []db.SpectrumRow{}
	}
	httputil.WriteJSONOK(w, CollectionDetail{Collection: *summary, Spectra: spectra})
}
