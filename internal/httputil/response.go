// Package httputil holds the JSON response helpers shared by the API
// handlers. Every response on the wire is JSON, including errors, so
// clients never have to sniff content types.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The status line is already out; all we can do is log.
		log.Printf("httputil: encoding %T response: %v", v, err)
	}
}

// WriteJSONOK writes v as a 200 response.
func WriteJSONOK(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

// WriteJSONCreated writes v as a 201 response.
func WriteJSONCreated(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusCreated, v)
}

// BadRequest reports a 400 with msg in the error body.
func BadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{msg})
}

// NotFound reports a 404 with msg in the error body.
func NotFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, errorBody{msg})
}

// InternalServerError reports a 500 with msg in the error body.
func InternalServerError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusInternalServerError, errorBody{msg})
}

// MethodNotAllowed reports a 405.
func MethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{"method not allowed"})
}
