// Package httpapi implements the HTTP surface over the Submitter and the
// Job Store: POST /v1/jobs to submit, GET to inspect, DELETE to remove, and
// a bundle download route for the docs-plus-comments fallback artifact.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// writeJSON mirrors the teacher's handlers.WriteJSON: one place that sets
// the content type and status before encoding.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError mirrors the teacher's handlers.WriteError response envelope.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}
