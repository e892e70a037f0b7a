// Package server exposes the monitoring API over HTTP: check-ins,
// status queries, target management, notification administration and
// the websocket event stream.
package server

import (
	"encoding/json"
	"log"
	"net/http"
)

// respondJSON writes data as a JSON response.
func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("server: failed to encode JSON response: %v", err)
	}
}

// respondError writes a JSON error response with the given status code.
func respondError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
