// Package respond provides shared JSON response utilities for API handlers.
package respond

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ErrorResponse is the standard error shape for all API errors.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// WriteJSON marshals a value and writes it with public cache headers.
func WriteJSON(w http.ResponseWriter, v any, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Vary", "Accept-Encoding")
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", maxAge, maxAge/2))
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

// WriteJSONBytes writes pre-marshaled JSON with public cache headers and an
// ETag for revalidation.
func WriteJSONBytes(w http.ResponseWriter, data []byte, ttl time.Duration, etag string) {
	maxAge := int(ttl.Seconds())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Vary", "Accept-Encoding")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", maxAge, maxAge/2))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// WriteJSONObject marshals a value and writes it without cache headers.
// Used for health checks and metadata.
func WriteJSONObject(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError sends a structured JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
