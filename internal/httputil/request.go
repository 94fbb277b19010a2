package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// DefaultMaxBodyBytes is the body limit ParseJSON applies.
const DefaultMaxBodyBytes = 1 << 20

// ParseJSON decodes JSON from the request body into the given destination.
// It limits the request body size to prevent abuse and provides clear error messages.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	return ParseJSONLimit(w, r, dest, DefaultMaxBodyBytes)
}

// ParseJSONLimit is ParseJSON with an explicit body limit in bytes.
func ParseJSONLimit(w http.ResponseWriter, r *http.Request, dest interface{}, limit int64) error {
	// requires w for proper 413 response
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
