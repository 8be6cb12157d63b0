// Package shared holds response helpers used by every handler package so
// error envelopes stay consistent across the API.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "rifa/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Non-domain errors are reported as internal without leaking detail.
func WriteError(w http.ResponseWriter, err error) {
	code := pkgerrors.HasCode(err)
	message := "internal error"
	var de *pkgerrors.DomainError
	if errors.As(err, &de) {
		message = de.Message
	}
	WriteJSON(w, pkgerrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": message,
	})
}
