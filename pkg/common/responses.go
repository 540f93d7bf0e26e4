package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "inventory-backend/pkg/errors"
)

// DefaultMaxBodyBytes caps request bodies read by ParseJSONBody.
const DefaultMaxBodyBytes int64 = 1 << 20

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// ParseJSONBody decodes one JSON document from the request body, rejecting
// unknown fields and bodies over maxBytes. Failures are validation errors.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.NewValidationError("request body is empty")
		case errors.As(err, &tooLarge):
			return apperrors.NewValidationError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		default:
			return apperrors.NewValidationError("invalid request body: " + err.Error())
		}
	}
	if decoder.More() {
		return apperrors.NewValidationError("request body must hold a single JSON document")
	}
	return nil
}
