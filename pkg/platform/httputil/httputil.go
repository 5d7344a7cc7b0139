// Package httputil centralizes JSON encoding and domain error translation for
// HTTP handlers so every endpoint speaks the same envelope.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "veritas/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the stable JSON error envelope.
// Internal errors suppress the description so store/driver detail never
// crosses the API boundary.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if msg := dErrors.Message(err); msg != "" {
			body["error_description"] = msg
		}
	}
	WriteJSON(w, dErrors.HTTPStatus(code), body)
}

// Decode parses a JSON request body into T. A false return means the error
// response has already been written.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return req, false
	}
	return req, true
}

// Validatable is implemented by request types that validate themselves after
// decoding.
type Validatable interface {
	Validate() error
}

// DecodeValid parses a JSON request body into T and runs its Validate method
// when present. A false return means the error response has already been
// written.
func DecodeValid[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
