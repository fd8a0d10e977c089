// Package httpx holds the JSON response helpers shared by the handlers.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
)

// Error is the JSON error envelope returned for rejected input. It is an
// error itself, so handlers may wrap it and still have WriteError find it.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	Details   map[string]any
}

// NewError constructs an Error. A zero status becomes 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: clip(code, 80), Message: clip(message, 512), Status: status}
}

// BadRequest is the 400 envelope used for invalid visitor input.
func BadRequest(code, message string) Error {
	return NewError(code, message, http.StatusBadRequest)
}

// WithDetails returns a copy carrying extra top-level JSON fields. Details
// never replace the envelope's own fields.
func (e Error) WithDetails(details map[string]any) Error {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	e.Details = merged
	return e
}

func (e Error) Error() string { return e.Code + ": " + e.Message }

// MarshalJSON flattens Details next to error, message, status and request_id.
func (e Error) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Details)+4)
	for k, v := range e.Details {
		out[k] = v
	}
	out["error"] = e.Code
	out["message"] = e.Message
	out["status"] = e.Status
	if e.RequestID != "" {
		out["request_id"] = e.RequestID
	} else {
		delete(out, "request_id")
	}
	return json.Marshal(out)
}

// WriteError writes err as the JSON envelope. Errors that do not wrap an
// Error are reported as a bare 500 so internals never leak. The request id
// comes from chi's RequestID middleware when unset.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	var env Error
	if !errors.As(err, &env) {
		env = NewError("internal_server_error", "internal server error", http.StatusInternalServerError)
	}
	if env.Status == 0 {
		env.Status = http.StatusInternalServerError
	}
	if env.RequestID == "" {
		env.RequestID = clip(middleware.GetReqID(ctx), 80)
	}
	WriteJSON(w, env.Status, env)
}

// WriteJSON writes v with the given status and no caching.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clip flattens line breaks and cuts s to at most limit bytes on a rune
// boundary.
func clip(s string, limit int) string {
	s = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
