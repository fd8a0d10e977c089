package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorEnvelope(t *testing.T) {
	var rec *httptest.ResponseRecorder
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(r.Context(), w, BadRequest("unknown_language", "unknown\nlanguage \"fr\"").
			WithDetails(map[string]any{"language": "fr", "status": 999}))
	}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/language/fr", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unknown_language", body["error"])
	assert.Equal(t, "unknown language \"fr\"", body["message"])
	assert.EqualValues(t, 400, body["status"])
	assert.Equal(t, "fr", body["language"])
	assert.NotEmpty(t, body["request_id"])
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, NewError("x", "y", 0).Status)
}

func TestWriteErrorUnwrapsAndHidesInternals(t *testing.T) {
	wrapped := fmt.Errorf("select: %w", NewError("session_closed", "session expired", http.StatusGone))
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, wrapped)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"session_closed"`)
	assert.NotContains(t, rec.Body.String(), "request_id")

	rec = httptest.NewRecorder()
	WriteError(context.Background(), rec, errors.New("dial tcp 10.0.0.1: refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestClipKeepsRunesWhole(t *testing.T) {
	got := clip("営業時間", 7)
	assert.Equal(t, "営業", got)
	assert.Equal(t, "a b", clip(" a\nb ", 10))
}
