package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestRequestLoggerRecordsRouteAndStatus(t *testing.T) {
	logger, logs := newObserved()

	r := chi.NewRouter()
	r.Use(middleware.RequestID, InjectLoggerMiddleware(logger), RequestLoggerMiddleware())
	r.Get("/philosophy/select/{index}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Debug("handler ran")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("nope"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/philosophy/select/9", nil))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "handler ran", logs.All()[0].Message)

	done := logs.FilterMessage("request completed").All()
	require.Len(t, done, 1)
	fields := done[0].ContextMap()
	assert.Equal(t, "/philosophy/select/{index}", fields["route"])
	assert.EqualValues(t, 400, fields["status"])
	assert.EqualValues(t, 4, fields["bytes"])
	assert.NotEmpty(t, fields["request_id"])
	assert.Equal(t, zap.WarnLevel, done[0].Level)
}

func TestRequestLoggerLogsPanicsAsErrors(t *testing.T) {
	logger, logs := newObserved()
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	bare := InjectLoggerMiddleware(logger)(RequestLoggerMiddleware()(boom))
	assert.Panics(t, func() {
		bare.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
	recovered := InjectLoggerMiddleware(logger)(RequestLoggerMiddleware()(RecoveryMiddleware(nil)(boom)))
	rec := httptest.NewRecorder()
	recovered.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	done := logs.FilterMessage("request completed").All()
	require.Len(t, done, 2)
	for _, entry := range done {
		assert.Equal(t, zap.ErrorLevel, entry.Level)
		assert.EqualValues(t, 500, entry.ContextMap()["status"])
	}
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestRecoveryMiddlewareWritesJSON(t *testing.T) {
	logger, logs := newObserved()

	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_server_error", body["error"])
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestFromContextWithoutLogger(t *testing.T) {
	assert.NotNil(t, FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestNewLoggerFallsBackOnUnknownLevel(t *testing.T) {
	l, err := NewLogger("chatty")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	assert.Equal(t, "GETX", SanitizeMethod("GET\nX"))
	assert.Equal(t, "/", SanitizeRoute(""))
}
