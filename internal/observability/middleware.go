package observability

import (
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atimot/najilaboule/internal/httpx"
)

// InjectLoggerMiddleware puts logger on every request context.
func InjectLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}

// RequestLoggerMiddleware writes one access line per request. Event streams
// are logged when they end. The request logger carrying request_id is put
// back on the context for handlers.
func RequestLoggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqLogger := FromContext(ctx).With(
				zap.String("request_id", middleware.GetReqID(ctx)),
				zap.String("method", SanitizeMethod(r.Method)),
				zap.String("remote_ip", clientIP(r.RemoteAddr)),
			)
			r = r.WithContext(WithLogger(ctx, reqLogger))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			completed := false
			defer func() {
				entry := accessEntry{
					route:   routePattern(r),
					status:  ww.Status(),
					bytes:   ww.BytesWritten(),
					latency: time.Since(started),
					panic:   !completed,
				}
				entry.log(reqLogger)
			}()
			next.ServeHTTP(ww, r)
			completed = true
		})
	}
}

type accessEntry struct {
	route   string
	status  int
	bytes   int
	latency time.Duration
	panic   bool
}

func (e accessEntry) level() zapcore.Level {
	switch {
	case e.panic || e.status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case e.status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func (e accessEntry) log(l *zap.Logger) {
	if e.status == 0 {
		// Nothing written: net/http answers 200, a panic ends up as 500.
		e.status = http.StatusOK
		if e.panic {
			e.status = http.StatusInternalServerError
		}
	}
	if ce := l.Check(e.level(), "request completed"); ce != nil {
		ce.Write(
			zap.String("route", SanitizeRoute(e.route)),
			zap.Int("status", e.status),
			zap.Duration("latency", e.latency),
			zap.Int("bytes", e.bytes),
		)
	}
}

// RecoveryMiddleware turns a panic into a logged 500 JSON error. Aborted
// handlers are re-panicked for net/http.
func RecoveryMiddleware(fallback *zap.Logger) func(http.Handler) http.Handler {
	if fallback == nil {
		fallback = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger := fallback
				if l, ok := r.Context().Value(loggerKey{}).(*zap.Logger); ok && l != nil {
					logger = l
				}
				logger.Error("panic recovered", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
				httpx.WriteError(r.Context(), w, httpx.NewError("internal_server_error", "internal server error", http.StatusInternalServerError))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// clientIP strips the port; chi's RealIP has already resolved proxies.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}
	return sanitizeString(remoteAddr, 64)
}
