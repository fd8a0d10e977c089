// Package httpserver assembles the router, middleware stack and routes of
// the site.
package httpserver

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atimot/najilaboule/internal/handlers"
	custommw "github.com/atimot/najilaboule/internal/middleware"
	"github.com/atimot/najilaboule/internal/observability"
)

const (
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

// Config holds runtime options for the HTTP server.
type Config struct {
	Address       string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	Handlers      *handlers.Handlers
	Assets        fs.FS
	Logger        *zap.Logger
	SecureCookies bool
	// Dev makes assets revalidate on every request.
	Dev bool
}

// New constructs the HTTP server with the middleware stack and routes.
func New(cfg Config) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           Router(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       orDefault(cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout:      orDefault(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       orDefault(cfg.IdleTimeout, defaultIdleTimeout),
	}
}

// Router builds the chi router. Split from New so tests can mount it on an
// httptest server.
func Router(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := cfg.Handlers

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; deploy behind a proxy that sets it.
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLoggerMiddleware(logger))
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware(logger))

	r.Get("/healthz", handlers.Healthz)
	if cfg.Assets != nil {
		r.Handle("/assets/*", custommw.AssetsWithCache(cfg.Assets, "/assets", cfg.Dev))
	}

	r.Group(func(r chi.Router) {
		r.Use(custommw.HTMX)
		r.Use(custommw.VaryLocale)
		r.Use(custommw.CSRF(cfg.SecureCookies))

		// Long-lived streams: no compression, no request timeout.
		r.Get("/philosophy/events", h.PhilosophyEvents)
		r.Get("/menu/events", h.MenuEvents)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5))
			r.Use(chimw.Timeout(defaultRequestTimeout))

			r.Get("/", h.Home)
			r.Post("/language/{code}", h.SetLanguage)
			r.Get("/philosophy", h.Philosophy)
			r.Post("/philosophy/select/{index}", h.SelectPhilosophy)
			r.Get("/menu", h.Menu)
			r.Post("/menu/select/{index}", h.SelectMenu)
			r.Post("/menu/drag", h.MenuDrag)
		})
	})

	return r
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
