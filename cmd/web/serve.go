package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	najilaboule "github.com/atimot/najilaboule"
	"github.com/atimot/najilaboule/internal/config"
	"github.com/atimot/najilaboule/internal/format"
	"github.com/atimot/najilaboule/internal/handlers"
	"github.com/atimot/najilaboule/internal/httpserver"
	"github.com/atimot/najilaboule/internal/i18n"
	"github.com/atimot/najilaboule/internal/observability"
	"github.com/atimot/najilaboule/internal/session"
	"github.com/atimot/najilaboule/internal/site"
)

type serveOptions struct {
	envFile string
	addr    string
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.envFile, "env-file", ".env", "dotenv file to read (empty to skip)")
	cmd.Flags().StringVar(&o.addr, "addr", "", "listen address, overrides NAJI_WEB_ADDR")
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runServe(parent context.Context, opts serveOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	loadOpts := []config.Option{config.WithEnvFile(opts.envFile)}
	if opts.addr != "" {
		loadOpts = append(loadOpts, config.WithEnvMap(map[string]string{"NAJI_WEB_ADDR": opts.addr}))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return err
	}

	baseLogger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() { _ = baseLogger.Sync() }()
	logger := baseLogger.Named("web")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	store, watchDir, err := loadStore(cfg)
	if err != nil {
		return err
	}
	src := i18n.NewSource(store)

	if len(cfg.Session.HashKey) == 0 {
		logger.Warn("session keys not configured; generated keys will not survive a restart")
	}
	sessions, err := session.NewManager(src, session.Config{
		HashKey:       cfg.Session.HashKey,
		BlockKey:      cfg.Session.BlockKey,
		Secure:        cfg.Session.Secure,
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
		MaxViews:      cfg.Session.MaxViews,
		Logger:        logger.Named("session"),
		View: session.ViewConfig{
			PhilosophyInterval: cfg.Carousel.PhilosophyInterval,
			MenuInterval:       cfg.Carousel.MenuInterval,
			MenuItems:          len(site.MenuItems),
			DragSensitivity:    cfg.Carousel.DragSensitivity,
			Logger:             logger.Named("carousel"),
		},
	})
	if err != nil {
		return fmt.Errorf("initialise sessions: %w", err)
	}

	tmplFS, err := pickFS(cfg.Dev, "templates", najilaboule.Templates, "templates")
	if err != nil {
		return err
	}
	tmpl, err := handlers.NewTemplates(tmplFS, cfg.Dev)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	assets, err := pickFS(cfg.Dev, "public/assets", najilaboule.Public, "public/assets")
	if err != nil {
		return err
	}

	server := httpserver.New(httpserver.Config{
		Address:      cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Assets:       assets,
		Logger:       logger.Named("http"),
		Handlers: &handlers.Handlers{
			Sessions:  sessions,
			Source:    src,
			Templates: tmpl,
			Text:      format.NewRenderer(),
			Analytics: handlers.Analytics{
				GA4MeasurementID: cfg.Analytics.GA4MeasurementID,
				GTMContainerID:   cfg.Analytics.GTMContainerID,
				Debug:            cfg.Analytics.Debug,
			},
			BaseURL:       cfg.BaseURL,
			SecureCookies: cfg.Session.Secure,
		},
		SecureCookies: cfg.Session.Secure,
		Dev:           cfg.Dev,
	})

	// Request contexts end when shutdown starts so open event streams return.
	streamCtx, cancelStreams := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelStreams()
	server.BaseContext = func(net.Listener) context.Context { return streamCtx }
	server.RegisterOnShutdown(cancelStreams)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web listening",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.Env),
			zap.Bool("dev", cfg.Dev),
			zap.Strings("languages", langStrings(store.Languages())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received; draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
		return nil
	})
	g.Go(func() error { return sessions.Run(gctx) })
	if watchDir != "" {
		watcher := i18n.NewWatcher(watchDir, store.Default(), src, logger.Named("locales"))
		g.Go(func() error { return watcher.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("web stopped with error", zap.Error(err))
		return err
	}
	logger.Info("web stopped")
	return nil
}

// loadStore reads the locales from cfg.Locales.Dir when it exists and from
// the embedded copies otherwise. The returned dir is non-empty when the
// files should be watched for edits.
func loadStore(cfg config.Config) (*i18n.Store, string, error) {
	def := i18n.Lang(cfg.Locales.DefaultLang)
	if dir := cfg.Locales.Dir; dir != "" && isDir(dir) {
		store, err := i18n.Load(os.DirFS(dir), ".", def)
		if err != nil {
			return nil, "", fmt.Errorf("load locales from %s: %w", dir, err)
		}
		if cfg.Dev {
			return store, dir, nil
		}
		return store, "", nil
	}
	store, err := i18n.Load(najilaboule.Locales, "locales", def)
	if err != nil {
		return nil, "", fmt.Errorf("load embedded locales: %w", err)
	}
	return store, "", nil
}

// pickFS serves dir from disk in dev mode when it exists, so edits show up
// without a rebuild, and the embedded copy otherwise.
func pickFS(dev bool, dir string, embedded fs.FS, sub string) (fs.FS, error) {
	if dev && isDir(dir) {
		return os.DirFS(dir), nil
	}
	out, err := fs.Sub(embedded, sub)
	if err != nil {
		return nil, fmt.Errorf("open embedded %s: %w", sub, err)
	}
	return out, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func langStrings(langs []i18n.Lang) []string {
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		out = append(out, string(l))
	}
	return out
}
