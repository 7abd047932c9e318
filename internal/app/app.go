package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/five82/bakehouse/internal/catalog"
	"github.com/five82/bakehouse/internal/config"
	"github.com/five82/bakehouse/internal/logging"
	"github.com/five82/bakehouse/internal/metrics"
	"github.com/five82/bakehouse/internal/prefs"
	"github.com/five82/bakehouse/internal/ui"
)

const shutdownTimeout = 5 * time.Second

// Options configure the bakehouse application. Non-empty overrides win over
// the config file.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/bakehouse/prefs.toml

	CatalogSource string
	CatalogPath   string
	CatalogURL    string
	MetricsAddr   string
	LogFile       string
	LogLevel      string
	TimeUnit      time.Duration
}

// LoadConfig reads the config file and applies the overrides in opts.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	if v := strings.TrimSpace(opts.CatalogSource); v != "" {
		cfg.CatalogSource = strings.ToLower(v)
	}
	if v := strings.TrimSpace(opts.CatalogPath); v != "" {
		if cfg.CatalogPath, err = config.ExpandPath(v); err != nil {
			return config.Config{}, fmt.Errorf("catalog path: %w", err)
		}
	}
	if v := strings.TrimSpace(opts.CatalogURL); v != "" {
		cfg.CatalogURL = v
	}
	if v := strings.TrimSpace(opts.MetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
	if v := strings.TrimSpace(opts.LogFile); v != "" {
		if cfg.LogFile, err = config.ExpandPath(v); err != nil {
			return config.Config{}, fmt.Errorf("log file: %w", err)
		}
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if opts.TimeUnit > 0 {
		cfg.TimeUnit = opts.TimeUnit
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Run boots the game and the TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	game, err := NewGame(GameOptions{Config: cfg, Recorder: recorder, Logger: logger})
	if err != nil {
		return fmt.Errorf("init game: %w", err)
	}
	defer game.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := game.Start(ctx); err != nil {
		return err
	}

	var metricsLn net.Listener
	if cfg.MetricsAddr != "" {
		lc := net.ListenConfig{}
		if metricsLn, err = lc.Listen(ctx, "tcp", cfg.MetricsAddr); err != nil {
			return fmt.Errorf("metrics listener %s: %w", cfg.MetricsAddr, err)
		}
		logger.Info("Metrics endpoint listening", "addr", metricsLn.Addr().String())
	}

	themeName := prefs.Load(opts.PrefsPath).Theme
	if themeName == "" {
		themeName = cfg.Theme
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Quitting the UI ends the whole run.
		defer cancel()
		return ui.Run(gctx, ui.Options{
			Intents:   game.Intents,
			Store:     game.Store,
			SaleDelay: cfg.SaleDelay(),
			ThemeName: themeName,
			PrefsPath: opts.PrefsPath,
			LogPath:   cfg.LogFile,
		})
	})
	if metricsLn != nil {
		g.Go(func() error {
			return serve(gctx, "metrics", metricsLn, metricsMux(reg), logger)
		})
	}
	return g.Wait()
}

// ServeCatalog serves source over HTTP at addr until ctx is cancelled.
func ServeCatalog(ctx context.Context, addr string, source catalog.Fetcher, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(addr) == "" {
		addr = catalog.DefaultAddr
	}
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("catalog listener %s: %w", addr, err)
	}
	logger.Info("Catalog server listening", "addr", ln.Addr().String())
	return serve(ctx, "catalog", ln, catalog.Handler(source), logger)
}

func metricsMux(reg *prom.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.HTTPHandler(reg))
	return mux
}

// serve runs handler on the pre-bound listener and shuts the server down
// when ctx ends.
func serve(ctx context.Context, kind string, ln net.Listener, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server: %w", kind, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server shutdown: %w", kind, err)
	}
	logger.Info("HTTP server stopped", "kind", kind)
	return nil
}
