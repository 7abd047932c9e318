package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/five82/bakehouse/internal/catalog"
	"github.com/five82/bakehouse/internal/config"
	"github.com/five82/bakehouse/internal/effects"
	"github.com/five82/bakehouse/internal/metrics"
	"github.com/five82/bakehouse/internal/production"
	"github.com/five82/bakehouse/internal/sale"
	"github.com/five82/bakehouse/internal/state"
	"github.com/five82/bakehouse/internal/timers"
)

// GameOptions configure NewGame. Zero fields fall back to what Config asks for.
type GameOptions struct {
	Config   config.Config
	Fetcher  catalog.Fetcher
	Timers   timers.Service
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Game is one running instance of the idle game: the store plus every
// component that reads or writes it.
type Game struct {
	Store      *state.Store
	Production *production.Scheduler
	Sales      *sale.Manager
	Intents    *effects.Orchestrator

	cfg       config.Config
	logger    *slog.Logger
	scheduler *timers.Scheduler
	watcher   *catalog.Watcher
}

// NewFetcher builds the catalog source selected by cfg.
func NewFetcher(cfg config.Config) (catalog.Fetcher, error) {
	switch cfg.CatalogSource {
	case config.SourceStatic, "":
		return &catalog.Static{Delay: cfg.FetchDelay}, nil
	case config.SourceFile:
		return &catalog.File{Path: cfg.CatalogPath, Delay: cfg.FetchDelay}, nil
	case config.SourceHTTP:
		client, err := catalog.NewClient(cfg.CatalogURL)
		if err != nil {
			return nil, fmt.Errorf("init catalog client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
}

// NewGame wires a Game. Nothing runs until Start.
func NewGame(opts GameOptions) (*Game, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		var err error
		if fetcher, err = NewFetcher(cfg); err != nil {
			return nil, err
		}
	}

	g := &Game{cfg: cfg, logger: logger}

	svc := opts.Timers
	if svc == nil {
		scheduler, err := timers.NewScheduler()
		if err != nil {
			return nil, err
		}
		g.scheduler = scheduler
		svc = scheduler
	}

	g.Store = state.New(state.WithObserver(func(ev state.Event, next state.Snapshot) {
		rec.EventApplied(ev.EventName())
		rec.SetCookies(next.Cookies)
	}))
	g.Production = production.New(g.Store, svc,
		production.WithTimeUnit(cfg.TimeUnit),
		production.WithLogger(logger.With("component", "production")),
		production.WithMetrics(rec))
	g.Sales = sale.NewManager(g.Store, svc,
		sale.WithDelay(cfg.SaleDelay()),
		sale.WithLogger(logger.With("component", "sale")),
		sale.WithMetrics(rec))
	g.Intents = effects.New(g.Store, fetcher, g.Sales,
		effects.WithRefundRatio(cfg.RefundRatio),
		effects.WithLogger(logger.With("component", "effects")),
		effects.WithMetrics(rec))

	if cfg.WatchCatalog && cfg.CatalogSource == config.SourceFile {
		w, err := catalog.NewWatcher(cfg.CatalogPath, catalog.DefaultDebounce, func() {
			g.Intents.RequestCatalog()
		})
		if err != nil {
			g.Close()
			return nil, err
		}
		g.watcher = w
	}
	return g, nil
}

// Start begins production, the catalog watcher if configured, and the
// initial catalog fetch.
func (g *Game) Start(ctx context.Context) error {
	if err := g.Production.Start(); err != nil {
		return fmt.Errorf("start production: %w", err)
	}
	if g.watcher != nil {
		if err := g.watcher.Start(ctx); err != nil {
			return err
		}
	}
	g.Intents.RequestCatalog()
	g.logger.Info("Game started",
		"catalog_source", g.cfg.CatalogSource,
		"time_unit", g.cfg.TimeUnit,
		"sale_delay", g.cfg.SaleDelay())
	return nil
}

// Close stops every component in dependency order. Pending sales are
// abandoned, not committed.
func (g *Game) Close() {
	if g.watcher != nil {
		if err := g.watcher.Stop(); err != nil {
			g.logger.Warn("Failed to stop catalog watcher", "error", err)
		}
	}
	if g.Intents != nil {
		g.Intents.Close()
	}
	if g.Sales != nil {
		g.Sales.Close()
	}
	if g.Production != nil {
		g.Production.Shutdown()
	}
	if g.scheduler != nil {
		if err := g.scheduler.Shutdown(); err != nil {
			g.logger.Warn("Failed to stop timer scheduler", "error", err)
		}
	}
	g.logger.Info("Game stopped")
}
