package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/five82/bakehouse/internal/app"
	"github.com/five82/bakehouse/internal/catalog"
	"github.com/five82/bakehouse/internal/logging"
)

var version = "dev"

// CLI is the root command line.
type CLI struct {
	Config  string           `short:"c" help:"Config file path (defaults to ~/.config/bakehouse/config.toml)" env:"BAKEHOUSE_CONFIG"`
	Prefs   string           `help:"Preferences file path" env:"BAKEHOUSE_PREFS"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Play         PlayCmd         `cmd:"" default:"withargs" help:"Play the game (default)"`
	ServeCatalog ServeCatalogCmd `cmd:"" name:"serve-catalog" help:"Serve a bakery catalog over HTTP"`
}

// PlayCmd runs the TUI game.
type PlayCmd struct {
	CatalogSource string        `help:"Catalog source: static, file or http" env:"BAKEHOUSE_CATALOG_SOURCE"`
	CatalogFile   string        `help:"Catalog TOML file for the file source" env:"BAKEHOUSE_CATALOG_FILE"`
	CatalogURL    string        `help:"Catalog server address for the http source" env:"BAKEHOUSE_CATALOG_URL"`
	MetricsAddr   string        `help:"Serve Prometheus metrics on this address" env:"BAKEHOUSE_METRICS_ADDR"`
	LogFile       string        `help:"Log file path" env:"BAKEHOUSE_LOG_FILE"`
	LogLevel      string        `help:"Log level: debug, info, warn or error" env:"BAKEHOUSE_LOG_LEVEL"`
	TimeUnit      time.Duration `help:"Length of one game time unit" env:"BAKEHOUSE_TIME_UNIT"`
}

// Run starts the game.
func (c *PlayCmd) Run(ctx context.Context, root *CLI) error {
	return app.Run(ctx, app.Options{
		ConfigPath:    root.Config,
		PrefsPath:     root.Prefs,
		CatalogSource: c.CatalogSource,
		CatalogPath:   c.CatalogFile,
		CatalogURL:    c.CatalogURL,
		MetricsAddr:   c.MetricsAddr,
		LogFile:       c.LogFile,
		LogLevel:      c.LogLevel,
		TimeUnit:      c.TimeUnit,
	})
}

// ServeCatalogCmd serves a catalog for other players.
type ServeCatalogCmd struct {
	Addr        string        `help:"Listen address" default:"${catalog_addr}" env:"BAKEHOUSE_SERVE_ADDR"`
	CatalogFile string        `help:"Serve this TOML catalog instead of the built-in one" env:"BAKEHOUSE_CATALOG_FILE"`
	Delay       time.Duration `help:"Simulated latency per request" default:"0s"`
	LogLevel    string        `help:"Log level: debug, info, warn or error" default:"info" env:"BAKEHOUSE_LOG_LEVEL"`
}

// Run serves until interrupted.
func (c *ServeCatalogCmd) Run(ctx context.Context) error {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)

	var source catalog.Fetcher = &catalog.Static{Delay: c.Delay}
	if c.CatalogFile != "" {
		file := &catalog.File{Path: c.CatalogFile, Delay: c.Delay}
		if _, err := file.FetchCatalog(ctx); err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		source = file
	}
	return app.ServeCatalog(ctx, c.Addr, source, logger)
}

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "bakehouse: load .env: %v\n", err)
		return 1
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("bakehouse"),
		kong.Description("An idle bakery game for the terminal."),
		kong.UsageOnError(),
		kong.Vars{
			"version":      version,
			"catalog_addr": catalog.DefaultAddr,
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "bakehouse: %v\n", err)
		return 1
	}
	return 0
}
