package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Catalog sources.
const (
	SourceStatic = "static"
	SourceFile   = "file"
	SourceHTTP   = "http"
)

// Config is the resolved bakehouse configuration.
type Config struct {
	TimeUnit       time.Duration
	SaleDelayUnits int
	RefundRatio    float64

	CatalogSource string
	CatalogPath   string
	CatalogURL    string
	FetchDelay    time.Duration
	WatchCatalog  bool

	MetricsAddr string
	LogFile     string
	LogLevel    string
	Theme       string
}

const (
	defaultConfigPath     = "~/.config/bakehouse/config.toml"
	defaultLogFile        = "~/.local/state/bakehouse/bakehouse.log"
	defaultCatalogURL     = "127.0.0.1:7490"
	defaultTimeUnit       = time.Second
	defaultSaleDelayUnits = 3
	defaultRefundRatio    = 0.8
	defaultFetchDelay     = 3 * time.Second
	defaultLogLevel       = "info"
	defaultTheme          = "Dracula"
)

// ErrInvalid marks configuration values that parse but make no sense.
var ErrInvalid = errors.New("invalid config")

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		TimeUnit:       defaultTimeUnit,
		SaleDelayUnits: defaultSaleDelayUnits,
		RefundRatio:    defaultRefundRatio,
		CatalogSource:  SourceStatic,
		CatalogURL:     defaultCatalogURL,
		FetchDelay:     defaultFetchDelay,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		Theme:          defaultTheme,
	}
}

// DefaultPath returns the config path used when none is given.
func DefaultPath() string {
	return defaultConfigPath
}

type rawConfig struct {
	TimeUnit       string   `toml:"time_unit"`
	SaleDelayUnits int      `toml:"sale_delay_units"`
	RefundRatio    *float64 `toml:"refund_ratio"`
	CatalogSource  string   `toml:"catalog_source"`
	CatalogPath    string   `toml:"catalog_path"`
	CatalogURL     string   `toml:"catalog_url"`
	FetchDelay     string   `toml:"fetch_delay"`
	WatchCatalog   bool     `toml:"watch_catalog"`
	MetricsAddr    string   `toml:"metrics_addr"`
	LogFile        string   `toml:"log_file"`
	LogLevel       string   `toml:"log_level"`
	Theme          string   `toml:"theme"`
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := raw.resolve(filepath.Dir(resolved))
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (raw rawConfig) resolve(baseDir string) (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(raw.TimeUnit); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: time_unit: %w", err)
		}
		cfg.TimeUnit = d
	}
	if raw.SaleDelayUnits != 0 {
		cfg.SaleDelayUnits = raw.SaleDelayUnits
	}
	if raw.RefundRatio != nil {
		cfg.RefundRatio = *raw.RefundRatio
	}
	if v := strings.ToLower(strings.TrimSpace(raw.CatalogSource)); v != "" {
		cfg.CatalogSource = v
	}
	if v := strings.TrimSpace(raw.CatalogPath); v != "" {
		if !strings.HasPrefix(v, "~") && !filepath.IsAbs(v) {
			v = filepath.Join(baseDir, v)
		}
		cfg.CatalogPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.CatalogURL); v != "" {
		cfg.CatalogURL = v
	}
	if v := strings.TrimSpace(raw.FetchDelay); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: fetch_delay: %w", err)
		}
		cfg.FetchDelay = d
	}
	cfg.WatchCatalog = raw.WatchCatalog
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(raw.Theme); v != "" {
		cfg.Theme = v
	}
	return cfg, nil
}

// Validate reports values that cannot run a game.
func (c Config) Validate() error {
	var errs []error
	if c.TimeUnit <= 0 {
		errs = append(errs, fmt.Errorf("time_unit must be positive, got %v", c.TimeUnit))
	}
	if c.SaleDelayUnits <= 0 {
		errs = append(errs, fmt.Errorf("sale_delay_units must be positive, got %d", c.SaleDelayUnits))
	}
	if c.RefundRatio < 0 || c.RefundRatio > 1 {
		errs = append(errs, fmt.Errorf("refund_ratio must be within [0, 1], got %v", c.RefundRatio))
	}
	if c.FetchDelay < 0 {
		errs = append(errs, fmt.Errorf("fetch_delay must not be negative, got %v", c.FetchDelay))
	}
	switch c.CatalogSource {
	case SourceStatic, SourceHTTP:
	case SourceFile:
		if c.CatalogPath == "" {
			errs = append(errs, errors.New("catalog_path is required when catalog_source is \"file\""))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog_source must be static, file or http, got %q", c.CatalogSource))
	}
	if c.WatchCatalog && c.CatalogSource != SourceFile {
		errs = append(errs, errors.New("watch_catalog requires catalog_source \"file\""))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// SaleDelay is the undo window for a sale.
func (c Config) SaleDelay() time.Duration {
	return c.TimeUnit * time.Duration(c.SaleDelayUnits)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
