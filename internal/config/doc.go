// Package config loads the bakehouse TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/bakehouse/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - time_unit: 1s (base production tick; all game delays scale with it)
//   - sale_delay_units: 3 (undo window = time_unit × sale_delay_units)
//   - refund_ratio: 0.8
//   - catalog_source: static, fetch_delay: 3s
//   - catalog_url: 127.0.0.1:7490 (used by catalog_source = "http")
//   - log_file: ~/.local/state/bakehouse/bakehouse.log, log_level: info
//   - theme: Dracula
//
// # TOML Format
//
//	time_unit = "1s"
//	sale_delay_units = 3
//	refund_ratio = 0.8
//	catalog_source = "file"
//	catalog_path = "bakeries.toml"
//	watch_catalog = true
//	metrics_addr = "127.0.0.1:9464"
//	log_level = "debug"
//
// A relative catalog_path is resolved against the config file's directory.
// Tilde expansion is performed for catalog_path and log_file.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, TOML or duration parse errors, and values rejected by
// Validate (wrapping ErrInvalid). Missing config files are not an error.
package config
