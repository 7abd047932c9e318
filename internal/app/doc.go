// Package app is the composition root for bakehouse.
//
// # Overview
//
// NewGame wires the state store, production scheduler, sale manager and
// intent orchestrator around one timer service and one catalog source.
// Run adds the ambient pieces around a Game: config loading, the log file,
// a Prometheus registry, the optional metrics endpoint and the TUI.
//
// # Startup
//
//  1. Load ~/.config/bakehouse/config.toml and apply command-line overrides
//  2. Open the log file and install it as the default slog logger
//  3. Build the Game and start production, the catalog watcher and the
//     initial catalog fetch
//  4. Run the TUI and, when metrics_addr is set, the /metrics server in one
//     errgroup
//
// Quitting the TUI cancels the group. Game.Close then stops the watcher,
// the orchestrator, pending sales, production and the timer scheduler in
// that order. Pending sales are abandoned, not committed.
//
// # Catalog server
//
// ServeCatalog exposes any catalog.Fetcher as GET /api/catalog so another
// bakehouse can use catalog_source = "http".
package app
