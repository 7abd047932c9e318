// Package catalog provides the sources the game can fetch its bakery catalog
// from.
//
//   - Static returns a fixed list (Default unless overridden) after a
//     simulated network delay.
//   - File reads a TOML document of [[bakery]] tables on every fetch.
//   - Client calls GET /api/catalog on a catalog server; Handler is the
//     server side of that endpoint.
//
// Every source validates what it returns. Watcher turns edits of a catalog
// file into refresh requests.
package catalog
