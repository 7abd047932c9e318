package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler serves GET /api/catalog from source. Each request fetches anew,
// so a File source picks up edits without a restart.
func Handler(source Fetcher) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+catalogPath, func(w http.ResponseWriter, r *http.Request) {
		items, err := source.FetchCatalog(r.Context())
		if err != nil {
			slog.Error("Catalog fetch failed", "remote", r.RemoteAddr, "error", err)
			http.Error(w, "catalog unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(Response{Bakeries: items}); err != nil {
			slog.Warn("Failed to write catalog response", "error", err)
			return
		}
		slog.Debug("Served catalog", "remote", r.RemoteAddr, "items", len(items))
	})
	return mux
}
