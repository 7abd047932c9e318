package catalog

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/bakehouse/internal/state"
)

func TestDefaultCatalog(t *testing.T) {
	items := Default()
	require.NoError(t, Validate(items))
	require.Len(t, items, 3)

	byID := map[string]state.CatalogItem{}
	for _, item := range items {
		byID[item.ID] = item
	}
	require.Equal(t, int64(15), byID["grandma"].Cost)
	require.Equal(t, 0.1, byID["grandma"].ProductionRate)
	require.Equal(t, int64(100), byID["amateur"].Cost)
	require.Equal(t, 10.0, byID["professional"].ProductionRate)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		items []state.CatalogItem
		ok    bool
	}{
		{"empty", nil, true},
		{"missing id", []state.CatalogItem{{Name: "x"}}, false},
		{"padded id", []state.CatalogItem{{ID: " x", Name: "x"}}, false},
		{"duplicate", []state.CatalogItem{{ID: "x", Name: "x"}, {ID: "x", Name: "y"}}, false},
		{"missing name", []state.CatalogItem{{ID: "x"}}, false},
		{"negative rate", []state.CatalogItem{{ID: "x", Name: "x", ProductionRate: -1}}, false},
		{"nan rate", []state.CatalogItem{{ID: "x", Name: "x", ProductionRate: math.NaN()}}, false},
		{"negative cost", []state.CatalogItem{{ID: "x", Name: "x", Cost: -1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.items)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestStatic_DelayAndCancel(t *testing.T) {
	s := &Static{Delay: 20 * time.Millisecond}
	start := time.Now()
	items, err := s.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, Default(), items)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&Static{Delay: time.Hour}).FetchCatalog(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStatic_ReturnsCopy(t *testing.T) {
	s := &Static{Items: []state.CatalogItem{{ID: "a", Name: "A"}}}
	items, err := s.FetchCatalog(context.Background())
	require.NoError(t, err)
	items[0].Name = "changed"
	require.Equal(t, "A", s.Items[0].Name)
}

const sampleTOML = `
[[bakery]]
id = "grandma"
name = "Grandma's Kitchen"
production_rate = 0.1
cost = 15

[[bakery]]
id = "donut"
name = "Donut Shop"
production_rate = 2.5
cost = 250
`

func TestFile_FetchCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o644))

	items, err := (&File{Path: path}).FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, []state.CatalogItem{
		{ID: "grandma", Name: "Grandma's Kitchen", ProductionRate: 0.1, Cost: 15},
		{ID: "donut", Name: "Donut Shop", ProductionRate: 2.5, Cost: 250},
	}, items)
}

func TestFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := (&File{Path: filepath.Join(dir, "missing.toml")}).FetchCatalog(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[[bakery]\n"), 0o644))
	_, err = (&File{Path: bad}).FetchCatalog(context.Background())
	require.Error(t, err)

	dup := filepath.Join(dir, "dup.toml")
	require.NoError(t, os.WriteFile(dup, []byte("[[bakery]]\nid=\"a\"\nname=\"A\"\n[[bakery]]\nid=\"a\"\nname=\"B\"\n"), 0o644))
	_, err = (&File{Path: dup}).FetchCatalog(context.Background())
	require.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestEncodeRoundTripsThroughParse(t *testing.T) {
	data, err := Encode(Default())
	require.NoError(t, err)
	items, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, Default(), items)
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	require.NoError(t, err)
	require.Equal(t, "http", u.Scheme)
	require.Equal(t, DefaultAddr, u.Host)

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	require.NoError(t, err)
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClientAgainstHandler(t *testing.T) {
	server := httptest.NewServer(Handler(&Static{}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	items, err := c.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, Default(), items)
}

func TestClient_Errors(t *testing.T) {
	var mode atomic.Value
	mode.Store("status")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch mode.Load() {
		case "status":
			http.Error(w, "nope", http.StatusInternalServerError)
		case "garbage":
			_, _ = w.Write([]byte("{not json"))
		case "invalid":
			_ = json.NewEncoder(w).Encode(Response{Bakeries: []state.CatalogItem{{ID: "x"}}})
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.FetchCatalog(context.Background())
	require.ErrorContains(t, err, "status 500")

	mode.Store("garbage")
	_, err = c.FetchCatalog(context.Background())
	require.ErrorContains(t, err, "decode response")

	mode.Store("invalid")
	_, err = c.FetchCatalog(context.Background())
	require.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestHandler_SourceFailure(t *testing.T) {
	h := Handler(FetcherFunc(func(context.Context) ([]state.CatalogItem, error) {
		return nil, os.ErrNotExist
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/catalog", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
