package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/five82/bakehouse/internal/state"
)

// Response is the JSON body of GET /api/catalog.
type Response struct {
	Bakeries []state.CatalogItem `json:"bakeries"`
}

// Client fetches the catalog from a bakehouse catalog server.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	// DefaultAddr is where serve-catalog listens by default.
	DefaultAddr      = "127.0.0.1:7490"
	catalogPath      = "/api/catalog"
	defaultUserAgent = "bakehouse/0.1"
	requestTimeout   = 10 * time.Second
)

// NewClient builds a Client for the given host:port or URL.
func NewClient(addr string) (*Client, error) {
	base, err := parseBaseURL(addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// FetchCatalog retrieves and validates the remote catalog.
func (c *Client) FetchCatalog(ctx context.Context) ([]state.CatalogItem, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload Response
	if err := c.do(ctx, http.MethodGet, catalogPath, &payload); err != nil {
		return nil, err
	}
	if err := Validate(payload.Bakeries); err != nil {
		return nil, err
	}
	if payload.Bakeries == nil {
		payload.Bakeries = []state.CatalogItem{}
	}
	return payload.Bakeries, nil
}

func (c *Client) do(ctx context.Context, method, path string, dest any) error {
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(addr string) (*url.URL, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		trimmed = DefaultAddr
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse catalog url %q: %w", addr, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
