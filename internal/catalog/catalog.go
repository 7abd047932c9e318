package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/five82/bakehouse/internal/state"
)

// DefaultDelay is the simulated latency of a Static fetch.
const DefaultDelay = 3 * time.Second

// ErrInvalidCatalog is returned when fetched items fail validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Fetcher retrieves the purchasable catalog. Implementations must honour
// context cancellation.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]state.CatalogItem, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]state.CatalogItem, error)

// FetchCatalog calls f.
func (f FetcherFunc) FetchCatalog(ctx context.Context) ([]state.CatalogItem, error) {
	return f(ctx)
}

var (
	_ Fetcher = (*Static)(nil)
	_ Fetcher = (*File)(nil)
	_ Fetcher = (*Client)(nil)
	_ Fetcher = FetcherFunc(nil)
)

// Default returns the built-in bakery catalog.
func Default() []state.CatalogItem {
	return []state.CatalogItem{
		{ID: "grandma", Name: "Grandma's Kitchen", ProductionRate: 0.1, Cost: 15},
		{ID: "amateur", Name: "Amateur Bakery", ProductionRate: 1, Cost: 100},
		{ID: "professional", Name: "Professional Bakery", ProductionRate: 10, Cost: 500},
	}
}

// Validate checks ids are present and unique and that rates and costs are
// finite and non-negative.
func Validate(items []state.CatalogItem) error {
	seen := make(map[string]struct{}, len(items))
	var errs []error
	for i, item := range items {
		id := strings.TrimSpace(item.ID)
		switch {
		case id == "":
			errs = append(errs, fmt.Errorf("item %d: id is empty", i))
			continue
		case id != item.ID:
			errs = append(errs, fmt.Errorf("item %q: id has surrounding whitespace", item.ID))
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("item %q: duplicate id", id))
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(item.Name) == "" {
			errs = append(errs, fmt.Errorf("item %q: name is empty", id))
		}
		if item.ProductionRate < 0 || math.IsNaN(item.ProductionRate) || math.IsInf(item.ProductionRate, 0) {
			errs = append(errs, fmt.Errorf("item %q: production rate %v", id, item.ProductionRate))
		}
		if item.Cost < 0 {
			errs = append(errs, fmt.Errorf("item %q: cost %d", id, item.Cost))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}
	return nil
}

// Static serves a fixed catalog after Delay.
type Static struct {
	Items []state.CatalogItem
	Delay time.Duration
}

// FetchCatalog waits Delay and returns a copy of Items, or Default when Items
// is nil.
func (s *Static) FetchCatalog(ctx context.Context) ([]state.CatalogItem, error) {
	if err := sleep(ctx, s.Delay); err != nil {
		return nil, err
	}
	items := s.Items
	if items == nil {
		items = Default()
	}
	return append([]state.CatalogItem(nil), items...), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
