package state

import (
	"math"
	"slices"
)

// FetchStatus tracks the catalog fetch lifecycle.
type FetchStatus int

const (
	FetchIdle FetchStatus = iota
	FetchLoading
	FetchLoaded
)

func (s FetchStatus) String() string {
	switch s {
	case FetchLoading:
		return "loading"
	case FetchLoaded:
		return "loaded"
	default:
		return "idle"
	}
}

// CatalogItem describes a bakery that can be bought.
type CatalogItem struct {
	ID             string  `json:"id" toml:"id"`
	Name           string  `json:"name" toml:"name"`
	ProductionRate float64 `json:"productionRate" toml:"production_rate"`
	Cost           int64   `json:"cost" toml:"cost"`
}

// OwnedUnit is a purchased bakery.
type OwnedUnit struct {
	ID            int
	CatalogItemID string
	PendingSale   bool
}

// Active reports whether the unit is producing (not waiting on a sale).
func (u OwnedUnit) Active() bool {
	return !u.PendingSale
}

// Snapshot is the immutable state published after every applied event.
type Snapshot struct {
	Cookies        int64
	Catalog        []CatalogItem
	Units          []OwnedUnit
	FetchStatus    FetchStatus
	LastFetchError error

	// Retained keeps catalog entries that owned units still reference after
	// a refresh dropped them from Catalog.
	Retained map[string]CatalogItem

	// Version counts applied events. It only moves forward.
	Version uint64
}

// Lookup resolves a catalog item id against the live catalog, then against
// entries retained for owned units.
func (s Snapshot) Lookup(id string) (CatalogItem, bool) {
	if item, ok := s.CatalogItem(id); ok {
		return item, true
	}
	item, ok := s.Retained[id]
	return item, ok
}

// CatalogItem resolves id against the live catalog only.
func (s Snapshot) CatalogItem(id string) (CatalogItem, bool) {
	for _, item := range s.Catalog {
		if item.ID == id {
			return item, true
		}
	}
	return CatalogItem{}, false
}

// Unit returns the owned unit with the given id.
func (s Snapshot) Unit(id int) (OwnedUnit, bool) {
	for _, u := range s.Units {
		if u.ID == id {
			return u, true
		}
	}
	return OwnedUnit{}, false
}

// ActiveUnits returns the units that are not pending a sale.
func (s Snapshot) ActiveUnits() []OwnedUnit {
	var active []OwnedUnit
	for _, u := range s.Units {
		if u.Active() {
			active = append(active, u)
		}
	}
	return active
}

// Clone returns a deep copy so callers can never alias store internals.
func (s Snapshot) Clone() Snapshot {
	dup := s
	dup.Catalog = slices.Clone(s.Catalog)
	dup.Units = slices.Clone(s.Units)
	if s.Retained != nil {
		dup.Retained = make(map[string]CatalogItem, len(s.Retained))
		for k, v := range s.Retained {
			dup.Retained[k] = v
		}
	}
	return dup
}

// CanAfford is the purchase gate: a decrement of cost is allowed only when it
// leaves the count non-negative.
func CanAfford(cookies, cost int64) bool {
	return cookies >= cost
}

// RefundFor returns the sell price of an item, rounded down to whole cookies.
func RefundFor(item CatalogItem, ratio float64) int64 {
	if ratio <= 0 || item.Cost <= 0 {
		return 0
	}
	return int64(math.Floor(float64(item.Cost) * ratio))
}
