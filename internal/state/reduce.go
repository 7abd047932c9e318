package state

import "slices"

// Apply returns the snapshot that results from applying ev to s. It is pure
// and total: events that do not change anything (unknown unit ids, unknown
// event types, negative increments) return s unchanged, including Version.
func Apply(s Snapshot, ev Event) Snapshot {
	next := s

	switch e := ev.(type) {
	case Increment:
		if e.Amount < 0 {
			return s
		}
		next.Cookies = s.Cookies + e.Amount

	case Decrement:
		next.Cookies = s.Cookies - e.Amount

	case CatalogFetchStarted:
		next.FetchStatus = FetchLoading

	case CatalogFetchSucceeded:
		next.FetchStatus = FetchLoaded
		next.LastFetchError = nil
		next.Catalog = slices.Clone(e.Items)
		next.Retained = retain(s, next.Catalog, s.Units)

	case CatalogFetchFailed:
		next.FetchStatus = FetchIdle
		next.LastFetchError = e.Err

	case UnitPurchased:
		units := make([]OwnedUnit, len(s.Units), len(s.Units)+1)
		copy(units, s.Units)
		next.Units = append(units, OwnedUnit{
			ID:            nextUnitID(s.Units),
			CatalogItemID: e.CatalogItemID,
		})

	case SaleStarted:
		units, ok := setPendingSale(s.Units, e.UnitID, true)
		if !ok {
			return s
		}
		next.Units = units

	case SaleCancelled:
		units, ok := setPendingSale(s.Units, e.UnitID, false)
		if !ok {
			return s
		}
		next.Units = units

	case SaleCommitted:
		idx := unitIndex(s.Units, e.UnitID)
		if idx < 0 {
			return s
		}
		next.Units = slices.Delete(slices.Clone(s.Units), idx, idx+1)
		next.Retained = retain(s, next.Catalog, next.Units)

	default:
		return s
	}

	next.Version = s.Version + 1
	return next
}

// nextUnitID is max(id)+1, or 0 for an empty list.
func nextUnitID(units []OwnedUnit) int {
	maxID := -1
	for _, u := range units {
		maxID = max(maxID, u.ID)
	}
	return maxID + 1
}

func unitIndex(units []OwnedUnit, id int) int {
	return slices.IndexFunc(units, func(u OwnedUnit) bool { return u.ID == id })
}

// setPendingSale returns a copy of units with the flag set. ok is false when
// the unit is missing or already in the requested state.
func setPendingSale(units []OwnedUnit, id int, pending bool) ([]OwnedUnit, bool) {
	idx := unitIndex(units, id)
	if idx < 0 || units[idx].PendingSale == pending {
		return units, false
	}
	dup := slices.Clone(units)
	dup[idx].PendingSale = pending
	return dup, true
}

// retain keeps the last known definition of every catalog item that an owned
// unit references but the live catalog no longer lists.
func retain(prev Snapshot, catalog []CatalogItem, units []OwnedUnit) map[string]CatalogItem {
	var kept map[string]CatalogItem
	for _, u := range units {
		if slices.ContainsFunc(catalog, func(c CatalogItem) bool { return c.ID == u.CatalogItemID }) {
			continue
		}
		item, ok := prev.Lookup(u.CatalogItemID)
		if !ok {
			continue
		}
		if kept == nil {
			kept = make(map[string]CatalogItem)
		}
		kept[item.ID] = item
	}
	return kept
}
