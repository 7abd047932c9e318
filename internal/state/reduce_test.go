package state

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

var testCatalog = []CatalogItem{
	{ID: "grandma", Name: "Grandma's Kitchen", ProductionRate: 0.1, Cost: 15},
	{ID: "amateur", Name: "Amateur Bakery", ProductionRate: 1, Cost: 100},
}

func applyAll(s Snapshot, events ...Event) Snapshot {
	for _, ev := range events {
		s = Apply(s, ev)
	}
	return s
}

func TestApply_CookieCountIsSumOfDeltas(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	var s Snapshot
	var want int64
	for range 1000 {
		n := rng.Int64N(50)
		if rng.IntN(2) == 0 {
			s = Apply(s, Increment{Amount: n})
			want += n
		} else {
			s = Apply(s, Decrement{Amount: n})
			want -= n
		}
	}
	require.Equal(t, want, s.Cookies)
}

func TestApply_DecrementIsNotClamped(t *testing.T) {
	s := Apply(Snapshot{Cookies: 3}, Decrement{Amount: 5})
	require.Equal(t, int64(-2), s.Cookies)
}

func TestApply_NegativeIncrementIgnored(t *testing.T) {
	s := Apply(Snapshot{Cookies: 3}, Increment{Amount: -1})
	require.Equal(t, int64(3), s.Cookies)
	require.Zero(t, s.Version)
}

func TestApply_CatalogFetchLifecycle(t *testing.T) {
	s := Apply(Snapshot{}, CatalogFetchStarted{})
	require.Equal(t, FetchLoading, s.FetchStatus)

	s = Apply(s, CatalogFetchSucceeded{Items: testCatalog})
	require.Equal(t, FetchLoaded, s.FetchStatus)
	require.Equal(t, testCatalog, s.Catalog)

	s = Apply(s, CatalogFetchStarted{})
	boom := errors.New("boom")
	s = Apply(s, CatalogFetchFailed{Err: boom})
	require.Equal(t, FetchIdle, s.FetchStatus)
	require.Equal(t, testCatalog, s.Catalog, "failed fetch keeps prior catalog")
	require.ErrorIs(t, s.LastFetchError, boom)

	s = Apply(s, CatalogFetchSucceeded{Items: testCatalog[:1]})
	require.NoError(t, s.LastFetchError)
}

func TestApply_CatalogIsCopied(t *testing.T) {
	items := []CatalogItem{{ID: "grandma", Cost: 15}}
	s := Apply(Snapshot{}, CatalogFetchSucceeded{Items: items})
	items[0].Cost = 1
	require.Equal(t, int64(15), s.Catalog[0].Cost)
}

func TestApply_UnitIDs(t *testing.T) {
	s := applyAll(Snapshot{},
		UnitPurchased{CatalogItemID: "grandma"},
		UnitPurchased{CatalogItemID: "amateur"},
		UnitPurchased{CatalogItemID: "grandma"},
	)
	require.Equal(t, []OwnedUnit{
		{ID: 0, CatalogItemID: "grandma"},
		{ID: 1, CatalogItemID: "amateur"},
		{ID: 2, CatalogItemID: "grandma"},
	}, s.Units)

	// Removing the highest id makes it available again; lower gaps are not reused.
	s = applyAll(s, SaleCommitted{UnitID: 0}, SaleCommitted{UnitID: 2}, UnitPurchased{CatalogItemID: "amateur"})
	require.Equal(t, []OwnedUnit{
		{ID: 1, CatalogItemID: "amateur"},
		{ID: 2, CatalogItemID: "amateur"},
	}, s.Units)

	s = applyAll(s, SaleCommitted{UnitID: 1}, SaleCommitted{UnitID: 2}, UnitPurchased{CatalogItemID: "grandma"})
	require.Equal(t, []OwnedUnit{{ID: 0, CatalogItemID: "grandma"}}, s.Units)
}

func TestApply_SaleTransitions(t *testing.T) {
	s := applyAll(Snapshot{}, UnitPurchased{CatalogItemID: "grandma"}, UnitPurchased{CatalogItemID: "amateur"})

	s = Apply(s, SaleStarted{UnitID: 1})
	u, ok := s.Unit(1)
	require.True(t, ok)
	require.True(t, u.PendingSale)
	require.Len(t, s.ActiveUnits(), 1)

	s = Apply(s, SaleCancelled{UnitID: 1})
	u, _ = s.Unit(1)
	require.True(t, u.Active())

	s = applyAll(s, SaleStarted{UnitID: 1}, SaleCommitted{UnitID: 1})
	_, ok = s.Unit(1)
	require.False(t, ok)
	require.Len(t, s.Units, 1)
}

func TestApply_UnknownUnitIsNoop(t *testing.T) {
	before := applyAll(Snapshot{}, UnitPurchased{CatalogItemID: "grandma"})
	for _, ev := range []Event{SaleStarted{UnitID: 9}, SaleCommitted{UnitID: 9}, SaleCancelled{UnitID: 9}} {
		after := Apply(before, ev)
		require.Equal(t, before, after, ev.EventName())
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	before := applyAll(Snapshot{}, UnitPurchased{CatalogItemID: "grandma"}, UnitPurchased{CatalogItemID: "amateur"})
	frozen := before.Clone()

	_ = Apply(before, SaleStarted{UnitID: 0})
	_ = Apply(before, SaleCommitted{UnitID: 1})
	_ = Apply(before, UnitPurchased{CatalogItemID: "grandma"})

	require.Equal(t, frozen, before)
}

func TestApply_RetainsCatalogEntriesForOwnedUnits(t *testing.T) {
	s := applyAll(Snapshot{},
		CatalogFetchSucceeded{Items: testCatalog},
		UnitPurchased{CatalogItemID: "grandma"},
	)

	// Refresh drops grandma from the catalog.
	s = Apply(s, CatalogFetchSucceeded{Items: testCatalog[1:]})
	_, live := s.CatalogItem("grandma")
	require.False(t, live)

	item, ok := s.Lookup("grandma")
	require.True(t, ok)
	require.Equal(t, int64(15), item.Cost)

	// Survives another refresh.
	s = Apply(s, CatalogFetchSucceeded{Items: testCatalog[1:]})
	_, ok = s.Lookup("grandma")
	require.True(t, ok)

	// Dropped once no unit references it.
	s = applyAll(s, SaleStarted{UnitID: 0}, SaleCommitted{UnitID: 0})
	_, ok = s.Lookup("grandma")
	require.False(t, ok)
	require.Empty(t, s.Retained)
}

func TestRefundFor(t *testing.T) {
	tests := []struct {
		name  string
		cost  int64
		ratio float64
		want  int64
	}{
		{"grandma", 15, 0.8, 12},
		{"amateur", 100, 0.8, 80},
		{"rounds down", 7, 0.8, 5},
		{"zero ratio", 100, 0, 0},
		{"free item", 0, 0.8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RefundFor(CatalogItem{Cost: tt.cost}, tt.ratio)
			if got != tt.want {
				t.Fatalf("RefundFor(cost=%d, ratio=%v) = %d, want %d", tt.cost, tt.ratio, got, tt.want)
			}
		})
	}
}

func TestCanAfford(t *testing.T) {
	require.True(t, CanAfford(15, 15))
	require.True(t, CanAfford(16, 15))
	require.False(t, CanAfford(14, 15))
	require.True(t, CanAfford(0, 0))
}

func TestFetchStatusString(t *testing.T) {
	require.Equal(t, "idle", FetchIdle.String())
	require.Equal(t, "loading", FetchLoading.String())
	require.Equal(t, "loaded", FetchLoaded.String())
}
