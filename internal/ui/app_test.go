package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/five82/bakehouse/internal/effects"
	"github.com/five82/bakehouse/internal/prefs"
	"github.com/five82/bakehouse/internal/sale"
	"github.com/five82/bakehouse/internal/state"
)

type fakeIntents struct {
	clicks      int
	requests    int
	fetching    bool
	purchased   []string
	purchaseErr error
	quote       int64
	sold        []int
	undone      []sale.Token
	undoOK      bool
}

func (f *fakeIntents) Click() { f.clicks++ }

func (f *fakeIntents) RequestCatalog() bool {
	f.requests++
	started := !f.fetching
	f.fetching = true
	return started
}

func (f *fakeIntents) Purchase(id string, _ int64) error {
	if f.purchaseErr != nil {
		return f.purchaseErr
	}
	f.purchased = append(f.purchased, id)
	return nil
}

func (f *fakeIntents) Quote(int) (int64, error) { return f.quote, nil }

func (f *fakeIntents) Sell(unitID int, _ int64) (sale.Token, error) {
	f.sold = append(f.sold, unitID)
	return sale.Token{UnitID: unitID, ID: uuid.New()}, nil
}

func (f *fakeIntents) UndoSell(_ int, token sale.Token) bool {
	f.undone = append(f.undone, token)
	return f.undoOK
}

var (
	grandma = state.CatalogItem{ID: "grandma", Name: "Grandma's Kitchen", ProductionRate: 0.1, Cost: 15}
	amateur = state.CatalogItem{ID: "amateur", Name: "Amateur Bakery", ProductionRate: 1, Cost: 100}
)

func newTestModel(t *testing.T, intents *fakeIntents, snap state.Snapshot) Model {
	t.Helper()
	m := New(Options{
		Intents:   intents,
		SaleDelay: 3 * time.Second,
		Now:       func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return update(t, m, snapshotMsg(snap))
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m = update(t, m, msg)
	}
	return m
}

func TestModel_ClickAndRefresh(t *testing.T) {
	intents := &fakeIntents{}
	m := newTestModel(t, intents, state.Snapshot{})

	m = press(t, m, "c", "c", "r")
	require.Equal(t, 2, intents.clicks)
	require.Equal(t, 1, intents.requests)
	require.Contains(t, m.status, "Fetching catalog")

	m = press(t, m, "r")
	require.Equal(t, 2, intents.requests)
	require.Contains(t, m.status, "already in progress")
}

func TestModel_BuySelected(t *testing.T) {
	intents := &fakeIntents{}
	m := newTestModel(t, intents, state.Snapshot{
		Cookies:     200,
		Catalog:     []state.CatalogItem{grandma, amateur},
		FetchStatus: state.FetchLoaded,
	})

	m = press(t, m, "j", "b")
	require.Equal(t, []string{"amateur"}, intents.purchased)
	require.False(t, m.statusErr)

	m = press(t, m, "j", "enter")
	require.Equal(t, []string{"amateur", "amateur"}, intents.purchased, "cursor stays on the last item")
}

func TestModel_BuyRejected(t *testing.T) {
	intents := &fakeIntents{purchaseErr: fmt.Errorf("%w: have 3, need 15", effects.ErrInsufficientCookies)}
	m := newTestModel(t, intents, state.Snapshot{
		Cookies: 3,
		Catalog: []state.CatalogItem{grandma},
	})

	m = press(t, m, "b")
	require.True(t, m.statusErr)
	require.Contains(t, m.status, "12 more needed")
}

func TestModel_BuyWithoutCatalog(t *testing.T) {
	intents := &fakeIntents{}
	m := newTestModel(t, intents, state.Snapshot{})

	m = press(t, m, "b")
	require.Empty(t, intents.purchased)
	require.True(t, m.statusErr)
}

func TestModel_SellAndUndo(t *testing.T) {
	intents := &fakeIntents{quote: 12, undoOK: true}
	snap := state.Snapshot{
		Catalog: []state.CatalogItem{grandma},
		Units:   []state.OwnedUnit{{ID: 0, CatalogItemID: "grandma"}},
		Version: 2,
	}
	m := newTestModel(t, intents, snap)

	m = press(t, m, "tab", "s")
	require.Equal(t, []int{0}, intents.sold)
	require.Contains(t, m.sales, 0)
	require.Contains(t, m.status, "for 12")

	pending := snap.Clone()
	pending.Units[0].PendingSale = true
	pending.Version = 3
	m = update(t, m, snapshotMsg(pending))
	require.Contains(t, m.sales, 0, "sale is still pending")
	require.Contains(t, m.View(), "undo 3s")

	token := m.sales[0].token
	m = press(t, m, "u")
	require.Equal(t, []sale.Token{token}, intents.undone)
	require.Empty(t, m.sales)
	require.Contains(t, m.status, "undone")

	m = press(t, m, "u")
	require.Len(t, intents.undone, 1)
	require.Equal(t, "No sale to undo", m.status)
}

func TestModel_UndoTooLate(t *testing.T) {
	intents := &fakeIntents{quote: 12}
	m := newTestModel(t, intents, state.Snapshot{
		Catalog: []state.CatalogItem{grandma},
		Units:   []state.OwnedUnit{{ID: 0, CatalogItemID: "grandma"}},
	})

	m = press(t, m, "tab", "s", "u")
	require.True(t, m.statusErr)
	require.Contains(t, m.status, "Too late")
}

func TestModel_SnapshotPrunesResolvedSales(t *testing.T) {
	intents := &fakeIntents{quote: 12}
	m := newTestModel(t, intents, state.Snapshot{
		Catalog: []state.CatalogItem{grandma},
		Units: []state.OwnedUnit{
			{ID: 0, CatalogItemID: "grandma"},
			{ID: 1, CatalogItemID: "grandma"},
		},
	})
	m = press(t, m, "tab", "j", "s")
	require.Contains(t, m.sales, 1)
	require.Equal(t, 1, m.unitCursor)

	m = update(t, m, snapshotMsg(state.Snapshot{
		Cookies: 12,
		Catalog: []state.CatalogItem{grandma},
		Units:   []state.OwnedUnit{{ID: 0, CatalogItemID: "grandma"}},
		Version: 5,
	}))
	require.Empty(t, m.sales)
	require.Equal(t, -1, m.lastSale)
	require.Zero(t, m.unitCursor, "cursor clamped to remaining units")
}

func TestModel_HelpOverlay(t *testing.T) {
	m := newTestModel(t, &fakeIntents{}, state.Snapshot{})

	m = press(t, m, "?")
	require.True(t, m.showHelp)
	require.Contains(t, m.View(), "Keyboard Shortcuts")

	m = press(t, m, "c")
	require.False(t, m.showHelp, "any key closes help")
}

func TestModel_ViewShowsGame(t *testing.T) {
	m := newTestModel(t, &fakeIntents{}, state.Snapshot{
		Cookies:     1234,
		Catalog:     []state.CatalogItem{grandma, amateur},
		Units:       []state.OwnedUnit{{ID: 0, CatalogItemID: "amateur"}, {ID: 1, CatalogItemID: "grandma"}},
		FetchStatus: state.FetchLoaded,
	})

	view := m.View()
	require.Contains(t, view, "BAKEHOUSE")
	require.Contains(t, view, "1,234 cookies")
	require.Contains(t, view, "1.1/s")
	require.Contains(t, view, "Grandma's Kitchen")
	require.Contains(t, view, "Owned (2)")
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(Options{Intents: &fakeIntents{}})
	require.Equal(t, "Loading...", m.View())
}

func TestModel_CycleThemeSavesPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	m := New(Options{Intents: &fakeIntents{}, PrefsPath: path})
	require.Equal(t, "Dracula", m.theme.Name)

	m = press(t, m, "T")
	require.Equal(t, "Slate", m.theme.Name)
	require.Equal(t, "Slate", prefs.Load(path).Theme)
}

func TestModel_LogPane(t *testing.T) {
	m := newTestModel(t, &fakeIntents{}, state.Snapshot{})

	m = press(t, m, "l")
	require.True(t, m.showLog)
	m = update(t, m, logMsg{"level=INFO msg=\"Game started\""})
	require.True(t, strings.Contains(m.View(), "Game started"))

	m = press(t, m, "l")
	require.False(t, m.showLog)
}

func TestModel_SnapshotChannel(t *testing.T) {
	ch := make(chan state.Snapshot, 1)
	m := New(Options{Intents: &fakeIntents{}, Snapshots: ch})

	ch <- state.Snapshot{Cookies: 9, Version: 1}
	msg := waitForSnapshot(m.snapshots)()
	m = update(t, m, msg)
	require.Equal(t, int64(9), m.snapshot.Cookies)

	close(ch)
	require.Nil(t, waitForSnapshot(m.snapshots)())
	require.Nil(t, waitForSnapshot(nil))
}
