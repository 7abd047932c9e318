package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/bakehouse/internal/effects"
	"github.com/five82/bakehouse/internal/logging"
	"github.com/five82/bakehouse/internal/prefs"
	"github.com/five82/bakehouse/internal/sale"
	"github.com/five82/bakehouse/internal/state"
)

// Intents is what the UI can ask the game to do. *effects.Orchestrator
// implements it.
type Intents interface {
	Click()
	RequestCatalog() bool
	Purchase(catalogItemID string, cost int64) error
	Quote(unitID int) (int64, error)
	Sell(unitID int, refund int64) (sale.Token, error)
	UndoSell(unitID int, token sale.Token) bool
}

var _ Intents = (*effects.Orchestrator)(nil)

type panel int

const (
	panelShop panel = iota
	panelUnits
)

const (
	defaultRedraw = 250 * time.Millisecond
	logLines      = 8
)

// Options configures the UI.
type Options struct {
	Intents Intents
	// Store feeds snapshots when Snapshots is nil.
	Store     *state.Store
	Snapshots <-chan state.Snapshot
	SaleDelay time.Duration
	ThemeName string
	PrefsPath string
	LogPath   string
	Now       func() time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	intents   Intents
	snapshots <-chan state.Snapshot
	saleDelay time.Duration
	prefsPath string
	logPath   string
	now       func() time.Time

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	theme   Theme

	width  int
	height int
	ready  bool

	snapshot   state.Snapshot
	focus      panel
	shopCursor int
	unitCursor int

	// sales tracks undo tokens for sales started from this UI.
	sales    map[int]pendingSale
	lastSale int

	status    string
	statusErr bool

	showHelp bool
	showLog  bool
	log      []string
}

type pendingSale struct {
	token   sale.Token
	refund  int64
	started time.Time
	// seen is set once a snapshot shows the unit pending.
	seen bool
}

type snapshotMsg state.Snapshot

type tickMsg time.Time

type logMsg []string

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	delay := opts.SaleDelay
	if delay <= 0 {
		delay = sale.DefaultDelay
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		intents:   opts.Intents,
		snapshots: opts.Snapshots,
		saleDelay: delay,
		prefsPath: opts.PrefsPath,
		logPath:   opts.LogPath,
		now:       now,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		theme:     GetTheme(themeName),
		sales:     make(map[int]pendingSale),
		lastSale:  -1,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForSnapshot(m.snapshots),
		tickCmd(defaultRedraw),
		m.spinner.Tick,
	)
}

func waitForSnapshot(ch <-chan state.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func readLogCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logging.Tail(path, logLines)
		if err != nil {
			return logMsg{"log unavailable: " + err.Error()}
		}
		return logMsg(lines)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, waitForSnapshot(m.snapshots)

	case tickMsg:
		var cmd tea.Cmd
		if m.showLog {
			cmd = readLogCmd(m.logPath)
		}
		return m, tea.Batch(tickCmd(defaultRedraw), cmd)

	case logMsg:
		m.log = msg
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		if m.prefsPath != "" {
			if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name}); err != nil {
				slog.Warn("Failed to save preferences", "error", err)
			}
		}

	case key.Matches(msg, m.keys.ToggleLog):
		m.showLog = !m.showLog
		if m.showLog {
			return m, readLogCmd(m.logPath)
		}

	case key.Matches(msg, m.keys.Tab):
		if m.focus == panelShop {
			m.focus = panelUnits
		} else {
			m.focus = panelShop
		}

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.Click):
		m.intents.Click()

	case key.Matches(msg, m.keys.Refresh):
		if m.intents.RequestCatalog() {
			m.setStatus("Fetching catalog...", false)
		} else {
			m.setStatus("Catalog fetch already in progress", false)
		}

	case key.Matches(msg, m.keys.Buy):
		m.buySelected()

	case key.Matches(msg, m.keys.Sell):
		m.sellSelected()

	case key.Matches(msg, m.keys.Undo):
		m.undo()

	case key.Matches(msg, m.keys.Confirm):
		if m.focus == panelShop {
			m.buySelected()
		} else {
			m.sellSelected()
		}
	}
	return m, nil
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	for id, ps := range m.sales {
		u, ok := snap.Unit(id)
		switch {
		case !ok, !u.PendingSale && ps.seen:
			delete(m.sales, id)
		case u.PendingSale:
			ps.seen = true
			m.sales[id] = ps
		}
	}
	if _, ok := m.sales[m.lastSale]; !ok {
		m.lastSale = -1
	}
	m.shopCursor = clamp(m.shopCursor, len(snap.Catalog))
	m.unitCursor = clamp(m.unitCursor, len(snap.Units))
}

func (m *Model) moveCursor(delta int) {
	if m.focus == panelShop {
		m.shopCursor = clamp(m.shopCursor+delta, len(m.snapshot.Catalog))
		return
	}
	m.unitCursor = clamp(m.unitCursor+delta, len(m.snapshot.Units))
}

func (m *Model) buySelected() {
	if len(m.snapshot.Catalog) == 0 {
		m.setStatus("Nothing to buy yet, press r to load the catalog", true)
		return
	}
	item := m.snapshot.Catalog[m.shopCursor]
	err := m.intents.Purchase(item.ID, item.Cost)
	switch {
	case err == nil:
		m.setStatus(fmt.Sprintf("Bought %s for %s", item.Name, formatCookies(item.Cost)), false)
	case errors.Is(err, effects.ErrInsufficientCookies):
		need := item.Cost - m.snapshot.Cookies
		m.setStatus(fmt.Sprintf("Not enough cookies for %s (%s more needed)", item.Name, formatCookies(max(need, 1))), true)
	default:
		m.setStatus(err.Error(), true)
	}
}

func (m *Model) sellSelected() {
	if len(m.snapshot.Units) == 0 {
		m.setStatus("You don't own any bakeries", true)
		return
	}
	unit := m.snapshot.Units[m.unitCursor]
	refund, err := m.intents.Quote(unit.ID)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	token, err := m.intents.Sell(unit.ID, refund)
	if err != nil {
		if errors.Is(err, sale.ErrUnitNotActive) {
			m.setStatus(fmt.Sprintf("Unit #%d is already being sold", unit.ID), true)
			return
		}
		m.setStatus(err.Error(), true)
		return
	}
	m.sales[unit.ID] = pendingSale{token: token, refund: refund, started: m.now()}
	m.lastSale = unit.ID
	m.setStatus(fmt.Sprintf("Selling unit #%d for %s, press u to undo", unit.ID, formatCookies(refund)), false)
}

// undo cancels the selected unit's sale, or the most recent one.
func (m *Model) undo() {
	id := m.lastSale
	if m.focus == panelUnits && len(m.snapshot.Units) > 0 {
		if selected := m.snapshot.Units[m.unitCursor].ID; hasKey(m.sales, selected) {
			id = selected
		}
	}
	ps, ok := m.sales[id]
	if !ok {
		m.setStatus("No sale to undo", true)
		return
	}
	delete(m.sales, id)
	if id == m.lastSale {
		m.lastSale = -1
	}
	if m.intents.UndoSell(id, ps.token) {
		m.setStatus(fmt.Sprintf("Sale of unit #%d undone", id), false)
		return
	}
	m.setStatus(fmt.Sprintf("Too late, unit #%d was already sold", id), true)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func hasKey[V any](m map[int]V, k int) bool {
	_, ok := m[k]
	return ok
}

// Run starts the UI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Snapshots == nil && opts.Store != nil {
		feed := NewFeed(opts.Store)
		defer feed.Close()
		opts.Snapshots = feed.C()
	}
	if opts.ThemeName == "" {
		opts.ThemeName = prefs.Load(opts.PrefsPath).Theme
	}

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
