// Package sale implements reversible unit sales: a sale is pending for a
// fixed delay, during which it can be undone, and then commits with a refund.
package sale

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/bakehouse/internal/metrics"
	"github.com/five82/bakehouse/internal/state"
	"github.com/five82/bakehouse/internal/timers"
)

// DefaultDelay is how long a sale stays undoable.
const DefaultDelay = 3 * time.Second

var (
	// ErrUnitNotActive is returned when the unit is missing or already pending sale.
	ErrUnitNotActive = errors.New("unit is not active")
	// ErrNegativeRefund is returned for refunds below zero.
	ErrNegativeRefund = errors.New("refund must not be negative")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("sale manager is closed")
)

// Token identifies one pending sale. It is the undo handle given to callers.
type Token struct {
	UnitID int
	ID     uuid.UUID
}

// IsZero reports whether t is the zero Token.
func (t Token) IsZero() bool {
	return t.ID == uuid.Nil
}

// Option configures a Manager.
type Option func(*Manager)

// WithDelay sets the undo window.
func WithDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.delay = d
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

// Manager owns the pending sale table. Commit and cancel for the same sale
// both go through mu, so exactly one of them takes effect.
type Manager struct {
	store   *state.Store
	timers  timers.Service
	delay   time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder

	mu      sync.Mutex
	pending map[int]*pendingSale
	closed  bool
}

type pendingSale struct {
	token  Token
	refund int64
	handle timers.Handle
}

// NewManager builds a Manager.
func NewManager(store *state.Store, svc timers.Service, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		timers:  svc,
		delay:   DefaultDelay,
		logger:  slog.Default(),
		metrics: metrics.NoopRecorder{},
		pending: make(map[int]*pendingSale),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Delay returns the configured undo window.
func (m *Manager) Delay() time.Duration {
	return m.delay
}

// Start marks unitID as pending sale and schedules the commit.
func (m *Manager) Start(unitID int, refund int64) (Token, error) {
	if refund < 0 {
		return Token{}, fmt.Errorf("%w: %d", ErrNegativeRefund, refund)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Token{}, ErrClosed
	}

	_, err := m.store.DispatchFunc(func(snap state.Snapshot) ([]state.Event, error) {
		u, ok := snap.Unit(unitID)
		if !ok || !u.Active() {
			return nil, fmt.Errorf("%w: unit %d", ErrUnitNotActive, unitID)
		}
		return []state.Event{state.SaleStarted{UnitID: unitID}}, nil
	})
	if err != nil {
		return Token{}, err
	}

	token := Token{UnitID: unitID, ID: uuid.New()}
	handle, err := m.timers.After(m.delay, func() { m.commit(token) })
	if err != nil {
		m.store.Dispatch(state.SaleCancelled{UnitID: unitID})
		return Token{}, fmt.Errorf("schedule sale commit: %w", err)
	}

	m.pending[unitID] = &pendingSale{token: token, refund: refund, handle: handle}
	m.metrics.SetPendingSales(len(m.pending))
	m.logger.Info("Sale started", "unit_id", unitID, "refund", refund, "sale_id", token.ID.String(), "delay", m.delay)
	return token, nil
}

func (m *Manager) commit(token Token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[token.UnitID]
	if !ok || p.token != token {
		return
	}
	delete(m.pending, token.UnitID)
	m.metrics.SetPendingSales(len(m.pending))

	_, err := m.store.DispatchFunc(func(snap state.Snapshot) ([]state.Event, error) {
		u, ok := snap.Unit(token.UnitID)
		if !ok || !u.PendingSale {
			return nil, fmt.Errorf("unit %d is no longer pending sale", token.UnitID)
		}
		return []state.Event{
			state.SaleCommitted{UnitID: token.UnitID},
			state.Increment{Amount: p.refund},
		}, nil
	})
	if err != nil {
		m.logger.Warn("Sale commit skipped", "unit_id", token.UnitID, "sale_id", token.ID.String(), "error", err)
		return
	}
	m.metrics.SaleResolved(metrics.SaleCommitted)
	m.metrics.CookiesCredited(metrics.CreditSale, p.refund)
	m.logger.Info("Sale committed", "unit_id", token.UnitID, "refund", p.refund, "sale_id", token.ID.String())
}

// Cancel undoes a pending sale. It returns false when the sale already
// committed, was already cancelled, or the token is unknown.
func (m *Manager) Cancel(token Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[token.UnitID]
	if !ok || p.token != token {
		return false
	}
	delete(m.pending, token.UnitID)
	p.handle.Stop()
	m.store.Dispatch(state.SaleCancelled{UnitID: token.UnitID})

	m.metrics.SetPendingSales(len(m.pending))
	m.metrics.SaleResolved(metrics.SaleCancelled)
	m.logger.Info("Sale cancelled", "unit_id", token.UnitID, "sale_id", token.ID.String())
	return true
}

// Pending returns the number of sales awaiting commit.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// IsPending reports whether unitID has a sale awaiting commit.
func (m *Manager) IsPending(unitID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[unitID]
	return ok
}

// Token returns the token of unitID's pending sale, if any.
func (m *Manager) Token(unitID int) (Token, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[unitID]
	if !ok {
		return Token{}, false
	}
	return p.token, true
}

// Close stops every pending timer without committing. Units stay pending
// sale in the store.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, p := range m.pending {
		p.handle.Stop()
		delete(m.pending, id)
	}
	m.metrics.SetPendingSales(0)
}
