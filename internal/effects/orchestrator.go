package effects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/bakehouse/internal/catalog"
	"github.com/five82/bakehouse/internal/metrics"
	"github.com/five82/bakehouse/internal/sale"
	"github.com/five82/bakehouse/internal/state"
)

// DefaultRefundRatio is the share of an item's cost returned when a unit sells.
const DefaultRefundRatio = 0.8

var (
	// ErrInsufficientCookies rejects a purchase the balance cannot cover.
	ErrInsufficientCookies = errors.New("insufficient cookies")
	// ErrUnknownItem rejects a purchase of an id missing from the live catalog.
	ErrUnknownItem = errors.New("unknown catalog item")
	// ErrInvalidCost rejects negative purchase costs.
	ErrInvalidCost = errors.New("cost must not be negative")
	// ErrUnknownUnit is returned when quoting a unit that is not owned.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrClosed is returned for intents issued after Close.
	ErrClosed = errors.New("orchestrator is closed")

	errFetchInFlight = errors.New("catalog fetch already in flight")
)

// Seller starts and cancels reversible sales. *sale.Manager implements it.
type Seller interface {
	Start(unitID int, refund int64) (sale.Token, error)
	Cancel(token sale.Token) bool
}

var _ Seller = (*sale.Manager)(nil)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.metrics = r
		}
	}
}

// WithRefundRatio sets the ratio used by Quote.
func WithRefundRatio(ratio float64) Option {
	return func(o *Orchestrator) { o.refundRatio = ratio }
}

// Orchestrator turns user intents into store events, running the catalog
// fetch asynchronously and delegating sales to a Seller.
type Orchestrator struct {
	store       *state.Store
	fetcher     catalog.Fetcher
	sales       Seller
	logger      *slog.Logger
	metrics     metrics.Recorder
	refundRatio float64

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New builds an Orchestrator.
func New(store *state.Store, fetcher catalog.Fetcher, sales Seller, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:       store,
		fetcher:     fetcher,
		sales:       sales,
		logger:      slog.Default(),
		metrics:     metrics.NoopRecorder{},
		refundRatio: DefaultRefundRatio,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Click credits one cookie.
func (o *Orchestrator) Click() {
	if o.isClosed() {
		return
	}
	o.store.Dispatch(state.Increment{Amount: 1})
	o.metrics.CookiesCredited(metrics.CreditClick, 1)
}

// RequestCatalog starts a catalog fetch unless one is already in flight. It
// reports whether a fetch was started.
func (o *Orchestrator) RequestCatalog() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}

	_, err := o.store.DispatchFunc(func(snap state.Snapshot) ([]state.Event, error) {
		if snap.FetchStatus == state.FetchLoading {
			return nil, errFetchInFlight
		}
		return []state.Event{state.CatalogFetchStarted{}}, nil
	})
	if err != nil {
		o.metrics.IntentRejected("request_catalog", metrics.RejectInFlight)
		o.logger.Debug("Catalog request ignored", "reason", err)
		return false
	}

	o.wg.Add(1)
	go o.fetch()
	return true
}

func (o *Orchestrator) fetch() {
	defer o.wg.Done()

	o.logger.Info("Fetching catalog")
	start := time.Now()
	items, err := o.fetcher.FetchCatalog(o.ctx)
	elapsed := time.Since(start)

	if err != nil {
		o.store.Dispatch(state.CatalogFetchFailed{Err: err})
		o.metrics.ObserveCatalogFetch(metrics.ResultFailed, elapsed)
		o.logger.Warn("Catalog fetch failed", "error", err, "duration", elapsed)
		return
	}
	o.store.Dispatch(state.CatalogFetchSucceeded{Items: items})
	o.metrics.ObserveCatalogFetch(metrics.ResultSuccess, elapsed)
	o.logger.Info("Catalog loaded", "items", len(items), "duration", elapsed)
}

// Purchase buys one unit of catalogItemID for cost. The balance check and
// the debit happen atomically: the decrement and the new unit are applied
// as one batch, or not at all.
func (o *Orchestrator) Purchase(catalogItemID string, cost int64) error {
	if o.isClosed() {
		return ErrClosed
	}
	if cost < 0 {
		o.metrics.IntentRejected("purchase", "invalid_cost")
		return fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}

	_, err := o.store.DispatchFunc(func(snap state.Snapshot) ([]state.Event, error) {
		if _, ok := snap.CatalogItem(catalogItemID); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownItem, catalogItemID)
		}
		if !state.CanAfford(snap.Cookies, cost) {
			return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientCookies, snap.Cookies, cost)
		}
		return []state.Event{
			state.Decrement{Amount: cost},
			state.UnitPurchased{CatalogItemID: catalogItemID},
		}, nil
	})
	if err != nil {
		reason := metrics.RejectBalance
		if errors.Is(err, ErrUnknownItem) {
			reason = metrics.RejectUnknown
		}
		o.metrics.IntentRejected("purchase", reason)
		o.logger.Info("Purchase rejected", "catalog_item", catalogItemID, "cost", cost, "error", err)
		return err
	}
	o.logger.Info("Purchase accepted", "catalog_item", catalogItemID, "cost", cost)
	return nil
}

// Quote returns the refund a sale of unitID would pay at the configured
// ratio. Units whose item left the catalog are quoted from the retained
// definition.
func (o *Orchestrator) Quote(unitID int) (int64, error) {
	snap := o.store.Snapshot()
	u, ok := snap.Unit(unitID)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownUnit, unitID)
	}
	item, ok := snap.Lookup(u.CatalogItemID)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownItem, u.CatalogItemID)
	}
	return state.RefundFor(item, o.refundRatio), nil
}

// Sell starts a reversible sale of unitID. The returned token undoes it via
// UndoSell until the sale delay elapses.
func (o *Orchestrator) Sell(unitID int, refund int64) (sale.Token, error) {
	if o.isClosed() {
		return sale.Token{}, ErrClosed
	}
	token, err := o.sales.Start(unitID, refund)
	if err != nil {
		if errors.Is(err, sale.ErrUnitNotActive) {
			o.metrics.IntentRejected("sell", metrics.RejectNotActive)
		}
		o.logger.Info("Sell rejected", "unit_id", unitID, "error", err)
		return sale.Token{}, err
	}
	return token, nil
}

// UndoSell cancels the sale identified by token. It returns false when the
// sale already committed or the token does not belong to unitID.
func (o *Orchestrator) UndoSell(unitID int, token sale.Token) bool {
	if token.UnitID != unitID {
		return false
	}
	return o.sales.Cancel(token)
}

// Close cancels any catalog fetch in flight and waits for it to settle.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
