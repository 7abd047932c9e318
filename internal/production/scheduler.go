package production

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/five82/bakehouse/internal/metrics"
	"github.com/five82/bakehouse/internal/state"
	"github.com/five82/bakehouse/internal/timers"
)

// ErrClosed is returned by Start after Shutdown.
var ErrClosed = errors.New("production scheduler is shut down")

var errStaleTick = errors.New("stale production tick")

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTimeUnit sets the base tick interval. Defaults to one second.
func WithTimeUnit(d time.Duration) Option {
	return func(s *Scheduler) { s.unit = d }
}

// WithLogger sets the scheduler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.metrics = r
		}
	}
}

// Scheduler keeps one repeating producer per active owned unit.
type Scheduler struct {
	store   *state.Store
	timers  timers.Service
	unit    time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder

	mu          sync.Mutex
	producers   map[int]*producer
	failed      map[int]string
	lastVersion uint64
	started     int
	stopped     int
	closed      bool
	unsubscribe func()

	inflight sync.WaitGroup
}

type producer struct {
	unitID int
	itemID string
	plan   Plan
	handle timers.Handle
}

// New builds a Scheduler. Call Start to begin following the store.
func New(store *state.Store, svc timers.Service, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:     store,
		timers:    svc,
		unit:      time.Second,
		logger:    slog.Default(),
		metrics:   metrics.NoopRecorder{},
		producers: make(map[int]*producer),
		failed:    make(map[int]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the store and reconciles against its current snapshot.
// Calling Start twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	unsubscribe := s.store.Subscribe(s.Reconcile)

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	s.Reconcile(s.store.Snapshot())
	return nil
}

// Reconcile brings the producer set in line with the snapshot's active
// units. Snapshots older than one already seen are ignored, and re-running
// against an unchanged unit set starts and stops nothing.
func (s *Scheduler) Reconcile(snap state.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || snap.Version < s.lastVersion {
		return
	}
	s.lastVersion = snap.Version

	want := make(map[int]string)
	for _, u := range snap.ActiveUnits() {
		want[u.ID] = u.CatalogItemID
	}

	for id, p := range s.producers {
		if itemID, ok := want[id]; ok && itemID == p.itemID {
			continue
		}
		p.handle.Stop()
		delete(s.producers, id)
		s.stopped++
		s.logger.Debug("Stopped producer", "unit_id", id, "catalog_item", p.itemID)
	}

	for id, itemID := range s.failed {
		if want[id] != itemID {
			delete(s.failed, id)
		}
	}

	for _, id := range sortedKeys(want) {
		itemID := want[id]
		if _, ok := s.producers[id]; ok {
			continue
		}
		if _, ok := s.failed[id]; ok {
			continue
		}
		if err := s.startLocked(snap, id, itemID); err != nil {
			s.failed[id] = itemID
			s.metrics.ProductionFailed()
			s.logger.Error("Unit production not scheduled", "unit_id", id, "catalog_item", itemID, "error", err)
		}
	}

	s.metrics.SetProducers(len(s.producers))
}

func (s *Scheduler) startLocked(snap state.Snapshot, unitID int, itemID string) error {
	item, ok := snap.Lookup(itemID)
	if !ok {
		return fmt.Errorf("catalog item %q not found", itemID)
	}
	plan, err := PlanTick(item.ProductionRate, s.unit)
	if err != nil {
		return err
	}

	p := &producer{unitID: unitID, itemID: itemID, plan: plan}
	handle, err := s.timers.Every(plan.Interval, func() { s.tick(p) })
	if err != nil {
		return fmt.Errorf("schedule producer: %w", err)
	}
	p.handle = handle
	s.producers[unitID] = p
	s.started++
	s.logger.Debug("Started producer",
		"unit_id", unitID,
		"catalog_item", itemID,
		"interval", plan.Interval,
		"amount", plan.Amount)
	return nil
}

func (s *Scheduler) tick(p *producer) {
	s.mu.Lock()
	if s.closed || s.producers[p.unitID] != p {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	if p.plan.Amount == 0 {
		return
	}

	_, err := s.store.DispatchFunc(func(snap state.Snapshot) ([]state.Event, error) {
		u, ok := snap.Unit(p.unitID)
		if !ok || !u.Active() || u.CatalogItemID != p.itemID {
			return nil, errStaleTick
		}
		s.mu.Lock()
		current := s.producers[p.unitID] == p
		s.mu.Unlock()
		if !current {
			return nil, errStaleTick
		}
		return []state.Event{state.Increment{Amount: p.plan.Amount}}, nil
	})
	if err != nil {
		return
	}
	s.metrics.CookiesCredited(metrics.CreditProducer, p.plan.Amount)
}

// Live returns the unit ids that currently have a producer, ascending.
func (s *Scheduler) Live() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.producers)
}

// Failed returns the unit ids whose production could not be scheduled.
func (s *Scheduler) Failed() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.failed)
}

// Started counts producers started since construction.
func (s *Scheduler) Started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Stopped counts producers stopped since construction.
func (s *Scheduler) Stopped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Shutdown stops every producer, detaches from the store and waits for
// ticks already running to finish. It must not be called from a store
// listener.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, p := range s.producers {
		p.handle.Stop()
		delete(s.producers, id)
		s.stopped++
	}
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.inflight.Wait()
	s.metrics.SetProducers(0)
	s.logger.Debug("Production scheduler stopped")
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
