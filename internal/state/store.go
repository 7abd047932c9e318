package state

import "sync"

// Listener receives every committed snapshot. It runs on the writer's
// goroutine while the writer lock is held, so it must not block and must not
// call Dispatch.
type Listener func(Snapshot)

// Observer sees each applied event together with the snapshot it produced.
type Observer func(ev Event, next Snapshot)

// Option configures a Store.
type Option func(*Store)

// WithObserver installs a hook that runs after each applied event.
func WithObserver(fn Observer) Option {
	return func(s *Store) { s.observer = fn }
}

// WithSnapshot seeds the store with an initial snapshot.
func WithSnapshot(snap Snapshot) Option {
	return func(s *Store) { s.snapshot = snap.Clone() }
}

// Store is the single-writer state container. The zero value is ready to use.
type Store struct {
	// writeMu serializes writers. A Dispatch batch holds it for its whole
	// duration, so batches never interleave.
	writeMu sync.Mutex

	mu       sync.RWMutex
	snapshot Snapshot
	observer Observer

	subsMu    sync.RWMutex
	listeners []subscription
	nextSubID uint64
}

type subscription struct {
	id uint64
	fn Listener
}

// New builds a Store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the latest committed snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Subscribe registers fn for every subsequent committed snapshot. Listeners
// are called in subscription order. The returned func is safe to call more
// than once.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subsMu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Dispatch applies events in order and returns the resulting snapshot.
// Listeners are notified after each event that changed state, before the
// next one is applied.
func (s *Store) Dispatch(events ...Event) Snapshot {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.dispatchLocked(events)
}

// DispatchFunc runs decide against the latest snapshot under the writer lock
// and dispatches whatever it returns. No other writer can change state between
// the decision and the events it produces. When decide returns an error
// nothing is dispatched.
func (s *Store) DispatchFunc(decide func(Snapshot) ([]Event, error)) (Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.Snapshot()
	events, err := decide(current)
	if err != nil {
		return current, err
	}
	return s.dispatchLocked(events), nil
}

func (s *Store) dispatchLocked(events []Event) Snapshot {
	s.mu.RLock()
	current := s.snapshot
	s.mu.RUnlock()

	for _, ev := range events {
		if ev == nil {
			continue
		}
		next := Apply(current, ev)
		if next.Version == current.Version {
			continue
		}

		s.mu.Lock()
		s.snapshot = next
		s.mu.Unlock()
		current = next

		if s.observer != nil {
			s.observer(ev, next.Clone())
		}
		for _, fn := range s.subscribers() {
			fn(next.Clone())
		}
	}
	return current.Clone()
}

func (s *Store) subscribers() []Listener {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	fns := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		fns[i] = sub.fn
	}
	return fns
}
