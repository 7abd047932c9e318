package ui

import (
	"sync"

	"github.com/five82/bakehouse/internal/state"
)

// Feed delivers store snapshots to the UI without ever blocking the store's
// writer. Only the newest undelivered snapshot is kept.
type Feed struct {
	mu          sync.Mutex
	ch          chan state.Snapshot
	lastVersion uint64
	seeded      bool
	closed      bool
	unsubscribe func()
}

// NewFeed subscribes to store and queues its current snapshot.
func NewFeed(store *state.Store) *Feed {
	f := &Feed{ch: make(chan state.Snapshot, 1)}
	f.unsubscribe = store.Subscribe(f.push)
	f.push(store.Snapshot())
	return f
}

// C returns the delivery channel. It is closed by Close.
func (f *Feed) C() <-chan state.Snapshot {
	return f.ch
}

func (f *Feed) push(snap state.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || (f.seeded && snap.Version < f.lastVersion) {
		return
	}
	f.seeded = true
	f.lastVersion = snap.Version
	select {
	case <-f.ch:
	default:
	}
	f.ch <- snap
}

// Close unsubscribes and closes the channel.
func (f *Feed) Close() {
	f.unsubscribe()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
}
