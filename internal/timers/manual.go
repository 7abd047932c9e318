package timers

import (
	"fmt"
	"sync"
	"time"
)

// Manual is a deterministic Service driven by Advance. Callbacks run
// synchronously on the goroutine calling Advance, in due-time order (ties in
// scheduling order), with the internal lock released so they may schedule or
// stop timers themselves.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers map[uint64]*manualTimer
}

type manualTimer struct {
	m     *Manual
	id    uint64
	due   time.Time
	every time.Duration
	fn    func()
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, timers: make(map[uint64]*manualTimer)}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of live timers.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manual) After(d time.Duration, fn func()) (Handle, error) {
	return m.add(d, 0, fn)
}

func (m *Manual) Every(d time.Duration, fn func()) (Handle, error) {
	return m.add(d, d, fn)
}

func (m *Manual) add(d, every time.Duration, fn func()) (Handle, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDuration, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, id: m.seq, due: m.now.Add(d), every: every, fn: fn}
	m.timers[t.id] = t
	return t, nil
}

// Advance moves the clock forward by d, firing every callback that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	for {
		next := m.nextDueLocked(target)
		if next == nil {
			break
		}
		m.now = next.due
		if next.every > 0 {
			next.due = next.due.Add(next.every)
		} else {
			delete(m.timers, next.id)
		}
		fn := next.fn
		m.mu.Unlock()
		fn()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

func (m *Manual) nextDueLocked(limit time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.due.After(limit) {
			continue
		}
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && t.id < best.id) {
			best = t
		}
	}
	return best
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if _, ok := t.m.timers[t.id]; !ok {
		return false
	}
	delete(t.m.timers, t.id)
	return true
}
