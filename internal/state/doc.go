// Package state holds the canonical game state and the events that change it.
//
// # Overview
//
// The Store owns the cookie count, the bakery catalog and the owned units.
// Nothing else mutates them. Every change is expressed as an Event and folded
// into a new Snapshot by Apply, a pure function of (snapshot, event).
//
// # Architecture
//
//	Writers (intents, timers):        Readers (UI, reconcile):
//	┌──────────────────────┐         ┌──────────────────────┐
//	│ store.Dispatch(evs…) │         │ store.Snapshot()     │
//	│ store.DispatchFunc() │────────→│ store.Subscribe(fn)  │
//	│   (writer lock)      │ notify  │   fn(snapshot)       │
//	└──────────────────────┘         └──────────────────────┘
//
// # Concurrency Model
//
// There is a single logical writer. Dispatch and DispatchFunc take the writer
// lock for the whole batch, so the events of one intent are applied in order
// and never interleave with another intent's events. After each applied event
// every listener is called synchronously with the new snapshot, before the
// next event is accepted.
//
// Readers use Snapshot, which takes a read lock and returns a deep copy.
//
// Listeners run while the writer lock is held. They must return quickly and
// must never call Dispatch themselves; hand work to another goroutine
// instead.
//
// # Check-then-act
//
// Gates such as "only buy when the balance covers the cost" need the check and
// the resulting events to be atomic with respect to other writers. DispatchFunc
// passes the latest snapshot to a decision function under the writer lock and
// dispatches the events it returns:
//
//	_, err := store.DispatchFunc(func(s state.Snapshot) ([]state.Event, error) {
//		if !state.CanAfford(s.Cookies, cost) {
//			return nil, ErrInsufficientCookies
//		}
//		return []state.Event{state.Decrement{Amount: cost}, state.UnitPurchased{CatalogItemID: id}}, nil
//	})
//
// # Event Semantics
//
//	Increment(n)              cookies += n (n < 0 ignored)
//	Decrement(n)              cookies -= n (never clamped)
//	CatalogFetchStarted       status = loading
//	CatalogFetchSucceeded(xs) status = loaded, catalog = xs
//	CatalogFetchFailed(err)   status = idle, catalog kept
//	UnitPurchased(item)       append unit{id = max+1 or 0}
//	SaleStarted(id)           unit.PendingSale = true
//	SaleCommitted(id)         remove unit
//	SaleCancelled(id)         unit.PendingSale = false
//
// Events that reference an unknown unit id are no-ops. A no-op leaves Version
// unchanged and does not notify listeners.
//
// # Retained Catalog Entries
//
// A refresh may return a catalog that no longer lists an item some owned unit
// was built from. The reducer keeps the last known definition of such items in
// Snapshot.Retained, and Snapshot.Lookup falls back to it, so production rate
// and refund price stay computable for as long as the unit exists.
//
// # Testing Considerations
//
// The zero Store is usable. Apply can be exercised directly without a Store.
package state
