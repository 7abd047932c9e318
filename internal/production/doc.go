// Package production turns owned units into cookies.
//
// # Overview
//
// The Scheduler follows the state store and keeps exactly one repeating
// producer per active owned unit. Each producer credits a whole number of
// cookies per tick; PlanTick chooses the interval so that fractional rates
// such as 0.1 cookies per second become one cookie every ten seconds.
//
// # Reconciliation
//
// Every committed snapshot is reconciled against the live producer set:
//
//   - active unit without a producer: start one
//   - producer whose unit is gone, pending sale, or now a different item: stop it
//   - anything else: leave it alone
//
// Reconciling the same unit set twice causes no churn. Snapshots older than
// the newest one seen are ignored.
//
// A unit whose rate cannot be planned is logged, counted and remembered in
// Failed so later snapshots do not retry it. Other units are unaffected.
//
// # Ticks
//
// A tick credits through Store.DispatchFunc and re-checks, under the writer
// lock, that its unit is still active and still owned by this producer. A
// tick that lost a race with a sale or a stop credits nothing.
//
// Shutdown stops all producers, unsubscribes and waits for running ticks.
package production
