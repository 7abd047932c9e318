package metrics

import "time"

// Outcome labels used across recorders.
const (
	ResultSuccess   = "success"
	ResultFailed    = "failed"
	SaleCommitted   = "committed"
	SaleCancelled   = "cancelled"
	CreditProducer  = "production"
	CreditClick     = "click"
	CreditSale      = "sale_refund"
	RejectBalance   = "insufficient_cookies"
	RejectUnknown   = "unknown_item"
	RejectInFlight  = "fetch_in_flight"
	RejectNotActive = "unit_not_active"
)

// Recorder is the instrumentation surface used by the game core.
type Recorder interface {
	EventApplied(name string)
	CookiesCredited(source string, amount int64)
	SetCookies(n int64)
	IntentRejected(intent, reason string)
	ObserveCatalogFetch(result string, d time.Duration)
	SetProducers(n int)
	ProductionFailed()
	SetPendingSales(n int)
	SaleResolved(outcome string)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) EventApplied(string)                       {}
func (NoopRecorder) CookiesCredited(string, int64)             {}
func (NoopRecorder) SetCookies(int64)                          {}
func (NoopRecorder) IntentRejected(string, string)             {}
func (NoopRecorder) ObserveCatalogFetch(string, time.Duration) {}
func (NoopRecorder) SetProducers(int)                          {}
func (NoopRecorder) ProductionFailed()                         {}
func (NoopRecorder) SetPendingSales(int)                       {}
func (NoopRecorder) SaleResolved(string)                       {}

var _ Recorder = NoopRecorder{}
