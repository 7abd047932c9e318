package state

// Event is a discrete, named state transition understood by Apply.
type Event interface {
	EventName() string
}

// Increment adds Amount cookies. Negative amounts are ignored.
type Increment struct {
	Amount int64
}

// Decrement removes Amount cookies. The store does not clamp; callers gate.
type Decrement struct {
	Amount int64
}

// CatalogFetchStarted marks a catalog fetch as in flight.
type CatalogFetchStarted struct{}

// CatalogFetchSucceeded replaces the catalog wholesale.
type CatalogFetchSucceeded struct {
	Items []CatalogItem
}

// CatalogFetchFailed returns the fetch status to idle and keeps the catalog.
type CatalogFetchFailed struct {
	Err error
}

// UnitPurchased appends a new owned unit for CatalogItemID.
type UnitPurchased struct {
	CatalogItemID string
}

// SaleStarted flags a unit as pending sale.
type SaleStarted struct {
	UnitID int
}

// SaleCommitted removes a sold unit.
type SaleCommitted struct {
	UnitID int
}

// SaleCancelled returns a pending unit to active.
type SaleCancelled struct {
	UnitID int
}

func (Increment) EventName() string             { return "increment" }
func (Decrement) EventName() string             { return "decrement" }
func (CatalogFetchStarted) EventName() string   { return "catalog_fetch_started" }
func (CatalogFetchSucceeded) EventName() string { return "catalog_fetch_succeeded" }
func (CatalogFetchFailed) EventName() string    { return "catalog_fetch_failed" }
func (UnitPurchased) EventName() string         { return "unit_purchased" }
func (SaleStarted) EventName() string           { return "sale_started" }
func (SaleCommitted) EventName() string         { return "sale_committed" }
func (SaleCancelled) EventName() string         { return "sale_cancelled" }
