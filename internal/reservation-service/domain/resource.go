package domain

// Resource is a rentable car as seen by the ledger.
type Resource struct {
	ID             string
	AvailableCount int
	PricePerDay    float64
}
