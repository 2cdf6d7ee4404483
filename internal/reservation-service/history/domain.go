// Package history keeps an append-only trail of reservation status changes.
//
// Every row records one transition together with the trace that caused it, so
// a reservation that ended up EXPIRED or CANCELLED can be traced back to the
// sweep run or payment call that moved it there.
package history

import "time"

// Entry is a single row in the reservation_history table.
type Entry struct {
	ReservationID string

	// FromStatus is empty for the creation entry.
	FromStatus string
	ToStatus   string

	// Reason is a short human readable cause, e.g. "payment declined".
	Reason string

	// TraceID and SpanID are the W3C identifiers of the active span, empty
	// when the transition happened outside a trace.
	TraceID string
	SpanID  string

	RecordedAt time.Time
}
