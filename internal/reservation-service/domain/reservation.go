package domain

import (
	"math"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// CanTransition reports whether a reservation may move from s to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled || next == StatusExpired
	case StatusConfirmed:
		return next == StatusCompleted
	default:
		return false
	}
}

// RestoresUnit reports whether entering s gives the unit back to the ledger.
func (s Status) RestoresUnit() bool {
	return s == StatusCancelled || s == StatusExpired || s == StatusCompleted
}

// Reservation is a time-bounded claim on one unit of a resource.
type Reservation struct {
	ID              string
	ResourceID      string
	RequesterID     string
	StartDate       time.Time
	EndDate         time.Time
	TotalPrice      float64
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaymentDeadline time.Time
}

// RemainingSeconds is the time left to pay, zero once the deadline passed or
// the reservation is no longer pending.
func (r Reservation) RemainingSeconds(now time.Time) int {
	if r.Status != StatusPending {
		return 0
	}
	secs := int(r.PaymentDeadline.Sub(now) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// RentalDays counts whole days between start and end, with a minimum of one.
func RentalDays(start, end time.Time) int {
	days := int(math.Round(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}
