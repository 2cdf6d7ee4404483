package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jcmexdev/car-rental-reservations/internal/pkg/dlock"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
)

// Ledger stores the available count of every resource. Callers must hold the
// resource lock around any read-modify-write.
type Ledger interface {
	GetResource(ctx context.Context, id string) (domain.Resource, error)
	PutResource(ctx context.Context, r domain.Resource) error
	// Decrement removes one unit and returns the new count. It fails with
	// domain.ErrOutOfStock instead of going below zero.
	Decrement(ctx context.Context, id string) (int, error)
	Increment(ctx context.Context, id string) (int, error)
}

// ReservationStore persists reservations and their lifecycle.
type ReservationStore interface {
	Insert(ctx context.Context, r domain.Reservation) error
	Get(ctx context.Context, id string) (domain.Reservation, error)
	ListByRequester(ctx context.Context, requesterID string) ([]domain.Reservation, error)
	// ListExpiredPending returns PENDING reservations whose deadline is before now.
	ListExpiredPending(ctx context.Context, now time.Time) ([]domain.Reservation, error)
	// ListEndedConfirmed returns CONFIRMED reservations whose end date is before today.
	ListEndedConfirmed(ctx context.Context, today time.Time) ([]domain.Reservation, error)
	// Transition moves a reservation from one status to another. It fails with
	// domain.ErrInvalidState when the stored status is no longer from.
	Transition(ctx context.Context, id string, from, to domain.Status, at time.Time) error
}

// Locker is the distributed mutex used for resource and reservation locks.
type Locker interface {
	Acquire(ctx context.Context, key string, wait, lease time.Duration) (*dlock.Lock, error)
}

type ChargeRequest struct {
	ReservationID string
	Amount        float64
	Method        string
}

type ChargeResult struct {
	Approved      bool
	TransactionID string
}

// PaymentGateway is the boundary to the payment provider.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// Notifier receives fire-and-forget lifecycle events.
type Notifier interface {
	ReservationCreated(ctx context.Context, r domain.Reservation)
}

// LogNotifier writes reminders to the structured log.
type LogNotifier struct{}

func (LogNotifier) ReservationCreated(ctx context.Context, r domain.Reservation) {
	slog.InfoContext(ctx, "payment reminder scheduled",
		"reservation_id", r.ID,
		"requester_id", r.RequesterID,
		"payment_deadline", r.PaymentDeadline,
	)
}
