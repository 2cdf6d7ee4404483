package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/car-rental-reservations/internal/coordinator"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/clock"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/dlock"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/history"
)

const (
	defaultGracePeriod    = 5 * time.Minute
	defaultLockWait       = 5 * time.Second
	defaultLockLease      = 10 * time.Second
	defaultSweepLockWait  = time.Second
	defaultPaymentTimeout = 10 * time.Second
)

func resourceLockKey(id string) string    { return "car:lock:" + id }
func reservationLockKey(id string) string { return "reservation:lock:" + id }

// Engine owns every reservation state transition. The ledger count of a
// resource is only touched while holding that resource's lock, and every
// transition is a compare-and-set on the previous status.
type Engine struct {
	ledger   Ledger
	store    ReservationStore
	locker   Locker
	payments PaymentGateway
	clock    clock.Clock
	notifier Notifier
	history  history.Repository
	tracer   trace.Tracer

	gracePeriod    time.Duration
	lockWait       time.Duration
	lockLease      time.Duration
	sweepLockWait  time.Duration
	paymentTimeout time.Duration
}

type EngineOption func(*Engine)

// WithGracePeriod overrides how long a PENDING reservation waits for payment.
func WithGracePeriod(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.gracePeriod = d
		}
	}
}

// WithLockTimeouts overrides the wait and lease used for every lock.
func WithLockTimeouts(wait, lease time.Duration) EngineOption {
	return func(e *Engine) {
		if wait >= 0 {
			e.lockWait = wait
		}
		if lease > 0 {
			e.lockLease = lease
		}
	}
}

// WithSweepLockWait bounds how long a sweep waits for a reservation that is
// being confirmed before skipping it until the next run.
func WithSweepLockWait(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.sweepLockWait = d
		}
	}
}

func WithPaymentTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.paymentTimeout = d
		}
	}
}

func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithHistory enables the transition audit log.
func WithHistory(repo history.Repository) EngineOption {
	return func(e *Engine) {
		e.history = repo
	}
}

func NewEngine(ledger Ledger, store ReservationStore, locker Locker, payments PaymentGateway, clk clock.Clock, opts ...EngineOption) *Engine {
	e := &Engine{
		ledger:         ledger,
		store:          store,
		locker:         locker,
		payments:       payments,
		clock:          clk,
		notifier:       LogNotifier{},
		tracer:         otel.Tracer("github.com/jcmexdev/car-rental-reservations/reservation-service"),
		gracePeriod:    defaultGracePeriod,
		lockWait:       defaultLockWait,
		lockLease:      defaultLockLease,
		sweepLockWait:  defaultSweepLockWait,
		paymentTimeout: defaultPaymentTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type CreateReservationInput struct {
	ResourceID  string
	RequesterID string
	StartDate   time.Time
	EndDate     time.Time
}

// Create takes one unit of the resource and records a PENDING reservation
// that must be paid before its deadline.
func (e *Engine) Create(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	ctx, span := e.tracer.Start(ctx, "reservation.create", trace.WithAttributes(
		attribute.String("resource.id", in.ResourceID),
		attribute.String("requester.id", in.RequesterID),
	))
	defer span.End()

	if in.ResourceID == "" || in.RequesterID == "" {
		return domain.Reservation{}, fail(span, fmt.Errorf("%w: resource_id and requester_id are required", domain.ErrInvalidInput))
	}

	now := e.clock.Now()
	start := clock.StartOfDay(in.StartDate)
	end := clock.StartOfDay(in.EndDate)
	if start.Before(clock.StartOfDay(now)) {
		return domain.Reservation{}, fail(span, fmt.Errorf("%w: start date %s is in the past", domain.ErrInvalidDateRange, start.Format(time.DateOnly)))
	}
	if end.Before(start) {
		return domain.Reservation{}, fail(span, fmt.Errorf("%w: end date %s is before start date %s", domain.ErrInvalidDateRange, end.Format(time.DateOnly), start.Format(time.DateOnly)))
	}

	r, err := e.reserveUnit(ctx, in, start, end, now)
	if err != nil {
		return domain.Reservation{}, fail(span, err)
	}
	span.SetAttributes(attribute.String("reservation.id", r.ID))

	// The lock is already released here; the reminder must never hold it.
	go e.notifier.ReservationCreated(context.WithoutCancel(ctx), r)

	return r, nil
}

func (e *Engine) reserveUnit(ctx context.Context, in CreateReservationInput, start, end, now time.Time) (domain.Reservation, error) {
	lock, err := e.lockResource(ctx, in.ResourceID)
	if err != nil {
		return domain.Reservation{}, err
	}
	defer e.unlock(ctx, lock)

	resource, err := e.ledger.GetResource(ctx, in.ResourceID)
	if err != nil {
		return domain.Reservation{}, classify(err)
	}
	if resource.AvailableCount <= 0 {
		return domain.Reservation{}, fmt.Errorf("%w: car %s", domain.ErrOutOfStock, in.ResourceID)
	}

	r := domain.Reservation{
		ID:              uuid.NewString(),
		ResourceID:      in.ResourceID,
		RequesterID:     in.RequesterID,
		StartDate:       start,
		EndDate:         end,
		TotalPrice:      resource.PricePerDay * float64(domain.RentalDays(start, end)),
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		PaymentDeadline: now.Add(e.gracePeriod),
	}

	// Still under the lock, so nobody observes the decrement if the insert
	// is rolled back.
	var available int
	err = coordinator.NewOrchestrator("create-reservation",
		coordinator.NewStep("decrement-ledger",
			func(ctx context.Context) error {
				n, err := e.ledger.Decrement(ctx, in.ResourceID)
				available = n
				return err
			},
			func(ctx context.Context) error {
				_, err := e.ledger.Increment(ctx, in.ResourceID)
				return err
			},
		),
		coordinator.NewStep("insert-reservation",
			func(ctx context.Context) error { return e.store.Insert(ctx, r) },
			nil,
		),
	).Start(ctx)
	if err != nil {
		return domain.Reservation{}, classify(err)
	}

	e.record(ctx, r.ID, "", domain.StatusPending, "created", now)
	slog.InfoContext(ctx, "reservation created",
		"reservation_id", r.ID,
		"resource_id", r.ResourceID,
		"available", available,
		"total_price", r.TotalPrice,
	)
	return r, nil
}

type ConfirmPaymentInput struct {
	ReservationID string
	PaymentMethod string
}

// Confirm charges a PENDING reservation. A declined or failed charge cancels
// the reservation and gives the unit back; a late confirmation expires it.
func (e *Engine) Confirm(ctx context.Context, in ConfirmPaymentInput) (domain.Reservation, error) {
	ctx, span := e.tracer.Start(ctx, "reservation.confirm", trace.WithAttributes(
		attribute.String("reservation.id", in.ReservationID),
	))
	defer span.End()

	if in.ReservationID == "" {
		return domain.Reservation{}, fail(span, fmt.Errorf("%w: reservation_id is required", domain.ErrInvalidInput))
	}

	// The payment call runs under this lock, so its lease must outlive it.
	lock, err := e.acquire(ctx, reservationLockKey(in.ReservationID), e.lockWait, e.lockLease+e.paymentTimeout)
	if err != nil {
		return domain.Reservation{}, fail(span, err)
	}
	defer e.unlock(ctx, lock)

	r, err := e.store.Get(ctx, in.ReservationID)
	if err != nil {
		return domain.Reservation{}, fail(span, classify(err))
	}
	if r.Status != domain.StatusPending {
		return domain.Reservation{}, fail(span, fmt.Errorf("%w: reservation %s is %s", domain.ErrInvalidState, r.ID, r.Status))
	}

	if e.clock.Now().After(r.PaymentDeadline) {
		if _, err := e.restoreUnit(ctx, r, domain.StatusExpired, "payment deadline passed before confirmation"); err != nil {
			return domain.Reservation{}, fail(span, err)
		}
		return domain.Reservation{}, fail(span, fmt.Errorf("%w: reservation %s", domain.ErrDeadlineExpired, r.ID))
	}

	payCtx, cancel := context.WithTimeout(ctx, e.paymentTimeout)
	result, payErr := e.payments.Charge(payCtx, ChargeRequest{
		ReservationID: r.ID,
		Amount:        r.TotalPrice,
		Method:        in.PaymentMethod,
	})
	cancel()

	if payErr != nil || !result.Approved {
		reason := "payment declined"
		if payErr != nil {
			reason = "payment error: " + payErr.Error()
		}
		if _, err := e.restoreUnit(ctx, r, domain.StatusCancelled, reason); err != nil {
			return domain.Reservation{}, fail(span, err)
		}
		if payErr != nil {
			return domain.Reservation{}, fail(span, fmt.Errorf("%w: %w", domain.ErrPaymentFailed, payErr))
		}
		return domain.Reservation{}, fail(span, fmt.Errorf("%w: charge declined for reservation %s", domain.ErrPaymentFailed, r.ID))
	}

	confirmed, err := e.transition(ctx, r, domain.StatusConfirmed, "payment approved: "+result.TransactionID)
	if err != nil {
		return domain.Reservation{}, fail(span, err)
	}
	slog.InfoContext(ctx, "payment confirmed", "reservation_id", r.ID, "transaction_id", result.TransactionID)
	return confirmed, nil
}

func (e *Engine) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	r, err := e.store.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, classify(err)
	}
	return r, nil
}

func (e *Engine) ListReservationsForRequester(ctx context.Context, requesterID string) ([]domain.Reservation, error) {
	if requesterID == "" {
		return nil, fmt.Errorf("%w: requester_id is required", domain.ErrInvalidInput)
	}
	out, err := e.store.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (e *Engine) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	r, err := e.ledger.GetResource(ctx, id)
	if err != nil {
		return domain.Resource{}, classify(err)
	}
	return r, nil
}

// PutResource creates or overwrites a resource's ledger entry.
func (e *Engine) PutResource(ctx context.Context, r domain.Resource) error {
	if r.ID == "" || r.AvailableCount < 0 || r.PricePerDay < 0 {
		return fmt.Errorf("%w: id is required and count and price must not be negative", domain.ErrInvalidInput)
	}

	lock, err := e.lockResource(ctx, r.ID)
	if err != nil {
		return err
	}
	defer e.unlock(ctx, lock)

	if err := e.ledger.PutResource(ctx, r); err != nil {
		return classify(err)
	}
	slog.InfoContext(ctx, "resource stored", "resource_id", r.ID, "available", r.AvailableCount)
	return nil
}

// restoreUnit is the only path that gives a unit back to the ledger. The
// status transition is conditional on r.Status, so a second attempt for the
// same reservation fails with ErrInvalidState and never increments twice.
func (e *Engine) restoreUnit(ctx context.Context, r domain.Reservation, to domain.Status, reason string) (domain.Reservation, error) {
	if !to.RestoresUnit() || !r.Status.CanTransition(to) {
		return domain.Reservation{}, fmt.Errorf("%w: %s -> %s does not restore a unit", domain.ErrInvalidState, r.Status, to)
	}

	lock, err := e.lockResource(ctx, r.ResourceID)
	if err != nil {
		return domain.Reservation{}, err
	}
	defer e.unlock(ctx, lock)

	now := e.clock.Now()
	if err := e.store.Transition(ctx, r.ID, r.Status, to, now); err != nil {
		return domain.Reservation{}, classify(err)
	}

	available, err := e.ledger.Increment(ctx, r.ResourceID)
	if err != nil {
		if revertErr := e.store.Transition(context.WithoutCancel(ctx), r.ID, to, r.Status, r.UpdatedAt); revertErr != nil {
			slog.ErrorContext(ctx, "CRITICAL: unit not restored and status not reverted",
				"reservation_id", r.ID,
				"resource_id", r.ResourceID,
				"status", to,
				"increment_error", err,
				"revert_error", revertErr,
			)
		}
		return domain.Reservation{}, classify(err)
	}

	from := r.Status
	r.Status = to
	r.UpdatedAt = now
	e.record(ctx, r.ID, from, to, reason, now)
	slog.InfoContext(ctx, "unit restored",
		"reservation_id", r.ID,
		"resource_id", r.ResourceID,
		"status", to,
		"available", available,
	)
	return r, nil
}

// transition moves r to a status that keeps the unit out of the ledger.
func (e *Engine) transition(ctx context.Context, r domain.Reservation, to domain.Status, reason string) (domain.Reservation, error) {
	if !r.Status.CanTransition(to) || to.RestoresUnit() {
		return domain.Reservation{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidState, r.Status, to)
	}
	now := e.clock.Now()
	if err := e.store.Transition(ctx, r.ID, r.Status, to, now); err != nil {
		return domain.Reservation{}, classify(err)
	}
	e.record(ctx, r.ID, r.Status, to, reason, now)
	r.Status = to
	r.UpdatedAt = now
	return r, nil
}

func (e *Engine) lockResource(ctx context.Context, resourceID string) (*dlock.Lock, error) {
	return e.acquire(ctx, resourceLockKey(resourceID), e.lockWait, e.lockLease)
}

func (e *Engine) acquire(ctx context.Context, key string, wait, lease time.Duration) (*dlock.Lock, error) {
	lock, err := e.locker.Acquire(ctx, key, wait, lease)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLockUnavailable, err)
	}
	return lock, nil
}

// unlock releases a lock whose lease may already be gone; that case is only
// worth a warning because the lease bounded the critical section anyway.
func (e *Engine) unlock(ctx context.Context, lock *dlock.Lock) {
	err := lock.Release(context.WithoutCancel(ctx))
	switch {
	case err == nil:
	case errors.Is(err, dlock.ErrNotHeld):
		slog.WarnContext(ctx, "lock lease expired before release", "key", lock.Key())
	default:
		slog.ErrorContext(ctx, "failed to release lock", "key", lock.Key(), "error", err)
	}
}

func (e *Engine) record(ctx context.Context, reservationID string, from, to domain.Status, reason string, at time.Time) {
	if e.history == nil {
		return
	}
	entry := history.NewEntry(ctx, reservationID, string(from), string(to), reason, at)
	if err := e.history.Append(context.WithoutCancel(ctx), entry); err != nil {
		slog.ErrorContext(ctx, "failed to append reservation history", "reservation_id", reservationID, "error", err)
	}
}

var businessErrors = []error{
	domain.ErrResourceNotFound,
	domain.ErrReservationNotFound,
	domain.ErrOutOfStock,
	domain.ErrInvalidDateRange,
	domain.ErrInvalidInput,
	domain.ErrInvalidState,
	domain.ErrDeadlineExpired,
	domain.ErrPaymentFailed,
	domain.ErrLockUnavailable,
	domain.ErrStorage,
}

// classify keeps taxonomy errors as they are and wraps anything else so no
// raw driver error leaves the engine.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range businessErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
