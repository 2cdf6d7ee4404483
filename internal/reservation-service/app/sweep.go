package app

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jcmexdev/car-rental-reservations/internal/pkg/clock"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/dlock"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
)

// SweepResult summarises one sweep run.
type SweepResult struct {
	Scanned   int
	Processed int
	// Skipped counts reservations that changed status, or were locked by a
	// concurrent confirm, between the query and the per-record lock.
	Skipped int
	Failed  int
}

// SweepExpired expires every PENDING reservation whose payment deadline has
// passed and gives its unit back.
func (e *Engine) SweepExpired(ctx context.Context) (SweepResult, error) {
	ctx, span := e.tracer.Start(ctx, "reservation.sweep_expired")
	defer span.End()

	candidates, err := e.store.ListExpiredPending(ctx, e.clock.Now())
	if err != nil {
		return SweepResult{}, fail(span, classify(err))
	}

	res := e.sweep(ctx, candidates, domain.StatusPending, domain.StatusExpired, "payment deadline passed")
	span.SetAttributes(
		attribute.Int("sweep.scanned", res.Scanned),
		attribute.Int("sweep.processed", res.Processed),
		attribute.Int("sweep.failed", res.Failed),
	)
	return res, nil
}

// SweepCompleted completes every CONFIRMED reservation whose rental period
// ended before today and gives its unit back.
func (e *Engine) SweepCompleted(ctx context.Context) (SweepResult, error) {
	ctx, span := e.tracer.Start(ctx, "reservation.sweep_completed")
	defer span.End()

	today := clock.StartOfDay(e.clock.Now())
	candidates, err := e.store.ListEndedConfirmed(ctx, today)
	if err != nil {
		return SweepResult{}, fail(span, classify(err))
	}

	res := e.sweep(ctx, candidates, domain.StatusConfirmed, domain.StatusCompleted, "rental period ended")
	span.SetAttributes(
		attribute.Int("sweep.scanned", res.Scanned),
		attribute.Int("sweep.processed", res.Processed),
		attribute.Int("sweep.failed", res.Failed),
	)
	return res, nil
}

func (e *Engine) sweep(ctx context.Context, candidates []domain.Reservation, from, to domain.Status, reason string) SweepResult {
	res := SweepResult{Scanned: len(candidates)}
	for _, c := range candidates {
		if ctx.Err() != nil {
			slog.WarnContext(ctx, "sweep interrupted", "status", to, "remaining", len(candidates)-res.Processed-res.Skipped-res.Failed)
			break
		}
		done, err := e.sweepOne(ctx, c.ID, from, to, reason)
		switch {
		case err != nil:
			res.Failed++
			slog.ErrorContext(ctx, "sweep failed for reservation", "reservation_id", c.ID, "status", to, "error", err)
		case done:
			res.Processed++
		default:
			res.Skipped++
		}
	}
	if res.Scanned > 0 {
		slog.InfoContext(ctx, "sweep finished",
			"status", to,
			"scanned", res.Scanned,
			"processed", res.Processed,
			"skipped", res.Skipped,
			"failed", res.Failed,
		)
	}
	return res
}

// sweepOne re-reads the reservation under its own lock before acting, so a
// confirm that won the race between the query and the lock is left alone.
func (e *Engine) sweepOne(ctx context.Context, id string, from, to domain.Status, reason string) (bool, error) {
	lock, err := e.acquire(ctx, reservationLockKey(id), e.sweepLockWait, e.lockLease)
	if err != nil {
		if errors.Is(err, dlock.ErrNotAcquired) {
			slog.InfoContext(ctx, "reservation busy, leaving it for the next sweep", "reservation_id", id)
			return false, nil
		}
		return false, err
	}
	defer e.unlock(ctx, lock)

	r, err := e.store.Get(ctx, id)
	if err != nil {
		return false, classify(err)
	}
	if r.Status != from {
		return false, nil
	}

	if _, err := e.restoreUnit(ctx, r, to, reason); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
