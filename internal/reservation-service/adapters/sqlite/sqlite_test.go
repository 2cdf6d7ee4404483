package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "reservations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(openTestDB(t))

	_, err := ledger.GetResource(ctx, "car-1")
	require.ErrorIs(t, err, domain.ErrResourceNotFound)

	require.NoError(t, ledger.PutResource(ctx, domain.Resource{ID: "car-1", AvailableCount: 1, PricePerDay: 40}))

	got, err := ledger.GetResource(ctx, "car-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Resource{ID: "car-1", AvailableCount: 1, PricePerDay: 40}, got)

	n, err := ledger.Decrement(ctx, "car-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = ledger.Decrement(ctx, "car-1")
	require.ErrorIs(t, err, domain.ErrOutOfStock, "count must never go below zero")

	n, err = ledger.Increment(ctx, "car-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = ledger.Decrement(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrResourceNotFound)
	_, err = ledger.Increment(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrResourceNotFound)

	require.NoError(t, ledger.PutResource(ctx, domain.Resource{ID: "car-1", AvailableCount: 7, PricePerDay: 55}))
	got, err = ledger.GetResource(ctx, "car-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.AvailableCount)
	assert.Equal(t, 55.0, got.PricePerDay)
}

func TestReservationRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	ledger := NewLedger(db)
	repo := NewReservationRepository(db)

	require.NoError(t, ledger.PutResource(ctx, domain.Resource{ID: "car-1", AvailableCount: 5, PricePerDay: 40}))

	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	day := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)

	pendingLate := domain.Reservation{
		ID: "r-late", ResourceID: "car-1", RequesterID: "u-1",
		StartDate: day, EndDate: day.AddDate(0, 0, 2), TotalPrice: 80,
		Status: domain.StatusPending, CreatedAt: now.Add(-10 * time.Minute), UpdatedAt: now.Add(-10 * time.Minute),
		PaymentDeadline: now.Add(-5 * time.Minute),
	}
	pendingFresh := domain.Reservation{
		ID: "r-fresh", ResourceID: "car-1", RequesterID: "u-1",
		StartDate: day, EndDate: day, TotalPrice: 40,
		Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now,
		PaymentDeadline: now.Add(5 * time.Minute),
	}
	confirmedEnded := domain.Reservation{
		ID: "r-ended", ResourceID: "car-1", RequesterID: "u-2",
		StartDate: day.AddDate(0, 0, -5), EndDate: day.AddDate(0, 0, -1), TotalPrice: 160,
		Status: domain.StatusConfirmed, CreatedAt: now.Add(-6 * 24 * time.Hour), UpdatedAt: now.Add(-6 * 24 * time.Hour),
		PaymentDeadline: now.Add(-6 * 24 * time.Hour).Add(5 * time.Minute),
	}
	confirmedToday := confirmedEnded
	confirmedToday.ID = "r-today"
	confirmedToday.EndDate = day

	for _, r := range []domain.Reservation{pendingLate, pendingFresh, confirmedEnded, confirmedToday} {
		require.NoError(t, repo.Insert(ctx, r))
	}

	t.Run("get round-trips every field", func(t *testing.T) {
		got, err := repo.Get(ctx, "r-late")
		require.NoError(t, err)
		assert.Equal(t, pendingLate.ResourceID, got.ResourceID)
		assert.Equal(t, pendingLate.TotalPrice, got.TotalPrice)
		assert.Equal(t, pendingLate.Status, got.Status)
		assert.True(t, got.StartDate.Equal(pendingLate.StartDate))
		assert.True(t, got.EndDate.Equal(pendingLate.EndDate))
		assert.True(t, got.PaymentDeadline.Equal(pendingLate.PaymentDeadline))
		assert.True(t, got.CreatedAt.Equal(pendingLate.CreatedAt))

		_, err = repo.Get(ctx, "nope")
		require.ErrorIs(t, err, domain.ErrReservationNotFound)
	})

	t.Run("list by requester", func(t *testing.T) {
		got, err := repo.ListByRequester(ctx, "u-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "r-fresh", got[0].ID, "newest first")
	})

	t.Run("expired pending", func(t *testing.T) {
		got, err := repo.ListExpiredPending(ctx, now)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "r-late", got[0].ID)
	})

	t.Run("ended confirmed excludes today", func(t *testing.T) {
		got, err := repo.ListEndedConfirmed(ctx, day)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "r-ended", got[0].ID)
	})

	t.Run("transition is conditional on the current status", func(t *testing.T) {
		require.NoError(t, repo.Transition(ctx, "r-late", domain.StatusPending, domain.StatusExpired, now))

		err := repo.Transition(ctx, "r-late", domain.StatusPending, domain.StatusExpired, now)
		require.ErrorIs(t, err, domain.ErrInvalidState)

		err = repo.Transition(ctx, "nope", domain.StatusPending, domain.StatusExpired, now)
		require.ErrorIs(t, err, domain.ErrReservationNotFound)

		got, err := repo.Get(ctx, "r-late")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusExpired, got.Status)
		assert.True(t, got.UpdatedAt.Equal(now))
	})
}
