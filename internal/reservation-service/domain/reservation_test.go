package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusExpired, false},
		{StatusExpired, StatusPending, false},
		{StatusCompleted, StatusCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestRentalDays(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, RentalDays(day, day))
	assert.Equal(t, 1, RentalDays(day, day.AddDate(0, 0, 1)))
	assert.Equal(t, 4, RentalDays(day, day.AddDate(0, 0, 4)))
	// Crossing March is still counted in calendar days.
	assert.Equal(t, 31, RentalDays(day, day.AddDate(0, 1, 0)))
}

func TestReservation_RemainingSeconds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := Reservation{Status: StatusPending, PaymentDeadline: now.Add(90 * time.Second)}

	assert.Equal(t, 90, r.RemainingSeconds(now))
	assert.Equal(t, 0, r.RemainingSeconds(now.Add(2*time.Minute)))

	r.Status = StatusConfirmed
	assert.Equal(t, 0, r.RemainingSeconds(now))
}
