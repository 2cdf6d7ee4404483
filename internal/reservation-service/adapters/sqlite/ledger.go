package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
)

type Ledger struct {
	db *sql.DB
}

func NewLedger(d *DB) *Ledger {
	return &Ledger{db: d.db}
}

func (l *Ledger) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	const q = `SELECT id, available_count, price_per_day FROM resources WHERE id = ?`

	var r domain.Resource
	err := l.db.QueryRowContext(ctx, q, id).Scan(&r.ID, &r.AvailableCount, &r.PricePerDay)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Resource{}, fmt.Errorf("%w: car %s", domain.ErrResourceNotFound, id)
	}
	if err != nil {
		return domain.Resource{}, fmt.Errorf("sqlite: get resource %q: %w", id, err)
	}
	return r, nil
}

func (l *Ledger) PutResource(ctx context.Context, r domain.Resource) error {
	const q = `
		INSERT INTO resources (id, available_count, price_per_day, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			available_count = excluded.available_count,
			price_per_day   = excluded.price_per_day,
			updated_at      = excluded.updated_at`

	if _, err := l.db.ExecContext(ctx, q, r.ID, r.AvailableCount, r.PricePerDay, formatTime(time.Now())); err != nil {
		return fmt.Errorf("sqlite: put resource %q: %w", r.ID, err)
	}
	return nil
}

// Decrement is a compare-and-decrement: the row only changes while the count
// is positive.
func (l *Ledger) Decrement(ctx context.Context, id string) (int, error) {
	const q = `
		UPDATE resources
		SET    available_count = available_count - 1, updated_at = ?
		WHERE  id = ? AND available_count > 0
		RETURNING available_count`

	var count int
	err := l.db.QueryRowContext(ctx, q, formatTime(time.Now()), id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := l.GetResource(ctx, id); getErr != nil {
			return 0, getErr
		}
		return 0, fmt.Errorf("%w: car %s", domain.ErrOutOfStock, id)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: decrement %q: %w", id, err)
	}
	return count, nil
}

func (l *Ledger) Increment(ctx context.Context, id string) (int, error) {
	const q = `
		UPDATE resources
		SET    available_count = available_count + 1, updated_at = ?
		WHERE  id = ?
		RETURNING available_count`

	var count int
	err := l.db.QueryRowContext(ctx, q, formatTime(time.Now()), id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: car %s", domain.ErrResourceNotFound, id)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: increment %q: %w", id, err)
	}
	return count, nil
}
