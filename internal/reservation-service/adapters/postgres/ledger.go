// Package postgres stores the resource ledger and reservations in Postgres
// through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
)

type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	const q = `SELECT id, available_count, price_per_day FROM resources WHERE id = $1`

	var r domain.Resource
	err := l.pool.QueryRow(ctx, q, id).Scan(&r.ID, &r.AvailableCount, &r.PricePerDay)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Resource{}, fmt.Errorf("%w: car %s", domain.ErrResourceNotFound, id)
	}
	if err != nil {
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return r, nil
}

func (l *Ledger) PutResource(ctx context.Context, r domain.Resource) error {
	const q = `
INSERT INTO resources (id, available_count, price_per_day, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (id) DO UPDATE SET
	available_count = EXCLUDED.available_count,
	price_per_day   = EXCLUDED.price_per_day,
	updated_at      = NOW()`

	if _, err := l.pool.Exec(ctx, q, r.ID, r.AvailableCount, r.PricePerDay); err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
		}
		return fmt.Errorf("put resource: %w", err)
	}
	return nil
}

func (l *Ledger) Decrement(ctx context.Context, id string) (int, error) {
	const q = `
UPDATE resources
SET available_count = available_count - 1, updated_at = NOW()
WHERE id = $1 AND available_count > 0
RETURNING available_count`

	var count int
	err := l.pool.QueryRow(ctx, q, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := l.GetResource(ctx, id); getErr != nil {
			return 0, getErr
		}
		return 0, fmt.Errorf("%w: car %s", domain.ErrOutOfStock, id)
	}
	if err != nil {
		return 0, fmt.Errorf("decrement resource: %w", err)
	}
	return count, nil
}

func (l *Ledger) Increment(ctx context.Context, id string) (int, error) {
	const q = `
UPDATE resources
SET available_count = available_count + 1, updated_at = NOW()
WHERE id = $1
RETURNING available_count`

	var count int
	err := l.pool.QueryRow(ctx, q, id).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: car %s", domain.ErrResourceNotFound, id)
	}
	if err != nil {
		return 0, fmt.Errorf("increment resource: %w", err)
	}
	return count, nil
}
