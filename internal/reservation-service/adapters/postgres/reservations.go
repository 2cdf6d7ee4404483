package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
)

const reservationColumns = `id, resource_id, requester_id, start_date, end_date, total_price,
	status, created_at, updated_at, payment_deadline`

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) Insert(ctx context.Context, res domain.Reservation) error {
	const q = `INSERT INTO reservations (` + reservationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, q,
		res.ID,
		res.ResourceID,
		res.RequesterID,
		res.StartDate,
		res.EndDate,
		res.TotalPrice,
		string(res.Status),
		res.CreatedAt,
		res.UpdatedAt,
		res.PaymentDeadline,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: car %s", domain.ErrResourceNotFound, res.ResourceID)
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, id string) (domain.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := scanReservation(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		return domain.Reservation{}, fmt.Errorf("%w: %s", domain.ErrReservationNotFound, id)
	}
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
WHERE requester_id = $1 ORDER BY created_at DESC, id`
	return r.list(ctx, "list by requester", q, requesterID)
}

func (r *ReservationRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
WHERE status = $1 AND payment_deadline < $2 ORDER BY payment_deadline`
	return r.list(ctx, "list expired pending", q, string(domain.StatusPending), now)
}

func (r *ReservationRepository) ListEndedConfirmed(ctx context.Context, today time.Time) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
WHERE status = $1 AND end_date < $2::date ORDER BY end_date`
	return r.list(ctx, "list ended confirmed", q, string(domain.StatusConfirmed), today)
}

func (r *ReservationRepository) Transition(ctx context.Context, id string, from, to domain.Status, at time.Time) error {
	const q = `UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, q, string(to), at, id, string(from))
	if err != nil {
		if isInvalidUUID(err) {
			return fmt.Errorf("%w: %s", domain.ErrReservationNotFound, id)
		}
		return fmt.Errorf("transition reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: reservation %s is %s, expected %s", domain.ErrInvalidState, id, current.Status, from)
	}
	return nil
}

func (r *ReservationRepository) list(ctx context.Context, op, q string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		res    domain.Reservation
		status string
	)
	err := row.Scan(
		&res.ID,
		&res.ResourceID,
		&res.RequesterID,
		&res.StartDate,
		&res.EndDate,
		&res.TotalPrice,
		&status,
		&res.CreatedAt,
		&res.UpdatedAt,
		&res.PaymentDeadline,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.Status = domain.Status(status)
	res.StartDate = res.StartDate.UTC()
	res.EndDate = res.EndDate.UTC()
	res.CreatedAt = res.CreatedAt.UTC()
	res.UpdatedAt = res.UpdatedAt.UTC()
	res.PaymentDeadline = res.PaymentDeadline.UTC()
	return res, nil
}
