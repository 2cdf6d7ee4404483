package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
)

const reservationColumns = `id, resource_id, requester_id, start_date, end_date, total_price,
	status, created_at, updated_at, payment_deadline`

type ReservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(d *DB) *ReservationRepository {
	return &ReservationRepository{db: d.db}
}

func (r *ReservationRepository) Insert(ctx context.Context, res domain.Reservation) error {
	const q = `INSERT INTO reservations (` + reservationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		res.ID,
		res.ResourceID,
		res.RequesterID,
		formatTime(res.StartDate),
		formatTime(res.EndDate),
		res.TotalPrice,
		string(res.Status),
		formatTime(res.CreatedAt),
		formatTime(res.UpdatedAt),
		formatTime(res.PaymentDeadline),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert reservation %q: %w", res.ID, err)
	}
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, id string) (domain.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`

	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reservation{}, fmt.Errorf("%w: %s", domain.ErrReservationNotFound, id)
	}
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("sqlite: get reservation %q: %w", id, err)
	}
	return res, nil
}

func (r *ReservationRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE requester_id = ? ORDER BY created_at DESC, id`
	return r.list(ctx, "list by requester", q, requesterID)
}

func (r *ReservationRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE status = ? AND payment_deadline < ? ORDER BY payment_deadline`
	return r.list(ctx, "list expired pending", q, string(domain.StatusPending), formatTime(now))
}

func (r *ReservationRepository) ListEndedConfirmed(ctx context.Context, today time.Time) ([]domain.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE status = ? AND end_date < ? ORDER BY end_date`
	return r.list(ctx, "list ended confirmed", q, string(domain.StatusConfirmed), formatTime(today))
}

func (r *ReservationRepository) Transition(ctx context.Context, id string, from, to domain.Status, at time.Time) error {
	const q = `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, q, string(to), formatTime(at), id, string(from))
	if err != nil {
		return fmt.Errorf("sqlite: transition %q: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: transition %q: %w", id, err)
	}
	if n == 0 {
		current, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: reservation %s is %s, expected %s", domain.ErrInvalidState, id, current.Status, from)
	}
	return nil
}

func (r *ReservationRepository) list(ctx context.Context, op, q string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %s: %w", op, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReservation(s scanner) (domain.Reservation, error) {
	var (
		res                                        domain.Reservation
		status                                     string
		start, end, createdAt, updatedAt, deadline string
	)
	if err := s.Scan(
		&res.ID,
		&res.ResourceID,
		&res.RequesterID,
		&start,
		&end,
		&res.TotalPrice,
		&status,
		&createdAt,
		&updatedAt,
		&deadline,
	); err != nil {
		return domain.Reservation{}, err
	}
	res.Status = domain.Status(status)

	var err error
	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&res.StartDate, start},
		{&res.EndDate, end},
		{&res.CreatedAt, createdAt},
		{&res.UpdatedAt, updatedAt},
		{&res.PaymentDeadline, deadline},
	} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return domain.Reservation{}, err
		}
	}
	return res, nil
}
