// Package sqlite provides a SQLite-backed implementation of history.Repository.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/history"

	// Pure-Go driver, no CGO needed in the Alpine image.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS reservation_history (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    reservation_id  TEXT NOT NULL,
    from_status     TEXT NOT NULL DEFAULT '',
    to_status       TEXT NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    trace_id        TEXT NOT NULL DEFAULT '',
    span_id         TEXT NOT NULL DEFAULT '',
    recorded_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reservation_history_reservation
    ON reservation_history(reservation_id, recorded_at);

CREATE INDEX IF NOT EXISTS idx_reservation_history_trace ON reservation_history(trace_id);
`

// Repository is the SQLite implementation of history.Repository.
type Repository struct {
	db *sql.DB
}

var _ history.Repository = (*Repository)(nil)

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/history.db")
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// Single writer connection; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply history schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Append inserts a new entry. It is safe to call concurrently.
func (r *Repository) Append(ctx context.Context, entry *history.Entry) error {
	const q = `
		INSERT INTO reservation_history
			(reservation_id, from_status, to_status, reason, trace_id, span_id, recorded_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.ReservationID,
		entry.FromStatus,
		entry.ToStatus,
		entry.Reason,
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append history for %q: %w", entry.ReservationID, err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, reservationID string) ([]history.Entry, error) {
	const q = `
		SELECT reservation_id, from_status, to_status, reason, trace_id, span_id, recorded_at
		FROM   reservation_history
		WHERE  reservation_id = ?
		ORDER  BY recorded_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list history for %q: %w", reservationID, err)
	}
	defer rows.Close()

	var out []history.Entry
	for rows.Next() {
		var (
			e          history.Entry
			recordedAt string
		)
		if err := rows.Scan(&e.ReservationID, &e.FromStatus, &e.ToStatus, &e.Reason, &e.TraceID, &e.SpanID, &recordedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan history: %w", err)
		}
		if e.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
