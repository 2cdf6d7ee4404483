// Package sqlite stores the resource ledger and reservations in SQLite.
//
// WAL mode keeps readers (status lookups, sweeps) from blocking the writer.
// Mutual exclusion on a resource's count is not the database's job: callers
// hold the distributed resource lock around every read-modify-write.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS resources (
    id               TEXT    PRIMARY KEY,
    available_count  INTEGER NOT NULL CHECK (available_count >= 0),
    price_per_day    REAL    NOT NULL,
    updated_at       TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
    id                TEXT PRIMARY KEY,
    resource_id       TEXT NOT NULL REFERENCES resources(id),
    requester_id      TEXT NOT NULL,
    start_date        TEXT NOT NULL,
    end_date          TEXT NOT NULL,
    total_price       REAL NOT NULL,
    status            TEXT NOT NULL,
    created_at        TEXT NOT NULL,
    updated_at        TEXT NOT NULL,
    payment_deadline  TEXT NOT NULL
);

-- Expiry sweep: PENDING past the deadline.
CREATE INDEX IF NOT EXISTS idx_reservations_status_deadline ON reservations(status, payment_deadline);

-- Completion sweep: CONFIRMED past the end date.
CREATE INDEX IF NOT EXISTS idx_reservations_status_end ON reservations(status, end_date);

CREATE INDEX IF NOT EXISTS idx_reservations_requester ON reservations(requester_id, created_at);
`

// DB is the shared connection used by Ledger and ReservationRepository.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
