package history

import "context"

// Repository persists history entries. The engine treats it as optional.
type Repository interface {
	// Append writes a new entry; existing rows are never updated.
	Append(ctx context.Context, entry *Entry) error
	// List returns the entries of one reservation, oldest first.
	List(ctx context.Context, reservationID string) ([]Entry, error)
}
