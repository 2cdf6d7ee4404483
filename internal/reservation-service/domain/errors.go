package domain

import (
	"errors"
	"fmt"
)

var (
	ErrResourceNotFound    = errors.New("resource not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrOutOfStock          = errors.New("resource out of stock")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidState        = errors.New("reservation is not in the required state")
	ErrDeadlineExpired     = errors.New("payment deadline expired")
	ErrPaymentFailed       = errors.New("payment failed")
	// ErrInvalidDateRange is a kind of ErrInvalidInput.
	ErrInvalidDateRange = fmt.Errorf("%w: date range", ErrInvalidInput)
	// ErrLockUnavailable is transient: the caller may retry with backoff.
	ErrLockUnavailable = errors.New("resource busy, retry later")
	// ErrStorage wraps infrastructure failures that have no business meaning.
	ErrStorage = errors.New("storage failure")
)
