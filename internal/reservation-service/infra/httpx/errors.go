package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
)

var errorStatus = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrResourceNotFound, http.StatusNotFound, "resource_not_found"},
	{domain.ErrReservationNotFound, http.StatusNotFound, "reservation_not_found"},
	{domain.ErrOutOfStock, http.StatusConflict, "out_of_stock"},
	{domain.ErrInvalidDateRange, http.StatusBadRequest, "invalid_date_range"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{domain.ErrDeadlineExpired, http.StatusGone, "payment_deadline_expired"},
	{domain.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed"},
	{domain.ErrLockUnavailable, http.StatusServiceUnavailable, "resource_busy"},
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.target) {
			if m.status == http.StatusServiceUnavailable {
				w.Header().Set("Retry-After", "1")
			}
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	// ErrStorage and anything unclassified: keep the details in the log.
	slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
