package httpx

import (
	"context"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/app"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
)

// ReservationService is the slice of *app.Engine the HTTP layer drives.
type ReservationService interface {
	Create(ctx context.Context, in app.CreateReservationInput) (domain.Reservation, error)
	Confirm(ctx context.Context, in app.ConfirmPaymentInput) (domain.Reservation, error)
	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
	ListReservationsForRequester(ctx context.Context, requesterID string) ([]domain.Reservation, error)
	GetResource(ctx context.Context, id string) (domain.Resource, error)
	PutResource(ctx context.Context, r domain.Resource) error
}

var _ ReservationService = (*app.Engine)(nil)
