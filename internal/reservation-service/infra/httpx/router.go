package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/infra/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handler.Health)

	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", handler.CreateReservation)
		r.Get("/{id}", handler.GetReservation)
		r.Get("/{id}/history", handler.GetReservationHistory)
		r.Post("/{id}/payment", handler.ConfirmPayment)
	})
	r.Get("/requesters/{id}/reservations", handler.ListRequesterReservations)

	r.Route("/resources", func(r chi.Router) {
		r.Put("/{id}", handler.PutResource)
		r.Get("/{id}", handler.GetResource)
	})
	return r
}
