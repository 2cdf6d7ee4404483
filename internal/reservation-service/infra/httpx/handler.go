package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/car-rental-reservations/internal/pkg/clock"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/app"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/history"
)

// Handler exposes the reservation engine over HTTP.
type Handler struct {
	service ReservationService
	history history.Repository // nil-safe: the history route answers 404
	clock   clock.Clock
}

// NewHandler wires the handler. historyRepo may be nil.
func NewHandler(service ReservationService, historyRepo history.Repository, clk clock.Clock) *Handler {
	return &Handler{service: service, history: historyRepo, clock: clk}
}

// CreateReservation claims one unit of a car for a date range.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
		return
	}

	slog.InfoContext(r.Context(), "creating reservation", "resource_id", req.ResourceID, "requester_id", req.RequesterID)

	res, err := h.service.Create(r.Context(), app.CreateReservationInput{
		ResourceID:  req.ResourceID,
		RequesterID: req.RequesterID,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapReservationToResponse(res, h.clock.Now()))
}

// ConfirmPayment pays for a pending reservation.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	res, err := h.service.Confirm(r.Context(), app.ConfirmPaymentInput{
		ReservationID: chi.URLParam(r, "id"),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapReservationToResponse(res, h.clock.Now()))
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapReservationToResponse(res, h.clock.Now()))
}

func (h *Handler) GetReservationHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "history_disabled", "")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.service.GetReservation(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	entries, err := h.history.List(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapHistory(entries))
}

func (h *Handler) ListRequesterReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListReservationsForRequester(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	now := h.clock.Now()
	out := make([]ReservationResponse, len(list))
	for i, res := range list {
		out[i] = mapReservationToResponse(res, now)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) PutResource(w http.ResponseWriter, r *http.Request) {
	var req PutResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	res := domain.Resource{
		ID:             chi.URLParam(r, "id"),
		AvailableCount: req.AvailableCount,
		PricePerDay:    req.PricePerDay,
	}
	if err := h.service.PutResource(r.Context(), res); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapResourceToResponse(res))
}

func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapResourceToResponse(res))
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
