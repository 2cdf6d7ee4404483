package httpx

import (
	"time"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/history"
)

type CreateReservationRequest struct {
	ResourceID  string `json:"resource_id"`
	RequesterID string `json:"requester_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type ConfirmPaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type PutResourceRequest struct {
	AvailableCount int     `json:"available_count"`
	PricePerDay    float64 `json:"price_per_day"`
}

type ReservationResponse struct {
	ID               string  `json:"id"`
	ResourceID       string  `json:"resource_id"`
	RequesterID      string  `json:"requester_id"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	TotalPrice       float64 `json:"total_price"`
	Status           string  `json:"status"`
	PaymentDeadline  string  `json:"payment_deadline"`
	RemainingSeconds int     `json:"remaining_seconds"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type ResourceResponse struct {
	ID             string  `json:"id"`
	AvailableCount int     `json:"available_count"`
	PricePerDay    float64 `json:"price_per_day"`
}

type HistoryEntryResponse struct {
	From       string `json:"from,omitempty"`
	To         string `json:"to"`
	Reason     string `json:"reason,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapReservationToResponse(r domain.Reservation, now time.Time) ReservationResponse {
	return ReservationResponse{
		ID:               r.ID,
		ResourceID:       r.ResourceID,
		RequesterID:      r.RequesterID,
		StartDate:        r.StartDate.Format(time.DateOnly),
		EndDate:          r.EndDate.Format(time.DateOnly),
		TotalPrice:       r.TotalPrice,
		Status:           string(r.Status),
		PaymentDeadline:  r.PaymentDeadline.Format(time.RFC3339),
		RemainingSeconds: r.RemainingSeconds(now),
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        r.UpdatedAt.Format(time.RFC3339),
	}
}

func mapResourceToResponse(r domain.Resource) ResourceResponse {
	return ResourceResponse{ID: r.ID, AvailableCount: r.AvailableCount, PricePerDay: r.PricePerDay}
}

func mapHistory(entries []history.Entry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntryResponse{
			From:       e.FromStatus,
			To:         e.ToStatus,
			Reason:     e.Reason,
			TraceID:    e.TraceID,
			RecordedAt: e.RecordedAt.Format(time.RFC3339Nano),
		}
	}
	return out
}
