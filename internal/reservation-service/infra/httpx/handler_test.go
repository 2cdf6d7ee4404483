package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/car-rental-reservations/internal/pkg/clock"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/interceptors/constants"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/app"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/domain"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/history"
)

type fakeService struct {
	created   app.CreateReservationInput
	confirmed app.ConfirmPaymentInput
	put       domain.Resource
	err       error
	res       domain.Reservation
}

func (f *fakeService) Create(_ context.Context, in app.CreateReservationInput) (domain.Reservation, error) {
	f.created = in
	return f.res, f.err
}

func (f *fakeService) Confirm(_ context.Context, in app.ConfirmPaymentInput) (domain.Reservation, error) {
	f.confirmed = in
	return f.res, f.err
}

func (f *fakeService) GetReservation(_ context.Context, id string) (domain.Reservation, error) {
	if f.err != nil {
		return domain.Reservation{}, f.err
	}
	r := f.res
	r.ID = id
	return r, nil
}

func (f *fakeService) ListReservationsForRequester(_ context.Context, _ string) ([]domain.Reservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Reservation{f.res, f.res}, nil
}

func (f *fakeService) GetResource(_ context.Context, id string) (domain.Resource, error) {
	return domain.Resource{ID: id, AvailableCount: 3, PricePerDay: 25}, f.err
}

func (f *fakeService) PutResource(_ context.Context, r domain.Resource) error {
	f.put = r
	return f.err
}

type fakeHistory struct{ entries []history.Entry }

func (f *fakeHistory) Append(_ context.Context, e *history.Entry) error {
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeHistory) List(_ context.Context, _ string) ([]history.Entry, error) {
	return f.entries, nil
}

var now = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

func pendingReservation() domain.Reservation {
	day := clock.StartOfDay(now)
	return domain.Reservation{
		ID: "r-1", ResourceID: "car-1", RequesterID: "u-1",
		StartDate: day, EndDate: day.AddDate(0, 0, 2), TotalPrice: 50,
		Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now,
		PaymentDeadline: now.Add(5 * time.Minute),
	}
}

func newServer(svc *fakeService, hist history.Repository) http.Handler {
	return NewRouter(NewHandler(svc, hist, clock.NewManual(now)))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateReservation(t *testing.T) {
	svc := &fakeService{res: pendingReservation()}
	rec := do(t, newServer(svc, nil), http.MethodPost, "/reservations",
		`{"resource_id":"car-1","requester_id":"u-1","start_date":"2026-06-10","end_date":"2026-06-12"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(constants.HeaderXRequestId))

	var got ReservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, "PENDING", got.Status)
	assert.Equal(t, "2026-06-12", got.EndDate)
	assert.Equal(t, 300, got.RemainingSeconds)

	assert.Equal(t, "car-1", svc.created.ResourceID)
	assert.Equal(t, time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), svc.created.EndDate)
}

func TestCreateReservation_RejectsBadDates(t *testing.T) {
	rec := do(t, newServer(&fakeService{}, nil), http.MethodPost, "/reservations",
		`{"resource_id":"car-1","requester_id":"u-1","start_date":"10/06/2026","end_date":"2026-06-12"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, newServer(&fakeService{}, nil), http.MethodPost, "/reservations", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmPayment(t *testing.T) {
	confirmed := pendingReservation()
	confirmed.Status = domain.StatusConfirmed
	svc := &fakeService{res: confirmed}

	rec := do(t, newServer(svc, nil), http.MethodPost, "/reservations/r-1/payment", `{"payment_method":"card"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, app.ConfirmPaymentInput{ReservationID: "r-1", PaymentMethod: "card"}, svc.confirmed)

	var got ReservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0, got.RemainingSeconds)
}

func TestDomainErrorsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrReservationNotFound, http.StatusNotFound},
		{domain.ErrOutOfStock, http.StatusConflict},
		{domain.ErrInvalidDateRange, http.StatusBadRequest},
		{domain.ErrInvalidState, http.StatusConflict},
		{domain.ErrDeadlineExpired, http.StatusGone},
		{domain.ErrPaymentFailed, http.StatusPaymentRequired},
		{domain.ErrLockUnavailable, http.StatusServiceUnavailable},
		{domain.ErrStorage, http.StatusInternalServerError},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			svc := &fakeService{err: fmt.Errorf("wrapped: %w", tc.err)}
			rec := do(t, newServer(svc, nil), http.MethodPost, "/reservations/r-1/payment", `{"payment_method":"card"}`)
			assert.Equal(t, tc.want, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestListRequesterReservations(t *testing.T) {
	rec := do(t, newServer(&fakeService{res: pendingReservation()}, nil), http.MethodGet, "/requesters/u-1/reservations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []ReservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestResources(t *testing.T) {
	svc := &fakeService{}
	h := newServer(svc, nil)

	rec := do(t, h, http.MethodPut, "/resources/car-9", `{"available_count":4,"price_per_day":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Resource{ID: "car-9", AvailableCount: 4, PricePerDay: 60}, svc.put)

	rec = do(t, h, http.MethodGet, "/resources/car-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got ResourceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.AvailableCount)
}

func TestReservationHistory(t *testing.T) {
	svc := &fakeService{res: pendingReservation()}
	rec := do(t, newServer(svc, nil), http.MethodGet, "/reservations/r-1/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	hist := &fakeHistory{}
	require.NoError(t, hist.Append(context.Background(), &history.Entry{ReservationID: "r-1", ToStatus: "PENDING", Reason: "created", RecordedAt: now}))
	rec = do(t, newServer(svc, hist), http.MethodGet, "/reservations/r-1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []HistoryEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "PENDING", got[0].To)
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(&fakeService{}, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
