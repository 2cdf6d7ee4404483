package paymentservice

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/car-rental-reservations/internal/payment-service/api"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/cache"
)

func newTestServer(t *testing.T) *paymentServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewServer(cache.NewRedisCache(client, "payment"), WithAmountLimit(500))
}

func charge(t *testing.T, s *paymentServer, req api.ChargeRequest) api.ChargeResponse {
	t.Helper()
	in, err := req.ToStruct()
	require.NoError(t, err)
	out, err := s.Charge(context.Background(), in)
	require.NoError(t, err)
	return api.ChargeResponseFromStruct(out)
}

func TestPaymentServer_Charge(t *testing.T) {
	s := newTestServer(t)

	approved := charge(t, s, api.ChargeRequest{ReservationID: "r-1", Amount: 120, Method: "card"})
	assert.True(t, approved.Approved)
	assert.NotEmpty(t, approved.TransactionID)

	overLimit := charge(t, s, api.ChargeRequest{ReservationID: "r-2", Amount: 900, Method: "card"})
	assert.False(t, overLimit.Approved)
	assert.Equal(t, "amount exceeds limit", overLimit.Reason)

	declined := charge(t, s, api.ChargeRequest{ReservationID: "r-3", Amount: 10, Method: MethodDecline})
	assert.False(t, declined.Approved)
}

func TestPaymentServer_ChargeIsIdempotentPerReservation(t *testing.T) {
	s := newTestServer(t)

	first := charge(t, s, api.ChargeRequest{ReservationID: "r-1", Amount: 120, Method: "card"})
	second := charge(t, s, api.ChargeRequest{ReservationID: "r-1", Amount: 120, Method: "card"})

	require.True(t, first.Approved)
	assert.Equal(t, first.TransactionID, second.TransactionID)
}

func TestPaymentServer_ChargeRejectsMissingReservation(t *testing.T) {
	s := newTestServer(t)

	in, err := structpb.NewStruct(map[string]any{"amount": 10.0})
	require.NoError(t, err)
	_, err = s.Charge(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
