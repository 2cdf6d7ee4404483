package paymentservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/car-rental-reservations/internal/payment-service/api"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/cache"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/interceptors"
)

const (
	defaultAmountLimit = 5000.00
	chargeResultTTL    = 24 * time.Hour

	// MethodDecline always fails; useful for exercising the cancel path.
	MethodDecline = "decline"
)

// paymentServer is a stand-in payment provider. It approves every charge up
// to a limit and remembers the outcome per reservation, so a retried charge
// gets the same answer instead of a second transaction.
type paymentServer struct {
	cache       cache.Cache
	amountLimit float64
}

var _ api.PaymentServer = (*paymentServer)(nil)

type Option func(*paymentServer)

func WithAmountLimit(limit float64) Option {
	return func(s *paymentServer) {
		if limit > 0 {
			s.amountLimit = limit
		}
	}
}

func NewServer(c cache.Cache, opts ...Option) *paymentServer {
	s := &paymentServer{
		cache:       c,
		amountLimit: defaultAmountLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *paymentServer) Charge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := api.ChargeRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	log := slog.With(
		"reservation_id", req.ReservationID,
		"request_id", interceptors.RequestIDFromContext(ctx),
	)

	key := s.cache.GenerateKey("charge", req.ReservationID)
	if cached, err := s.cache.Get(ctx, key); err != nil {
		log.WarnContext(ctx, "charge cache unavailable", "error", err)
	} else if cached != "" {
		var prev api.ChargeResponse
		if err := json.Unmarshal([]byte(cached), &prev); err == nil {
			log.InfoContext(ctx, "replaying charge result", "approved", prev.Approved)
			return prev.ToStruct()
		}
	}

	resp := s.decide(req)
	log.InfoContext(ctx, "charge processed", "amount", req.Amount, "approved", resp.Approved, "reason", resp.Reason)

	if raw, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, key, raw, chargeResultTTL); err != nil {
			log.WarnContext(ctx, "failed to cache charge result", "error", err)
		}
	}
	return resp.ToStruct()
}

func (s *paymentServer) decide(req api.ChargeRequest) api.ChargeResponse {
	switch {
	case strings.EqualFold(req.Method, MethodDecline):
		return api.ChargeResponse{Reason: "declined by issuer"}
	case req.Amount <= 0:
		return api.ChargeResponse{Reason: "invalid amount"}
	case req.Amount > s.amountLimit:
		return api.ChargeResponse{Reason: "amount exceeds limit"}
	default:
		return api.ChargeResponse{Approved: true, TransactionID: uuid.NewString()}
	}
}
