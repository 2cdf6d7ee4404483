// Package payment connects the reservation engine to the payment service
// over gRPC.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"

	"github.com/jcmexdev/car-rental-reservations/internal/payment-service/api"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/app"
)

type GRPCGateway struct {
	client *api.PaymentClient
}

var _ app.PaymentGateway = (*GRPCGateway)(nil)

func NewGRPCGateway(cc grpc.ClientConnInterface) *GRPCGateway {
	return &GRPCGateway{client: api.NewPaymentClient(cc)}
}

func (g *GRPCGateway) Charge(ctx context.Context, req app.ChargeRequest) (app.ChargeResult, error) {
	resp, err := g.client.Charge(ctx, api.ChargeRequest{
		ReservationID: req.ReservationID,
		Amount:        req.Amount,
		Method:        req.Method,
	})
	if err != nil {
		return app.ChargeResult{}, fmt.Errorf("payment service: %w", err)
	}
	if !resp.Approved {
		slog.InfoContext(ctx, "charge declined", "reservation_id", req.ReservationID, "reason", resp.Reason)
	}
	return app.ChargeResult{Approved: resp.Approved, TransactionID: resp.TransactionID}, nil
}
