// Package api declares the payment.v1.Payment gRPC contract. Messages travel
// as google.protobuf.Struct so both sides share one schema without a codegen
// step; ChargeRequest and ChargeResponse are the typed views of those structs.
package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName      = "payment.v1.Payment"
	ChargeFullMethod = "/payment.v1.Payment/Charge"
)

type ChargeRequest struct {
	ReservationID string
	Amount        float64
	Method        string
}

func (r ChargeRequest) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"reservation_id": r.ReservationID,
		"amount":         r.Amount,
		"method":         r.Method,
	})
}

func ChargeRequestFromStruct(s *structpb.Struct) (ChargeRequest, error) {
	f := s.GetFields()
	req := ChargeRequest{
		ReservationID: f["reservation_id"].GetStringValue(),
		Amount:        f["amount"].GetNumberValue(),
		Method:        f["method"].GetStringValue(),
	}
	if req.ReservationID == "" {
		return ChargeRequest{}, fmt.Errorf("payment: reservation_id is required")
	}
	return req, nil
}

type ChargeResponse struct {
	Approved      bool
	TransactionID string
	Reason        string
}

func (r ChargeResponse) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"approved":       r.Approved,
		"transaction_id": r.TransactionID,
		"reason":         r.Reason,
	})
}

func ChargeResponseFromStruct(s *structpb.Struct) ChargeResponse {
	f := s.GetFields()
	return ChargeResponse{
		Approved:      f["approved"].GetBoolValue(),
		TransactionID: f["transaction_id"].GetStringValue(),
		Reason:        f["reason"].GetStringValue(),
	}
}

// PaymentServer is implemented by the payment service.
type PaymentServer interface {
	Charge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func RegisterPaymentServer(s grpc.ServiceRegistrar, srv PaymentServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaymentServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Charge",
			Handler:    chargeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payment/v1/payment.proto",
}

func chargeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PaymentServer).Charge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ChargeFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PaymentServer).Charge(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// PaymentClient calls the payment service.
type PaymentClient struct {
	cc grpc.ClientConnInterface
}

func NewPaymentClient(cc grpc.ClientConnInterface) *PaymentClient {
	return &PaymentClient{cc: cc}
}

func (c *PaymentClient) Charge(ctx context.Context, req ChargeRequest, opts ...grpc.CallOption) (ChargeResponse, error) {
	in, err := req.ToStruct()
	if err != nil {
		return ChargeResponse{}, fmt.Errorf("payment: encode charge: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ChargeFullMethod, in, out, opts...); err != nil {
		return ChargeResponse{}, err
	}
	return ChargeResponseFromStruct(out), nil
}
