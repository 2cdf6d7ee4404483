package interceptors

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/car-rental-reservations/internal/pkg/interceptors/constants"
)

// WithRequestID stores id in ctx so outgoing calls and log lines can carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, constants.ContextKeyRequestID, id)
}

// RequestIDFromContext returns the request id from ctx, falling back to the
// incoming gRPC metadata. It returns "" when neither carries one.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
		return id
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(constants.HeaderXRequestId); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}

// UnaryServerInterceptor lifts x-request-id from the incoming metadata into
// the context, generating one when the caller sent none.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		requestID := RequestIDFromContext(ctx)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = WithRequestID(ctx, requestID)

		slog.DebugContext(ctx, "grpc call started", "method", info.FullMethod, "request_id", requestID)
		return handler(ctx, req)
	}
}

// UnaryClientInterceptor forwards the request id in ctx as x-request-id.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		if id := RequestIDFromContext(ctx); id != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, constants.HeaderXRequestId, id)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
