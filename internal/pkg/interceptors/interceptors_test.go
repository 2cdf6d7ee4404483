package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/car-rental-reservations/internal/pkg/interceptors/constants"
)

func TestUnaryServerInterceptor_UsesIncomingRequestID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(constants.HeaderXRequestId, "req-42"))

	var seen string
	_, err := UnaryServerInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(ctx context.Context, _ any) (any, error) {
			seen = RequestIDFromContext(ctx)
			return nil, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "req-42", seen)
}

func TestUnaryServerInterceptor_GeneratesMissingRequestID(t *testing.T) {
	var seen string
	_, err := UnaryServerInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(ctx context.Context, _ any) (any, error) {
			seen = RequestIDFromContext(ctx)
			return nil, nil
		})
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
}

func TestUnaryClientInterceptor_PropagatesRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")

	var sent []string
	err := UnaryClientInterceptor()(ctx, "/x/Y", nil, nil, nil,
		func(ctx context.Context, _ string, _, _ any, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
			md, _ := metadata.FromOutgoingContext(ctx)
			sent = md.Get(constants.HeaderXRequestId)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"req-7"}, sent)
}
