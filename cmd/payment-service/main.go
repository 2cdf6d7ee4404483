package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/jcmexdev/car-rental-reservations/internal/payment-service/api"
	paymentservice "github.com/jcmexdev/car-rental-reservations/internal/payment-service/app"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/cache"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/interceptors"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/telemetry"
)

func main() {
	telemetry.InitLogger(getEnv("LOG_LEVEL", "info"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{ServiceName: getEnv("OTEL_SERVICE_NAME", "payment-service")})
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	addr := ":" + getEnv("PORT", "9090")
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("failed to listen", "addr", addr, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.UnaryServerInterceptor(),
			interceptors.LoggingServerInterceptor(),
		),
	)

	rdb := redis.NewClient(&redis.Options{Addr: getEnv("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()

	limit, err := strconv.ParseFloat(getEnv("PAYMENT_AMOUNT_LIMIT", "5000"), 64)
	if err != nil {
		slog.Error("invalid PAYMENT_AMOUNT_LIMIT", "error", err)
		os.Exit(1)
	}
	paymentSrv := paymentservice.NewServer(cache.NewRedisCache(rdb, "payment"), paymentservice.WithAmountLimit(limit))
	api.RegisterPaymentServer(grpcServer, paymentSrv)

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	slog.Info("payment service gRPC running", "addr", addr)

	if err := grpcServer.Serve(lis); err != nil {
		slog.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
