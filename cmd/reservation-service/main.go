package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jcmexdev/car-rental-reservations/internal/config"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/clock"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/dlock"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/interceptors"
	"github.com/jcmexdev/car-rental-reservations/internal/pkg/telemetry"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/adapters/payment"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/adapters/postgres"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/adapters/sqlite"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/app"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/history"
	historysqlite "github.com/jcmexdev/car-rental-reservations/internal/reservation-service/history/sqlite"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/infra/httpx"
	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("reservation service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if cfg.TracingEnabled {
		shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{ServiceName: cfg.ServiceName})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	ledger, store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var historyRepo history.Repository
	if cfg.HistorySQLitePath != "" {
		repo, err := historysqlite.Open(cfg.HistorySQLitePath)
		if err != nil {
			return err
		}
		defer repo.Close()
		historyRepo = repo
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}

	payConn, err := grpc.NewClient(cfg.PaymentServiceAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(interceptors.UnaryClientInterceptor()),
	)
	if err != nil {
		return fmt.Errorf("could not connect to payment service at %s: %w", cfg.PaymentServiceAddr, err)
	}
	defer payConn.Close()

	clk := clock.NewSystem()
	engine := app.NewEngine(
		ledger,
		store,
		dlock.New(rdb),
		payment.NewGRPCGateway(payConn),
		clk,
		app.WithGracePeriod(cfg.PaymentGracePeriod),
		app.WithLockTimeouts(cfg.LockWaitTimeout, cfg.LockLeaseTimeout),
		app.WithPaymentTimeout(cfg.PaymentTimeout),
		app.WithHistory(historyRepo),
	)

	sched, err := scheduler.New(engine, cfg.ExpirySweepSchedule, cfg.CompletionSweepSchedule)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpx.NewRouter(httpx.NewHandler(engine, historyRepo, clk)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("reservation service HTTP running", "addr", srv.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (app.Ledger, app.ReservationStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return postgres.NewLedger(pool), postgres.NewReservationRepository(pool), pool.Close, nil
	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewLedger(db), sqlite.NewReservationRepository(db), func() { _ = db.Close() }, nil
	}
}
