// Package config reads the reservation service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port     string
	LogLevel string

	StoreDriver string
	SQLitePath  string
	DatabaseURL string
	// HistorySQLitePath is the audit log database; empty disables it.
	HistorySQLitePath string

	RedisAddr          string
	PaymentServiceAddr string

	PaymentGracePeriod time.Duration
	LockWaitTimeout    time.Duration
	LockLeaseTimeout   time.Duration
	PaymentTimeout     time.Duration

	ExpirySweepSchedule     string
	CompletionSweepSchedule string

	ServiceName    string
	TracingEnabled bool
}

// Load reads every setting, applying defaults for the ones that are unset.
func Load() (Config, error) {
	cfg := Config{
		Port:                    getEnv("PORT", "8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		StoreDriver:             getEnv("STORE_DRIVER", DriverSQLite),
		SQLitePath:              getEnv("SQLITE_PATH", "reservations.db"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		HistorySQLitePath:       getEnv("HISTORY_SQLITE_PATH", "reservation_history.db"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		PaymentServiceAddr:      getEnv("PAYMENT_SERVICE_ADDR", "localhost:9090"),
		ExpirySweepSchedule:     getEnv("EXPIRY_SWEEP_SCHEDULE", "@every 60s"),
		CompletionSweepSchedule: getEnv("COMPLETION_SWEEP_SCHEDULE", "0 0 2 * * *"),
		ServiceName:             getEnv("OTEL_SERVICE_NAME", "reservation-service"),
	}

	var err error
	if cfg.PaymentGracePeriod, err = getDuration("PAYMENT_GRACE_PERIOD", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.LockWaitTimeout, err = getDuration("LOCK_WAIT_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.LockLeaseTimeout, err = getDuration("LOCK_LEASE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PaymentTimeout, err = getDuration("PAYMENT_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TracingEnabled, err = getBool("TRACING_ENABLED", true); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.LockLeaseTimeout <= c.LockWaitTimeout/2 {
		return fmt.Errorf("config: LOCK_LEASE_TIMEOUT %s is too short for LOCK_WAIT_TIMEOUT %s", c.LockLeaseTimeout, c.LockWaitTimeout)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %s", key, d)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
