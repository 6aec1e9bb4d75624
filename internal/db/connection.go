// Package db connects to the Postgres system of record that holds the
// attempt log and the conflict tickets.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehving/noticesystem-sub000/internal/config"
)

const (
	defaultMaxConns        = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnectTimeout  = 30 * time.Second
)

// PoolConfig builds the pgxpool configuration for cfg. With dynamic auth
// the password is left empty and set per connection by a BeforeConnect hook.
func PoolConfig(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	hook, err := DynamicAuth(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up dynamic auth: %w", err)
	}

	var connStr string
	if hook != nil {
		connStr = cfg.ConnectionStringWithPassword("")
	} else if connStr, err = cfg.GetConnectionString(); err != nil {
		return nil, fmt.Errorf("failed to get database password: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database configuration: %w", err)
	}
	if hook != nil {
		poolCfg.BeforeConnect = hook
	}

	poolCfg.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = defaultConnMaxLifetime
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime.Std()
	}
	return poolCfg, nil
}

// NewPool connects to the system of record and waits until it answers a
// ping, retrying with exponential backoff for up to connectTimeout.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := PoolConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, pool.Ping(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(defaultConnectTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Database not reachable yet, retrying", "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connection established",
		"user", cfg.User, "host", cfg.Host, "port", cfg.Port, "database", cfg.Database,
		"dynamic_auth", cfg.DynamicAuth != nil)
	return pool, nil
}
