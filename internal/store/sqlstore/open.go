package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"  // registers the "pgx" driver
	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnectTimeout  = 30 * time.Second
)

// Options configures the connection pool of one store.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectTimeout bounds the retried initial ping.
	ConnectTimeout time.Duration
}

// Open connects to store s and waits until it answers a ping.
func Open(ctx context.Context, s store.Store, opts Options) (*sql.DB, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("dsn for store %s is required", s)
	}
	dialect, err := DialectFor(s)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if s == store.MySQL {
		db, err = openMySQL(opts.DSN)
	} else {
		db, err = sql.Open(dialect.DriverName, opts.DSN)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", s, err)
	}

	applyPool(db, opts)

	connectTimeout := opts.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = defaultConnectTimeout
	}
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, db.PingContext(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(connectTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Store not reachable yet, retrying", "store", s, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close store connection after ping failure", "store", s, "error", closeErr)
		}
		return nil, fmt.Errorf("failed to ping store %s: %w", s, err)
	}

	slog.Info("Store connection established", "store", s, "driver", dialect.DriverName)
	return db, nil
}

// openMySQL forces the DSN options the accessors rely on: time parsing
// and "found rows" semantics for UPDATE, so an unchanged row still counts.
func openMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func applyPool(db *sql.DB, opts Options) {
	maxOpen := opts.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = defaultMaxIdleConns
	}
	lifetime := opts.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = defaultConnMaxLifetime
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
}

// Pools holds one connection pool per store and opens accessors on them.
type Pools struct {
	dbs map[store.Store]*sql.DB
}

// NewPools wraps already opened connections.
func NewPools(dbs map[store.Store]*sql.DB) *Pools {
	return &Pools{dbs: dbs}
}

// Open returns the accessor for table in s. Its signature matches
// entity.AccessorFactory.
func (p *Pools) Open(s store.Store, table store.Table) (store.Accessor, error) {
	db, ok := p.dbs[s]
	if !ok {
		return nil, fmt.Errorf("no connection for store %s", s)
	}
	dialect, err := DialectFor(s)
	if err != nil {
		return nil, err
	}
	return NewAccessor(db, dialect, table), nil
}

var _ entity.AccessorFactory = (*Pools)(nil).Open

// Close closes every pool.
func (p *Pools) Close() error {
	var firstErr error
	for s, db := range p.dbs {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close store connection", "store", s, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
