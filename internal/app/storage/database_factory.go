package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehving/noticesystem-sub000/internal/config"
	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/db"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/store/sqlstore"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
)

// DatabaseFactory creates database-backed storage components. Attempts
// and tickets live in the system-of-record Postgres; entity rows are read
// and written through one database/sql pool per enabled store.
type DatabaseFactory struct {
	pool        *pgxpool.Pool
	dbs         map[store.Store]*sql.DB
	pools       *sqlstore.Pools
	systemStore store.Store
}

var _ Factory = (*DatabaseFactory)(nil)

// NewDatabaseFactory connects to the system of record and to every
// enabled store. Connections opened before a failure are closed again.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}

	slog.Info("Creating database-backed storage factory")

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	dbs := make(map[store.Store]*sql.DB)
	for _, s := range cfg.EnabledStores() {
		sc := cfg.Store(s)
		conn, err := sqlstore.Open(ctx, s, sqlstore.Options{
			DSN:             cfg.DSN(s),
			MaxOpenConns:    sc.MaxOpenConns,
			MaxIdleConns:    sc.MaxIdleConns,
			ConnMaxLifetime: sc.ConnMaxLifetime.Std(),
		})
		if err != nil {
			pool.Close()
			_ = sqlstore.NewPools(dbs).Close()
			return nil, err
		}
		dbs[s] = conn
		slog.Info("Connected to store", "store", s)
	}

	return NewDatabaseFactoryFromConnections(pool, dbs, systemStoreOf(cfg)), nil
}

// NewDatabaseFactoryFromConnections wraps already opened connections.
// systemStore names the store sharing its database with pool, or "".
func NewDatabaseFactoryFromConnections(
	pool *pgxpool.Pool, dbs map[store.Store]*sql.DB, systemStore store.Store,
) *DatabaseFactory {
	return &DatabaseFactory{
		pool:        pool,
		dbs:         dbs,
		pools:       sqlstore.NewPools(dbs),
		systemStore: systemStore,
	}
}

// systemStoreOf returns PG when system tables are replicated. The
// system-of-record database is then expected to be the PG store itself.
func systemStoreOf(cfg *config.Config) store.Store {
	if !cfg.Sync.ReplicateSystemTables {
		return ""
	}
	for _, s := range cfg.EnabledStores() {
		if s == store.Postgres {
			return s
		}
	}
	slog.Warn("System table replication needs the PG store enabled; replication is off")
	return ""
}

// OpenAccessor implements Factory.
func (d *DatabaseFactory) OpenAccessor(s store.Store, table store.Table) (store.Accessor, error) {
	return d.pools.Open(s, table)
}

// AttemptRepository implements Factory.
func (d *DatabaseFactory) AttemptRepository() attempt.Repository {
	return attempt.NewDBRepository(d.pool)
}

// ConflictRepository implements Factory.
func (d *DatabaseFactory) ConflictRepository() conflict.Repository {
	return conflict.NewDBRepository(d.pool)
}

// SystemStore implements Factory.
func (d *DatabaseFactory) SystemStore() store.Store {
	return d.systemStore
}

// CheckReadiness implements Factory.
func (d *DatabaseFactory) CheckReadiness(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return fmt.Errorf("system of record unreachable: %w", err)
	}
	for _, s := range store.All() {
		conn, ok := d.dbs[s]
		if !ok {
			continue
		}
		if err := conn.PingContext(ctx); err != nil {
			return fmt.Errorf("store %s unreachable: %w", s, err)
		}
	}
	return nil
}

// Cleanup closes the system-of-record pool and every store pool.
func (d *DatabaseFactory) Cleanup() {
	slog.Info("Closing database connection pools")
	if d.pool != nil {
		d.pool.Close()
	}
	if err := d.pools.Close(); err != nil {
		slog.Error("Failed to close store pools", "error", err)
	}
}
