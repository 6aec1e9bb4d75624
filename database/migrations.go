// Package database provides the embedded schema migrations of every store.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlserver "github.com/golang-migrate/migrate/v4/database/sqlserver"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"  // registers the "pgx" driver
	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver

	"github.com/ehving/noticesystem-sub000/internal/store"
)

//go:embed migrations
var migrationsFS embed.FS

// dialectDir maps a store to its migration directory.
func dialectDir(s store.Store) (string, error) {
	switch s {
	case store.MySQL:
		return "migrations/mysql", nil
	case store.Postgres:
		return "migrations/postgres", nil
	case store.SQLServer:
		return "migrations/sqlserver", nil
	}
	return "", fmt.Errorf("no migrations for store %q", s)
}

// migrationsFromSource returns a migration source driver for the dialect of s.
func migrationsFromSource(s store.Store) (source.Driver, error) {
	dir, err := dialectDir(s)
	if err != nil {
		return nil, err
	}
	return iofs.New(migrationsFS, dir)
}

// Migrator is the interface for the migration tooling.
type Migrator interface {
	Up() error
	Down() error
	Steps(int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// NewFromConnectionString returns a migration instance for the Postgres
// system of record. connString is a postgres:// URL.
func NewFromConnectionString(connString string) (Migrator, error) {
	d, err := migrationsFromSource(store.Postgres)
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", d, pgx5URL(connString))
}

// NewForStore returns a migration instance for store s reached through dsn,
// a connection string in the store driver's own format.
func NewForStore(s store.Store, dsn string) (Migrator, error) {
	src, err := migrationsFromSource(s)
	if err != nil {
		return nil, err
	}

	db, err := openForMigration(s, dsn)
	if err != nil {
		return nil, err
	}

	var driver migratedb.Driver
	switch s {
	case store.MySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case store.Postgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	case store.SQLServer:
		driver, err = migratesqlserver.WithInstance(db, &migratesqlserver.Config{})
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create %s migration driver: %w", s, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, strings.ToLower(string(s)), driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

// openForMigration opens a dedicated connection. MySQL needs multi-statement
// support to run a migration file in one call.
func openForMigration(s store.Store, dsn string) (*sql.DB, error) {
	switch s {
	case store.MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.MultiStatements = true
		cfg.ParseTime = true
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, err
		}
		return sql.OpenDB(connector), nil
	case store.Postgres:
		return sql.Open("pgx", dsn)
	case store.SQLServer:
		return sql.Open("sqlserver", dsn)
	}
	return nil, fmt.Errorf("no driver for store %q", s)
}

// pgx5URL rewrites a postgres URL to the scheme the migrate pgx/v5 driver registers.
func pgx5URL(connString string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(connString, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return connString
}
