package database

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// nopLogger silences testcontainers output.
type nopLogger struct{}

func (*nopLogger) Printf(_ string, _ ...any) {}

var _ tclog.Logger = (*nopLogger)(nil)

const (
	testDBImage = "postgres:16-alpine"
	testDBName  = "notices"
	testDBUser  = "reconciler"
	testDBPass  = "reconciler"
)

// SetupTestDBContainer starts a Postgres container and returns its
// connection string. The container is removed when the test ends.
func SetupTestDBContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	ctr, err := postgres.Run(ctx, testDBImage,
		postgres.WithDatabase(testDBName),
		postgres.WithUsername(testDBUser),
		postgres.WithPassword(testDBPass),
		postgres.BasicWaitStrategies(),
		tc.WithLogger(&nopLogger{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { tc.CleanupContainer(t, ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

// SetupTestDB starts a migrated Postgres system of record and returns a
// pool connected to it. Tests using it are skipped under -short.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, SetupTestStoreDSN(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// SetupTestStoreDSN starts a Postgres container holding the PG store schema
// and returns its DSN for the pgx stdlib driver. Skipped under -short.
func SetupTestStoreDSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	dsn := SetupTestDBContainer(t, context.Background())
	m, err := NewFromConnectionString(dsn)
	require.NoError(t, err)
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}
	return dsn
}
