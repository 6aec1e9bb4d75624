package database

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehving/noticesystem-sub000/internal/store"
)

func TestMigrationFilesPerDialect(t *testing.T) {
	t.Parallel()

	var counts []int
	for _, s := range store.All() {
		dir, err := dialectDir(s)
		require.NoError(t, err)

		ups, err := fs.Glob(migrationsFS, dir+"/*.up.sql")
		require.NoError(t, err)
		downs, err := fs.Glob(migrationsFS, dir+"/*.down.sql")
		require.NoError(t, err)

		assert.NotEmpty(t, ups, s)
		assert.Len(t, downs, len(ups), "every up migration of %s needs a down", s)
		counts = append(counts, len(ups))

		src, err := migrationsFromSource(s)
		require.NoError(t, err)
		first, err := src.First()
		require.NoError(t, err)
		assert.Equal(t, uint(1), first)
	}
	for _, c := range counts[1:] {
		assert.Equal(t, counts[0], c, "dialects must stay at the same schema version")
	}
}

func TestMigrationsFromSource_UnknownStore(t *testing.T) {
	t.Parallel()

	_, err := migrationsFromSource(store.Store("ORACLE"))
	require.Error(t, err)
	_, err = NewForStore(store.Store("ORACLE"), "dsn")
	require.Error(t, err)
}

func TestPgx5URL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pgx5://u:p@h:5432/db", pgx5URL("postgres://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://u:p@h:5432/db", pgx5URL("postgresql://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://already", pgx5URL("pgx5://already"))
}

func TestMigrations(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	connString := SetupTestDBContainer(t, context.Background())

	m, err := NewFromConnectionString(connString)
	require.NoError(t, err)
	defer func() { _, _ = m.Close() }()

	fnames, err := fs.Glob(migrationsFS, "migrations/postgres/*.up.sql")
	require.NoError(t, err)

	for i := 1; i <= len(fnames); i++ {
		assert.NoError(t, m.Steps(i))
		assert.NoError(t, m.Steps(-i))
		assert.NoError(t, m.Steps(i))
		assert.NoError(t, m.Steps(-i))
	}
}
