package storage

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehving/noticesystem-sub000/database"
	"github.com/ehving/noticesystem-sub000/internal/config"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

func TestNewStorageFactory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr string
	}{
		{name: "nil config", wantErr: "config cannot be nil"},
		{
			name:    "unknown type",
			cfg:     &config.Config{Storage: config.StorageConfig{Type: "file"}},
			wantErr: "unknown storage type: file",
		},
		{
			name:    "database mode without database",
			cfg:     &config.Config{Storage: config.StorageConfig{Type: config.StorageDatabase}},
			wantErr: "database configuration is required",
		},
		{
			name: "memory",
			cfg:  &config.Config{Storage: config.StorageConfig{Type: config.StorageMemory}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := NewStorageFactory(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &MemoryFactory{}, f)
			f.Cleanup()
		})
	}
}

func TestMemoryFactory(t *testing.T) {
	t.Parallel()

	f := NewMemoryFactory()
	registry, err := entity.Build(store.All(), entity.Definitions(), f.OpenAccessor)
	require.NoError(t, err)

	acc, err := registry.Accessor(entity.TypeRole, store.MySQL)
	require.NoError(t, err)
	assert.Same(t, f.Backend().Table(store.MySQL, "role"), acc)

	assert.NotNil(t, f.AttemptRepository())
	assert.NotNil(t, f.ConflictRepository())
	assert.Empty(t, f.SystemStore())
	assert.NoError(t, f.CheckReadiness(context.Background()))
}

func TestSystemStoreOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    *config.Config
		expect store.Store
	}{
		{name: "replication off", cfg: &config.Config{}, expect: ""},
		{
			name:   "replication on",
			cfg:    &config.Config{Sync: config.SyncConfig{ReplicateSystemTables: true}},
			expect: store.Postgres,
		},
		{
			name: "replication on without PG",
			cfg: &config.Config{
				Sync:   config.SyncConfig{ReplicateSystemTables: true},
				Stores: map[string]config.StoreConfig{"PG": {Disabled: true}},
			},
			expect: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, systemStoreOf(tt.cfg))
		})
	}
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	return conn
}

func TestDatabaseFactory(t *testing.T) {
	t.Parallel()

	pool := database.SetupTestDB(t)
	ctx := context.Background()

	mysqlDB, sqlserverDB := openSQLite(t), openSQLite(t)
	f := NewDatabaseFactoryFromConnections(pool, map[store.Store]*sql.DB{
		store.MySQL:     mysqlDB,
		store.SQLServer: sqlserverDB,
	}, "")

	require.NoError(t, f.CheckReadiness(ctx))
	assert.NotNil(t, f.AttemptRepository())
	assert.NotNil(t, f.ConflictRepository())

	_, err := f.OpenAccessor(store.MySQL, store.Table{Name: "role"})
	require.NoError(t, err)
	_, err = f.OpenAccessor(store.Postgres, store.Table{Name: "role"})
	require.Error(t, err)

	require.NoError(t, sqlserverDB.Close())
	err = f.CheckReadiness(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store SQLSERVER unreachable")
}
