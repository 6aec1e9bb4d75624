package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehving/noticesystem-sub000/internal/config"
)

//nolint:paralleltest // mutates the environment
func TestPoolConfig(t *testing.T) {
	t.Setenv(config.EnvDatabasePassword, "secret")

	tests := []struct {
		name         string
		cfg          *config.DatabaseConfig
		wantMaxConns int32
		wantLifetime time.Duration
		wantErr      string
	}{
		{
			name:    "nil config",
			wantErr: "database configuration is required",
		},
		{
			name: "defaults",
			cfg: &config.DatabaseConfig{
				Host: "localhost", Port: 5432, User: "app", Database: "reconciler", SSLMode: "disable",
			},
			wantMaxConns: defaultMaxConns,
			wantLifetime: defaultConnMaxLifetime,
		},
		{
			name: "overrides",
			cfg: &config.DatabaseConfig{
				Host: "localhost", Port: 5432, User: "app", Database: "reconciler", SSLMode: "disable",
				MaxConns: 3, ConnMaxLifetime: config.Duration(time.Minute),
			},
			wantMaxConns: 3,
			wantLifetime: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poolCfg, err := PoolConfig(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMaxConns, poolCfg.MaxConns)
			assert.Equal(t, tt.wantLifetime, poolCfg.MaxConnLifetime)
			assert.Equal(t, "localhost", poolCfg.ConnConfig.Host)
			assert.Equal(t, "secret", poolCfg.ConnConfig.Password)
			assert.Equal(t, "reconciler", poolCfg.ConnConfig.Database)
			assert.Nil(t, poolCfg.BeforeConnect)
		})
	}
}

//nolint:paralleltest // mutates the environment
func TestNewPool_MissingPassword(t *testing.T) {
	t.Setenv(config.EnvDatabasePassword, "")

	_, err := NewPool(context.Background(), &config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "app", Database: "reconciler",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get database password")
}
