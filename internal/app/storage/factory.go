// Package storage creates the storage-dependent components as a family:
// the store accessors and the attempt and ticket repositories all use the
// same backend.
package storage

import (
	"context"
	"fmt"

	"github.com/ehving/noticesystem-sub000/internal/config"
	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components as a family.
// Implementations ensure all components are compatible with each other
// (all backed by the databases or all held in memory).
type Factory interface {
	// OpenAccessor returns the accessor of table in store s. Its signature
	// matches entity.AccessorFactory.
	OpenAccessor(s store.Store, table store.Table) (store.Accessor, error)

	// AttemptRepository returns the repository of the attempt log.
	AttemptRepository() attempt.Repository

	// ConflictRepository returns the repository of conflict tickets.
	ConflictRepository() conflict.Repository

	// SystemStore returns the participating store that also holds the
	// attempt and ticket tables, or "" when they live outside the stores.
	SystemStore() store.Store

	// CheckReadiness pings every backend.
	CheckReadiness(ctx context.Context) error

	// Cleanup releases any resources held by this factory.
	// Should be called when the application shuts down.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured storage type.
func NewStorageFactory(ctx context.Context, cfg *config.Config) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.Storage.Type {
	case config.StorageDatabase:
		return NewDatabaseFactory(ctx, cfg)
	case config.StorageMemory:
		return NewMemoryFactory(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
