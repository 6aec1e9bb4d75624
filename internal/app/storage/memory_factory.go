package storage

import (
	"context"
	"log/slog"

	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/store/memstore"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
)

// MemoryFactory keeps every store, attempt and ticket in process memory.
type MemoryFactory struct {
	backend   *memstore.Backend
	attempts  *attempt.MemoryRepository
	conflicts *conflict.MemoryRepository
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates an empty in-memory family.
func NewMemoryFactory() *MemoryFactory {
	slog.Info("Creating in-memory storage factory")
	return &MemoryFactory{
		backend:   memstore.NewBackend(),
		attempts:  attempt.NewMemoryRepository(),
		conflicts: conflict.NewMemoryRepository(),
	}
}

// Backend returns the in-memory stores, e.g. to seed rows.
func (m *MemoryFactory) Backend() *memstore.Backend {
	return m.backend
}

// OpenAccessor implements Factory.
func (m *MemoryFactory) OpenAccessor(s store.Store, table store.Table) (store.Accessor, error) {
	return m.backend.Open(s, table)
}

// AttemptRepository implements Factory.
func (m *MemoryFactory) AttemptRepository() attempt.Repository {
	return m.attempts
}

// ConflictRepository implements Factory.
func (m *MemoryFactory) ConflictRepository() conflict.Repository {
	return m.conflicts
}

// SystemStore implements Factory. Memory repositories are not part of
// any store, so their rows are never replicated.
func (*MemoryFactory) SystemStore() store.Store {
	return ""
}

// CheckReadiness implements Factory.
func (*MemoryFactory) CheckReadiness(context.Context) error {
	return nil
}

// Cleanup implements Factory.
func (*MemoryFactory) Cleanup() {}
