// Package snapshot reads one entity instance from every store and judges
// whether the stores agree on it.
package snapshot

import (
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

// Snapshot is the transient cross-store view of one entity instance.
// It is never persisted; tickets keep SnapshotItems derived from it.
type Snapshot struct {
	EntityType entity.Type
	EntityID   string
	// FingerprintVersion is the version the hashes were computed with.
	FingerprintVersion int
	Stores             []store.Store
	Exists             map[store.Store]bool
	// Hashes holds an entry only for stores where the row exists.
	Hashes map[store.Store]string
	// Rows holds the current row of every store where it exists.
	Rows map[store.Store]store.Row
}

// Empty reports whether no store was read, as for a blank entity id.
func (s Snapshot) Empty() bool {
	return len(s.Stores) == 0
}

// AnyMissing reports whether at least one store lacks the row.
func (s Snapshot) AnyMissing() bool {
	for _, st := range s.Stores {
		if !s.Exists[st] {
			return true
		}
	}
	return false
}

// AllExist reports whether every store has the row.
func (s Snapshot) AllExist() bool {
	if s.Empty() {
		return false
	}
	return !s.AnyMissing()
}

// AllMissing reports whether no store has the row.
func (s Snapshot) AllMissing() bool {
	for _, st := range s.Stores {
		if s.Exists[st] {
			return false
		}
	}
	return true
}

// Mismatch reports whether every store has the row but two hashes differ.
// The first non-empty hash in store order is the baseline.
func (s Snapshot) Mismatch() bool {
	if !s.AllExist() {
		return false
	}
	var baseline string
	for _, st := range s.Stores {
		h := s.Hashes[st]
		if h == "" {
			continue
		}
		if baseline == "" {
			baseline = h
			continue
		}
		if h != baseline {
			return true
		}
	}
	return false
}

// Classify judges snapshot s taken after action. The boolean is false when
// the stores agree.
//
// A DELETE is complete only when every store lacks the row. A CREATE or
// UPDATE diverges when any store lacks the row (MISSING) or when all have
// it with different content (MISMATCH).
func Classify(action entity.Action, s Snapshot) (entity.ConflictType, bool) {
	if s.Empty() {
		return "", false
	}
	if action == entity.ActionDelete {
		if s.AllMissing() {
			return "", false
		}
		return entity.ConflictMissing, true
	}
	if s.AnyMissing() {
		return entity.ConflictMissing, true
	}
	if s.Mismatch() {
		return entity.ConflictMismatch, true
	}
	return "", false
}
