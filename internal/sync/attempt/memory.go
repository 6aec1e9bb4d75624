package attempt

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

// MemoryRepository keeps attempt rows in memory. It backs the memory
// storage mode and tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]*entity.SyncAttempt
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]*entity.SyncAttempt)}
}

func clone(a *entity.SyncAttempt) *entity.SyncAttempt {
	c := *a
	if a.ErrorMsg != nil {
		msg := *a.ErrorMsg
		c.ErrorMsg = &msg
	}
	return &c
}

func createdAt(a *entity.SyncAttempt) time.Time {
	if a.CreateTime == nil {
		return time.Time{}
	}
	return *a.CreateTime
}

func updatedAt(a *entity.SyncAttempt) time.Time {
	if a.UpdateTime == nil {
		return createdAt(a)
	}
	return *a.UpdateTime
}

// newestFirst orders by creation time descending, then id.
func newestFirst(a, b *entity.SyncAttempt) int {
	if c := createdAt(b).Compare(createdAt(a)); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// Insert implements Repository.
func (m *MemoryRepository) Insert(_ context.Context, a *entity.SyncAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[a.ID] = clone(a)
	return nil
}

// Get implements Repository.
func (m *MemoryRepository) Get(_ context.Context, id string) (*entity.SyncAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return clone(a), nil
}

// Update implements Repository.
func (m *MemoryRepository) Update(_ context.Context, a *entity.SyncAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[a.ID]
	if !ok {
		return ErrAttemptNotFound
	}
	next := clone(cur)
	next.Status = a.Status
	next.ErrorMsg = clone(a).ErrorMsg
	next.RetryCount = a.RetryCount
	next.UpdateTime = a.UpdateTime
	m.rows[a.ID] = next
	return nil
}

func (m *MemoryRepository) collect(keep func(*entity.SyncAttempt) bool) []*entity.SyncAttempt {
	var out []*entity.SyncAttempt
	for _, a := range m.rows {
		if keep(a) {
			out = append(out, clone(a))
		}
	}
	return out
}

func truncate(rows []*entity.SyncAttempt, limit int) []*entity.SyncAttempt {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// ListRetryable implements Repository.
func (m *MemoryRepository) ListRetryable(_ context.Context, maxRetries, limit int) ([]*entity.SyncAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.collect(func(a *entity.SyncAttempt) bool {
		return a.Status == entity.AttemptFailed && a.RetryCount < maxRetries
	})
	slices.SortFunc(rows, func(a, b *entity.SyncAttempt) int {
		if c := updatedAt(a).Compare(updatedAt(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return truncate(rows, limit), nil
}

// ListSucceeded implements Repository.
func (m *MemoryRepository) ListSucceeded(
	_ context.Context, target store.Store, from, to time.Time, limit int,
) ([]*entity.SyncAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.collect(func(a *entity.SyncAttempt) bool {
		u := updatedAt(a)
		return a.Status == entity.AttemptSuccess && a.TargetStore == string(target) &&
			u.After(from) && !u.After(to)
	})
	slices.SortFunc(rows, func(a, b *entity.SyncAttempt) int {
		if c := updatedAt(b).Compare(updatedAt(a)); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return truncate(rows, limit), nil
}

func (f Filter) matches(a *entity.SyncAttempt) bool {
	switch {
	case f.Status != "" && a.Status != f.Status:
		return false
	case f.EntityType != "" && a.EntityType != f.EntityType:
		return false
	case f.EntityID != "" && a.EntityID != f.EntityID:
		return false
	case f.Action != "" && a.Action != f.Action:
		return false
	case f.Source != "" && a.SourceStore != string(f.Source):
		return false
	case f.Target != "" && a.TargetStore != string(f.Target):
		return false
	case f.From != nil && createdAt(a).Before(*f.From):
		return false
	case f.To != nil && createdAt(a).After(*f.To):
		return false
	}
	return true
}

// List implements Repository.
func (m *MemoryRepository) List(_ context.Context, f Filter) (Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.collect(f.matches)
	slices.SortFunc(rows, newestFirst)

	page := Page{Total: int64(len(rows))}
	if f.Offset >= len(rows) {
		page.Items = []*entity.SyncAttempt{}
		return page, nil
	}
	page.Items = truncate(rows[f.Offset:], f.Limit)
	return page, nil
}

// DeleteOlderThan implements Repository.
func (m *MemoryRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, a := range m.rows {
		if createdAt(a).Before(cutoff) {
			ids = append(ids, id)
			delete(m.rows, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// DeleteBeyond implements Repository.
func (m *MemoryRepository) DeleteBeyond(_ context.Context, keep int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) <= keep {
		return nil, nil
	}
	rows := make([]*entity.SyncAttempt, 0, len(m.rows))
	for _, a := range m.rows {
		rows = append(rows, a)
	}
	slices.SortFunc(rows, newestFirst)

	ids := make([]string, 0, len(rows)-keep)
	for _, a := range rows[keep:] {
		ids = append(ids, a.ID)
		delete(m.rows, a.ID)
	}
	return ids, nil
}

// DailyStats implements Repository.
func (m *MemoryRepository) DailyStats(_ context.Context, from, to time.Time) ([]DailyStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type key struct{ day, source, target string }
	acc := make(map[key]*DailyStat)
	for _, a := range m.rows {
		c := createdAt(a)
		if c.Before(from) || !c.Before(to) {
			continue
		}
		k := key{c.UTC().Format(time.DateOnly), a.SourceStore, a.TargetStore}
		s, ok := acc[k]
		if !ok {
			s = &DailyStat{Day: k.day, Source: k.source, Target: k.target}
			acc[k] = s
		}
		s.Total++
		switch a.Status {
		case entity.AttemptSuccess:
			s.Success++
		case entity.AttemptFailed, entity.AttemptError:
			s.Failed++
		}
	}

	out := make([]DailyStat, 0, len(acc))
	for _, s := range acc {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b DailyStat) int {
		return cmp.Or(cmp.Compare(a.Day, b.Day), cmp.Compare(a.Source, b.Source), cmp.Compare(a.Target, b.Target))
	})
	return out, nil
}
