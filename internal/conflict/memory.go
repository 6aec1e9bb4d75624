package conflict

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ehving/noticesystem-sub000/internal/entity"
)

// MemoryRepository keeps tickets in memory. It backs the memory storage
// mode and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	tickets map[string]*entity.ConflictTicket
	items   map[string][]*entity.SnapshotItem
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tickets: make(map[string]*entity.ConflictTicket),
		items:   make(map[string][]*entity.SnapshotItem),
	}
}

func cloneTicket(t *entity.ConflictTicket) *entity.ConflictTicket {
	c := *t
	return &c
}

func cloneItems(items []*entity.SnapshotItem) []*entity.SnapshotItem {
	out := make([]*entity.SnapshotItem, len(items))
	for i, it := range items {
		c := *it
		out[i] = &c
	}
	return out
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// Get implements Repository.
func (m *MemoryRepository) Get(_ context.Context, id string) (*entity.ConflictTicket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return cloneTicket(t), nil
}

// GetByEntity implements Repository.
func (m *MemoryRepository) GetByEntity(_ context.Context, typ entity.Type, entityID string) (*entity.ConflictTicket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tickets {
		if t.EntityType == typ && t.EntityID == entityID {
			return cloneTicket(t), nil
		}
	}
	return nil, ErrTicketNotFound
}

// Insert implements Repository. A second ticket for the same entity is
// rejected like the unique index of the database does.
func (m *MemoryRepository) Insert(_ context.Context, ticket *entity.ConflictTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.EntityType == ticket.EntityType && t.EntityID == ticket.EntityID {
			return ErrDuplicateTicket
		}
	}
	m.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

// Update implements Repository.
func (m *MemoryRepository) Update(_ context.Context, ticket *entity.ConflictTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[ticket.ID]; !ok {
		return ErrTicketNotFound
	}
	m.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

// Items implements Repository.
func (m *MemoryRepository) Items(_ context.Context, ticketID string) ([]*entity.SnapshotItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneItems(m.items[ticketID]), nil
}

// ReplaceItems implements Repository.
func (m *MemoryRepository) ReplaceItems(_ context.Context, ticketID string, items []*entity.SnapshotItem) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make([]string, 0, len(m.items[ticketID]))
	for _, it := range m.items[ticketID] {
		removed = append(removed, it.ID)
	}
	m.items[ticketID] = cloneItems(items)
	return removed, nil
}

func (m *MemoryRepository) collect(keep func(*entity.ConflictTicket) bool) []*entity.ConflictTicket {
	var out []*entity.ConflictTicket
	for _, t := range m.tickets {
		if keep(t) {
			out = append(out, cloneTicket(t))
		}
	}
	return out
}

func limitTickets(rows []*entity.ConflictTicket, limit int) []*entity.ConflictTicket {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// ListOpen implements Repository.
func (m *MemoryRepository) ListOpen(_ context.Context, limit int) ([]*entity.ConflictTicket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.collect(func(t *entity.ConflictTicket) bool { return t.Status == entity.TicketOpen })
	slices.SortFunc(rows, func(a, b *entity.ConflictTicket) int {
		return cmp.Or(timeOrZero(a.LastCheckedAt).Compare(timeOrZero(b.LastCheckedAt)), cmp.Compare(a.ID, b.ID))
	})
	return limitTickets(rows, limit), nil
}

// ListNotifiable implements Repository.
func (m *MemoryRepository) ListNotifiable(_ context.Context, cutoff time.Time, limit int) ([]*entity.ConflictTicket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.collect(func(t *entity.ConflictTicket) bool {
		return t.Status == entity.TicketOpen && (t.LastNotifiedAt == nil || !t.LastNotifiedAt.After(cutoff))
	})
	slices.SortFunc(rows, func(a, b *entity.ConflictTicket) int {
		return cmp.Or(timeOrZero(a.LastNotifiedAt).Compare(timeOrZero(b.LastNotifiedAt)), cmp.Compare(a.ID, b.ID))
	})
	return limitTickets(rows, limit), nil
}

func (f Filter) matches(t *entity.ConflictTicket) bool {
	seen := timeOrZero(t.LastSeenAt)
	switch {
	case f.status() != "" && t.Status != f.status():
		return false
	case f.EntityType != "" && t.EntityType != f.EntityType:
		return false
	case f.ConflictType != "" && (t.ConflictType == nil || *t.ConflictType != f.ConflictType):
		return false
	case f.From != nil && seen.Before(*f.From):
		return false
	case f.To != nil && seen.After(*f.To):
		return false
	}
	return true
}

// List implements Repository.
func (m *MemoryRepository) List(_ context.Context, f Filter) (Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.collect(f.matches)
	slices.SortFunc(rows, func(a, b *entity.ConflictTicket) int {
		return cmp.Or(timeOrZero(b.LastSeenAt).Compare(timeOrZero(a.LastSeenAt)), cmp.Compare(b.ID, a.ID))
	})

	page := Page{Total: int64(len(rows)), Aggregations: newAggregations()}
	for _, t := range rows {
		page.Aggregations.ByStatus[string(t.Status)]++
		page.Aggregations.ByEntityType[string(t.EntityType)]++
		if t.ConflictType != nil {
			page.Aggregations.ByConflictType[string(*t.ConflictType)]++
		}
	}
	if f.Offset >= len(rows) {
		page.Items = []*entity.ConflictTicket{}
		return page, nil
	}
	page.Items = limitTickets(rows[f.Offset:], f.Limit)
	return page, nil
}
