package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehving/noticesystem-sub000/internal/entity"
)

func ticketAt(id string, typ entity.Type, status entity.TicketStatus, ct entity.ConflictType, seen time.Time) *entity.ConflictTicket {
	return &entity.ConflictTicket{
		ID: id, EntityType: typ, EntityID: "e-" + id, Status: status,
		ConflictType: &ct, LastSeenAt: &seen, LastCheckedAt: &seen,
	}
}

func TestMemoryRepository_ListAggregates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	for _, tk := range []*entity.ConflictTicket{
		ticketAt("1", entity.TypeUser, entity.TicketOpen, entity.ConflictMissing, base),
		ticketAt("2", entity.TypeUser, entity.TicketResolved, entity.ConflictMismatch, base.Add(time.Hour)),
		ticketAt("3", entity.TypeNotice, entity.TicketOpen, entity.ConflictMismatch, base.Add(2*time.Hour)),
		ticketAt("4", entity.TypeNotice, entity.TicketIgnored, entity.ConflictMissing, base.Add(3*time.Hour)),
	} {
		require.NoError(t, repo.Insert(ctx, tk))
	}

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
		total   int64
	}{
		{name: "all newest first", filter: Filter{}, wantIDs: []string{"4", "3", "2", "1"}, total: 4},
		{name: "open only overrides status", filter: Filter{OpenOnly: true, Status: entity.TicketIgnored}, wantIDs: []string{"3", "1"}, total: 2},
		{name: "entity type", filter: Filter{EntityType: entity.TypeUser}, wantIDs: []string{"2", "1"}, total: 2},
		{name: "conflict type", filter: Filter{ConflictType: entity.ConflictMismatch}, wantIDs: []string{"3", "2"}, total: 2},
		{name: "time range", filter: Filter{From: ptr(base.Add(time.Hour)), To: ptr(base.Add(2 * time.Hour))}, wantIDs: []string{"3", "2"}, total: 2},
		{name: "paged", filter: Filter{Limit: 2, Offset: 1}, wantIDs: []string{"3", "2"}, total: 4},
		{name: "offset past end", filter: Filter{Offset: 10}, wantIDs: []string{}, total: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(page.Items))
			for _, it := range page.Items {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.total, page.Total)
		})
	}

	page, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"OPEN": 2, "RESOLVED": 1, "IGNORED": 1}, page.Aggregations.ByStatus)
	assert.Equal(t, map[string]int64{"MISSING": 2, "MISMATCH": 2}, page.Aggregations.ByConflictType)
	assert.Equal(t, map[string]int64{"USER": 2, "NOTICE": 2}, page.Aggregations.ByEntityType)
}

func TestMemoryRepository_RejectsSecondTicketPerEntity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()
	first := &entity.ConflictTicket{ID: "1", EntityType: entity.TypeRole, EntityID: "r-1", Status: entity.TicketOpen}
	require.NoError(t, repo.Insert(ctx, first))

	second := &entity.ConflictTicket{ID: "2", EntityType: entity.TypeRole, EntityID: "r-1", Status: entity.TicketOpen}
	require.ErrorIs(t, repo.Insert(ctx, second), ErrDuplicateTicket)

	got, err := repo.GetByEntity(ctx, entity.TypeRole, "r-1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	_, err = repo.GetByEntity(ctx, entity.TypeRole, "r-2")
	require.ErrorIs(t, err, ErrTicketNotFound)
	require.ErrorIs(t, repo.Update(ctx, &entity.ConflictTicket{ID: "x"}), ErrTicketNotFound)
}

func TestMemoryRepository_ListNotifiable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-30 * time.Minute)
	repo := NewMemoryRepository()

	never := ticketAt("never", entity.TypeRole, entity.TicketOpen, entity.ConflictMissing, now)
	recent := ticketAt("recent", entity.TypeRole, entity.TicketOpen, entity.ConflictMissing, now)
	recent.LastNotifiedAt = ptr(now.Add(-10 * time.Minute))
	old := ticketAt("old", entity.TypeRole, entity.TicketOpen, entity.ConflictMissing, now)
	old.LastNotifiedAt = ptr(now.Add(-31 * time.Minute))
	edge := ticketAt("edge", entity.TypeRole, entity.TicketOpen, entity.ConflictMissing, now)
	edge.LastNotifiedAt = ptr(cutoff)
	ignored := ticketAt("ignored", entity.TypeRole, entity.TicketIgnored, entity.ConflictMissing, now)
	for _, tk := range []*entity.ConflictTicket{never, recent, old, edge, ignored} {
		require.NoError(t, repo.Insert(ctx, tk))
	}

	got, err := repo.ListNotifiable(ctx, cutoff, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, tk := range got {
		ids = append(ids, tk.ID)
	}
	assert.Equal(t, []string{"never", "old", "edge"}, ids)

	got, err = repo.ListNotifiable(ctx, cutoff, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryRepository_ReplaceItems(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository()

	removed, err := repo.ReplaceItems(ctx, "c-1", []*entity.SnapshotItem{{ID: "i-1"}, {ID: "i-2"}})
	require.NoError(t, err)
	assert.Empty(t, removed)

	removed, err = repo.ReplaceItems(ctx, "c-1", []*entity.SnapshotItem{{ID: "i-3"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"i-1", "i-2"}, removed)

	items, err := repo.Items(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "i-3", items[0].ID)
}

func TestAppendNote(t *testing.T) {
	t.Parallel()

	ticket := &entity.ConflictTicket{}
	appendNote(ticket, "IGNORE", "  known drift ")
	appendNote(ticket, "REOPEN", "")
	assert.Equal(t, "[IGNORE] known drift\n[REOPEN]", *ticket.ResolutionNote)
}

func TestFilter_Where(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	where, args := Filter{OpenOnly: true, EntityType: entity.TypeUser, From: &from}.where()
	assert.Equal(t, " WHERE status = $1 AND entity_type = $2 AND last_seen_at >= $3", where)
	assert.Equal(t, []any{"OPEN", "USER", from}, args)

	where, args = Filter{}.where()
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func ptr[T any](v T) *T { return &v }
