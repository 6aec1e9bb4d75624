package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehving/noticesystem-sub000/database"
	"github.com/ehving/noticesystem-sub000/internal/entity"
)

func newDBTicket(id string, typ entity.Type, entityID string, status entity.TicketStatus, seen time.Time) *entity.ConflictTicket {
	ct := entity.ConflictMismatch
	return &entity.ConflictTicket{
		ID:           id,
		EntityType:   typ,
		EntityID:     entityID,
		Status:       status,
		ConflictType: &ct,
		FirstSeenAt:  &seen,
		LastSeenAt:   &seen,
		Audit:        entity.Audit{CreateTime: &seen, UpdateTime: &seen},
	}
}

func TestDBRepository(t *testing.T) {
	t.Parallel()

	pool := database.SetupTestDB(t)
	repo := NewDBRepository(pool)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("insert and lookup", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, newDBTicket("t1", entity.TypeUser, "u1", entity.TicketOpen, base)))

		got, err := repo.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.EntityID)
		require.NotNil(t, got.ConflictType)
		assert.Equal(t, entity.ConflictMismatch, *got.ConflictType)
		assert.True(t, base.Equal(*got.FirstSeenAt))

		byEntity, err := repo.GetByEntity(ctx, entity.TypeUser, "u1")
		require.NoError(t, err)
		assert.Equal(t, "t1", byEntity.ID)

		_, err = repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrTicketNotFound)
		_, err = repo.GetByEntity(ctx, entity.TypeRole, "u1")
		assert.ErrorIs(t, err, ErrTicketNotFound)
	})

	t.Run("one ticket per entity", func(t *testing.T) {
		err := repo.Insert(ctx, newDBTicket("t1-dup", entity.TypeUser, "u1", entity.TicketOpen, base))
		assert.ErrorIs(t, err, ErrDuplicateTicket)
	})

	t.Run("update", func(t *testing.T) {
		got, err := repo.Get(ctx, "t1")
		require.NoError(t, err)
		notified := base.Add(time.Minute)
		got.LastNotifiedAt = &notified
		got.NotifyCount = 1
		require.NoError(t, repo.Update(ctx, got))

		again, err := repo.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, 1, again.NotifyCount)
		assert.True(t, notified.Equal(*again.LastNotifiedAt))

		err = repo.Update(ctx, newDBTicket("nope", entity.TypeUser, "x", entity.TicketOpen, base))
		assert.ErrorIs(t, err, ErrTicketNotFound)
	})

	t.Run("replace items", func(t *testing.T) {
		hash := "abc"
		first := []*entity.SnapshotItem{
			{ID: "i1", ConflictID: "t1", StoreID: "MYSQL", ExistsFlag: 1, RowHash: &hash, FingerprintVersion: 1},
			{ID: "i2", ConflictID: "t1", StoreID: "PG", ExistsFlag: 0, FingerprintVersion: 1},
		}
		removed, err := repo.ReplaceItems(ctx, "t1", first)
		require.NoError(t, err)
		assert.Empty(t, removed)

		removed, err = repo.ReplaceItems(ctx, "t1", []*entity.SnapshotItem{
			{ID: "i3", ConflictID: "t1", StoreID: "SQLSERVER", ExistsFlag: 1, RowHash: &hash, FingerprintVersion: 1},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"i1", "i2"}, removed)

		items, err := repo.Items(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "SQLSERVER", items[0].StoreID)
	})

	t.Run("selection and listing", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, newDBTicket("t2", entity.TypeDept, "d1", entity.TicketOpen, base.Add(time.Hour))))
		require.NoError(t, repo.Insert(ctx, newDBTicket("t3", entity.TypeDept, "d2", entity.TicketIgnored, base.Add(2*time.Hour))))

		open, err := repo.ListOpen(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, open, 2)

		notifiable, err := repo.ListNotifiable(ctx, base, 10)
		require.NoError(t, err)
		require.Len(t, notifiable, 1, "t1 was notified after the cutoff")
		assert.Equal(t, "t2", notifiable[0].ID)

		notifiable, err = repo.ListNotifiable(ctx, base.Add(time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, notifiable, 2)
		assert.Equal(t, "t2", notifiable[0].ID, "never notified comes first")

		page, err := repo.List(ctx, Filter{EntityType: entity.TypeDept, Limit: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 2, page.Total)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "t3", page.Items[0].ID)
		assert.EqualValues(t, 1, page.Aggregations.ByStatus["OPEN"])
		assert.EqualValues(t, 1, page.Aggregations.ByStatus["IGNORED"])
		assert.EqualValues(t, 2, page.Aggregations.ByEntityType["DEPT"])

		page, err = repo.List(ctx, Filter{OpenOnly: true, Status: entity.TicketIgnored})
		require.NoError(t, err)
		assert.EqualValues(t, 2, page.Total)
	})
}
