package attempt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehving/noticesystem-sub000/database"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

func dbAttempt(id string, status entity.AttemptStatus, target store.Store, retries int, at time.Time) *entity.SyncAttempt {
	return &entity.SyncAttempt{
		ID:          id,
		EntityType:  entity.TypeUser,
		EntityID:    "u-" + id,
		Action:      entity.ActionUpdate,
		SourceStore: string(store.MySQL),
		TargetStore: string(target),
		Status:      status,
		RetryCount:  retries,
		Audit:       entity.Audit{CreateTime: &at, UpdateTime: &at},
	}
}

func TestDBRepository(t *testing.T) {
	t.Parallel()

	pool := database.SetupTestDB(t)
	repo := NewDBRepository(pool)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := []*entity.SyncAttempt{
		dbAttempt("a1", entity.AttemptFailed, store.Postgres, 0, base),
		dbAttempt("a2", entity.AttemptFailed, store.SQLServer, 3, base.Add(time.Minute)),
		dbAttempt("a3", entity.AttemptSuccess, store.Postgres, 0, base.Add(2*time.Minute)),
		dbAttempt("a4", entity.AttemptError, store.Postgres, 3, base.Add(3*time.Minute)),
		dbAttempt("a5", entity.AttemptSuccess, store.SQLServer, 0, base.Add(24*time.Hour)),
	}
	for _, a := range rows {
		require.NoError(t, repo.Insert(ctx, a))
	}

	t.Run("get and update", func(t *testing.T) {
		got, err := repo.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, entity.AttemptFailed, got.Status)

		msg := "timeout"
		later := base.Add(30 * time.Second)
		got.ErrorMsg = &msg
		got.RetryCount = 1
		got.UpdateTime = &later
		require.NoError(t, repo.Update(ctx, got))

		again, err := repo.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, 1, again.RetryCount)
		require.NotNil(t, again.ErrorMsg)
		assert.Equal(t, "timeout", *again.ErrorMsg)

		_, err = repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrAttemptNotFound)
		assert.ErrorIs(t, repo.Update(ctx, dbAttempt("missing", entity.AttemptFailed, store.Postgres, 0, base)), ErrAttemptNotFound)
	})

	t.Run("retryable and succeeded", func(t *testing.T) {
		retryable, err := repo.ListRetryable(ctx, 3, 10)
		require.NoError(t, err)
		require.Len(t, retryable, 1)
		assert.Equal(t, "a1", retryable[0].ID)

		succeeded, err := repo.ListSucceeded(ctx, store.Postgres, base, base.Add(time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, succeeded, 1)
		assert.Equal(t, "a3", succeeded[0].ID)
	})

	t.Run("list", func(t *testing.T) {
		page, err := repo.List(ctx, Filter{Target: store.Postgres, Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "a4", page.Items[0].ID)

		page, err = repo.List(ctx, Filter{Status: entity.AttemptSuccess, Offset: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 2, page.Total)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "a3", page.Items[0].ID)
	})

	t.Run("daily stats", func(t *testing.T) {
		stats, err := repo.DailyStats(ctx, base.Truncate(24*time.Hour), base.Add(48*time.Hour))
		require.NoError(t, err)
		require.Len(t, stats, 3)
		assert.Equal(t, DailyStat{Day: "2024-06-01", Source: "MYSQL", Target: "PG", Total: 3, Success: 1, Failed: 2}, stats[0])
		assert.Equal(t, "2024-06-02", stats[2].Day)
	})

	t.Run("cleanup", func(t *testing.T) {
		removed, err := repo.DeleteOlderThan(ctx, base.Add(90*time.Second))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a1", "a2"}, removed)

		removed, err = repo.DeleteBeyond(ctx, 1)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a3", "a4"}, removed)

		page, err := repo.List(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "a5", page.Items[0].ID)
	})
}
