package v1

import (
	"context"
	"time"

	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
)

// ConflictService is the ticket surface of the conflict manager.
//
//go:generate mockgen -destination=mocks/mock_services.go -package=mocks -source=services.go ConflictService,BatchDetector,AttemptService,Resyncer
type ConflictService interface {
	List(ctx context.Context, f conflict.Filter) (conflict.Page, error)
	Detail(ctx context.Context, id string) (*conflict.Detail, error)
	Resolve(ctx context.Context, id string, source store.Store, note string) (*entity.ConflictTicket, error)
	Ignore(ctx context.Context, id, note string) (*entity.ConflictTicket, error)
	Reopen(ctx context.Context, id, note string) (*entity.ConflictTicket, error)
	Recheck(ctx context.Context, id string) (*entity.ConflictTicket, error)
	RecheckOpen(ctx context.Context, limit int) (conflict.SweepStats, error)
	NotifyPending(ctx context.Context, limit int) (conflict.NotifyStats, error)
}

// BatchDetector runs one batch detection pass.
type BatchDetector interface {
	Run(ctx context.Context) (conflict.DetectStats, error)
}

// AttemptService is the query and maintenance surface of the attempt log.
type AttemptService interface {
	List(ctx context.Context, f attempt.Filter) (attempt.Page, error)
	Get(ctx context.Context, id string) (*entity.SyncAttempt, error)
	Retry(ctx context.Context, id string) (*entity.SyncAttempt, error)
	RetryFailed(ctx context.Context, limit int) (attempt.RetryStats, error)
	Clean(ctx context.Context, retainDays, maxRows int) (int, error)
	DailyStats(ctx context.Context, from, to time.Time) ([]attempt.DailyStat, error)
}

// Resyncer runs full-table resyncs.
type Resyncer interface {
	FullSyncEntity(ctx context.Context, t entity.Type, source store.Store) (sync.FullSyncResult, error)
	FullSyncAll(ctx context.Context, source store.Store) ([]sync.FullSyncResult, error)
}
