package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

// ErrAttemptNotFound is returned when an attempt row does not exist.
var ErrAttemptNotFound = errors.New("sync attempt not found")

// ErrTerminalAttempt is returned when a replay of an ERROR row is requested.
var ErrTerminalAttempt = errors.New("sync attempt is in terminal status ERROR")

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status     entity.AttemptStatus
	EntityType entity.Type
	EntityID   string
	Action     entity.Action
	Source     store.Store
	Target     store.Store
	// From and To bound the creation time, both inclusive.
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Page is one page of attempts plus the total matching the filter.
type Page struct {
	Items []*entity.SyncAttempt `json:"items"`
	Total int64                 `json:"total"`
}

// DailyStat aggregates attempts per day and (source, target) pair.
type DailyStat struct {
	Day         string  `json:"day"`
	Source      string  `json:"sourceStore"`
	Target      string  `json:"targetStore"`
	Total       int64   `json:"total"`
	Success     int64   `json:"success"`
	Failed      int64   `json:"failed"`
	FailureRate float64 `json:"failureRate"`
}

// Repository persists attempt rows in the system of record.
//
//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks -source=repository.go Repository
type Repository interface {
	// Insert stores a new attempt row.
	Insert(ctx context.Context, a *entity.SyncAttempt) error
	// Get returns the row or ErrAttemptNotFound.
	Get(ctx context.Context, id string) (*entity.SyncAttempt, error)
	// Update overwrites status, error message, retry count and update time.
	Update(ctx context.Context, a *entity.SyncAttempt) error
	// ListRetryable returns FAILED rows with retry_count < maxRetries,
	// least recently updated first.
	ListRetryable(ctx context.Context, maxRetries, limit int) ([]*entity.SyncAttempt, error)
	// ListSucceeded returns SUCCESS rows for target updated in (from, to],
	// newest first.
	ListSucceeded(ctx context.Context, target store.Store, from, to time.Time, limit int) ([]*entity.SyncAttempt, error)
	// List returns one page of rows matching f, newest first.
	List(ctx context.Context, f Filter) (Page, error)
	// DeleteOlderThan removes rows created before cutoff and returns their ids.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
	// DeleteBeyond keeps the newest keep rows and removes the rest.
	DeleteBeyond(ctx context.Context, keep int) ([]string, error)
	// DailyStats counts rows created in [from, to) per UTC day and store pair.
	// FailureRate is left for the caller.
	DailyStats(ctx context.Context, from, to time.Time) ([]DailyStat, error)
}
