package scheduler

import (
	"context"

	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
)

// Job names.
const (
	JobRetry      = "retry"
	JobCleanup    = "cleanup"
	JobDetect     = "detect"
	JobRecheck    = "recheck"
	JobNotify     = "notify"
	JobFullResync = "full-resync"
)

// FailedRetrier replays failed attempts.
type FailedRetrier interface {
	RetryFailed(ctx context.Context, limit int) (attempt.RetryStats, error)
}

// AttemptCleaner trims the attempt log.
type AttemptCleaner interface {
	Clean(ctx context.Context, retainDays, maxRows int) (int, error)
}

// BatchDetector scans recent attempts for divergence.
type BatchDetector interface {
	Run(ctx context.Context) (conflict.DetectStats, error)
}

// TicketSweeper rechecks and notifies open tickets.
type TicketSweeper interface {
	RecheckOpen(ctx context.Context, limit int) (conflict.SweepStats, error)
	NotifyPending(ctx context.Context, limit int) (conflict.NotifyStats, error)
}

// FullResyncer resubmits whole tables from a source store.
type FullResyncer interface {
	FullSyncAll(ctx context.Context, source store.Store) ([]sync.FullSyncResult, error)
}

// RetryJob retries up to batchSize FAILED attempts per run.
func RetryJob(r FailedRetrier, batchSize int) Job {
	return Job{Name: JobRetry, Run: func(ctx context.Context) (int, error) {
		stats, err := r.RetryFailed(ctx, batchSize)
		return stats.Scanned, err
	}}
}

// CleanupJob deletes attempts older than retainDays, then the oldest beyond maxRows.
func CleanupJob(c AttemptCleaner, retainDays, maxRows int) Job {
	return Job{Name: JobCleanup, Run: func(ctx context.Context) (int, error) {
		return c.Clean(ctx, retainDays, maxRows)
	}}
}

// DetectJob runs one batch detection window.
func DetectJob(d BatchDetector) Job {
	return Job{Name: JobDetect, Run: func(ctx context.Context) (int, error) {
		stats, err := d.Run(ctx)
		return stats.Checked, err
	}}
}

// RecheckJob rechecks up to limit OPEN tickets.
func RecheckJob(s TicketSweeper, limit int) Job {
	return Job{Name: JobRecheck, Run: func(ctx context.Context) (int, error) {
		stats, err := s.RecheckOpen(ctx, limit)
		return stats.Scanned, err
	}}
}

// NotifyJob alerts on up to limit OPEN tickets outside their cooldown.
func NotifyJob(s TicketSweeper, limit int) Job {
	return Job{Name: JobNotify, Run: func(ctx context.Context) (int, error) {
		stats, err := s.NotifyPending(ctx, limit)
		return stats.Sent, err
	}}
}

// FullResyncJob resubmits every business table from source.
func FullResyncJob(r FullResyncer, source store.Store) Job {
	return Job{Name: JobFullResync, Run: func(ctx context.Context) (int, error) {
		results, err := r.FullSyncAll(ctx, source)
		rows := 0
		for _, res := range results {
			rows += res.Rows
		}
		return rows, err
	}}
}
