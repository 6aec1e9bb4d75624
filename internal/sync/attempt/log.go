// Package attempt keeps the durable log of propagation attempts and
// drives their retry.
//
// Every (entity, source, target) attempt becomes one row. FAILED rows are
// replayed by RetryFailed until they succeed or reach the retry ceiling,
// at which point they become ERROR and are never touched again.
package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehving/noticesystem-sub000/internal/clock"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/otel"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync"
)

const (
	// DefaultMaxRetries is the retry ceiling after which a row becomes ERROR.
	DefaultMaxRetries = 3
	// DefaultRetainDays is used by Clean when retainDays is not positive.
	DefaultRetainDays = 90
	// DefaultMaxRows is used by Clean when maxRows is not positive.
	DefaultMaxRows = 100000
	// DefaultBatchSize is used by RetryFailed when limit is not positive.
	DefaultBatchSize = 100

	maxErrorMsgLen = 2000
)

// Retrier replays one attempt against a single target without logging it.
type Retrier interface {
	SyncToTargetWithoutLog(
		ctx context.Context, t entity.Type, id string, action entity.Action, source, target store.Store,
	) error
}

// Replicator propagates system-of-record rows to the other stores.
type Replicator interface {
	SubmitSync(ctx context.Context, t entity.Type, id string, action entity.Action, source store.Store) (sync.Result, error)
}

// RetryStats summarises a retry sweep.
type RetryStats struct {
	Scanned   int `json:"scanned"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Errored   int `json:"errored"`
}

// Log records attempt outcomes and retries failed attempts.
type Log struct {
	repo       Repository
	retrier    Retrier
	clock      clock.Clock
	maxRetries int

	replicator  Replicator
	systemStore store.Store

	tracer trace.Tracer
}

var _ sync.AttemptRecorder = (*Log)(nil)

// Option configures a Log.
type Option func(*Log)

// WithClock sets the clock used for row timestamps.
func WithClock(c clock.Clock) Option {
	return func(l *Log) {
		l.clock = c
	}
}

// WithMaxRetries sets the retry ceiling.
func WithMaxRetries(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

// WithReplication propagates every inserted, updated or deleted row from
// systemStore to the other stores through r.
func WithReplication(r Replicator, systemStore store.Store) Option {
	return func(l *Log) {
		l.replicator = r
		l.systemStore = systemStore
	}
}

// WithTracer sets the tracer used for retry spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(l *Log) {
		l.tracer = tracer
	}
}

// NewLog creates the attempt log.
func NewLog(repo Repository, retrier Retrier, opts ...Option) *Log {
	l := &Log{
		repo:       repo,
		retrier:    retrier,
		clock:      clock.Real{},
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxRetries returns the retry ceiling.
func (l *Log) MaxRetries() int {
	return l.maxRetries
}

// RecordOutcome implements sync.AttemptRecorder.
func (l *Log) RecordOutcome(ctx context.Context, o sync.Outcome) error {
	now := l.clock.Now()
	a := &entity.SyncAttempt{
		ID:          uuid.NewString(),
		EntityType:  o.EntityType,
		EntityID:    o.EntityID,
		Action:      o.Action,
		SourceStore: string(o.Source),
		TargetStore: string(o.Target),
		Audit:       entity.Audit{CreateTime: &now, UpdateTime: &now},
	}
	switch {
	case o.TicketID != "":
		a.Status = entity.AttemptConflict
		a.ErrorMsg = errorMsg(fmt.Sprintf("post-check detected mismatch, conflict %s", o.TicketID))
	case o.Err != nil:
		a.Status = StatusFor(o.Err)
		a.ErrorMsg = errorMsg(o.Err.Error())
	default:
		a.Status = entity.AttemptSuccess
	}

	if err := l.repo.Insert(ctx, a); err != nil {
		return fmt.Errorf("failed to insert sync attempt: %w", err)
	}
	l.replicate(ctx, a.ID, entity.ActionCreate)
	return nil
}

// RetryFailed replays up to limit FAILED rows below the retry ceiling.
// One row's failure never stops the sweep; cancelling ctx stops it between rows.
func (l *Log) RetryFailed(ctx context.Context, limit int) (RetryStats, error) {
	var stats RetryStats
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	ctx, span := otel.StartSpan(ctx, l.tracer, "attempt.RetryFailed")
	defer span.End()

	rows, err := l.repo.ListRetryable(ctx, l.maxRetries, limit)
	if err != nil {
		otel.RecordError(span, err)
		return stats, fmt.Errorf("failed to list retryable attempts: %w", err)
	}
	for _, a := range rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Scanned++
		if err := l.retryOne(ctx, a); err != nil {
			slog.Error("Failed to update sync attempt after retry", "attempt_id", a.ID, "error", err)
			continue
		}
		switch a.Status {
		case entity.AttemptSuccess:
			stats.Succeeded++
		case entity.AttemptError:
			stats.Errored++
		default:
			stats.Failed++
		}
	}
	span.SetAttributes(otel.AttrResultCount.Int(stats.Scanned))
	if stats.Scanned > 0 {
		slog.Info("Retry sweep completed",
			"scanned", stats.Scanned,
			"succeeded", stats.Succeeded,
			"failed", stats.Failed,
			"errored", stats.Errored)
	}
	return stats, nil
}

// Retry replays one row on operator request using the same transitions as
// the sweep. ERROR rows are terminal and are refused with ErrTerminalAttempt.
func (l *Log) Retry(ctx context.Context, id string) (*entity.SyncAttempt, error) {
	a, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == entity.AttemptError {
		return nil, fmt.Errorf("%w: %s", ErrTerminalAttempt, id)
	}
	if err := l.retryOne(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// retryOne replays a and persists its new state. a is updated in place.
// Every replay counts toward RetryCount, successful or not.
func (l *Log) retryOne(ctx context.Context, a *entity.SyncAttempt) error {
	now := l.clock.Now()
	a.UpdateTime = &now

	t, action, source, target, invalid := parseRow(a)
	if invalid != nil {
		slog.Warn("Invalid sync attempt row, marking ERROR", "attempt_id", a.ID, "error", invalid)
		a.Status = entity.AttemptError
		a.ErrorMsg = errorMsg(invalid.Error())
		return l.update(ctx, a)
	}

	a.RetryCount++
	if err := l.retrier.SyncToTargetWithoutLog(ctx, t, a.EntityID, action, source, target); err != nil {
		a.ErrorMsg = errorMsg(err.Error())
		a.Status = StatusFor(err)
		if a.RetryCount >= l.maxRetries {
			a.Status = entity.AttemptError
		}
		slog.Warn("Retry of sync attempt failed",
			"attempt_id", a.ID,
			"entity_type", a.EntityType,
			"entity_id", a.EntityID,
			"target", a.TargetStore,
			"retry_count", a.RetryCount,
			"status", a.Status,
			"error", err)
		return l.update(ctx, a)
	}

	a.Status = entity.AttemptSuccess
	a.ErrorMsg = nil
	slog.Info("Retry of sync attempt succeeded",
		"attempt_id", a.ID,
		"entity_type", a.EntityType,
		"entity_id", a.EntityID,
		"target", a.TargetStore,
		"retry_count", a.RetryCount)
	return l.update(ctx, a)
}

func (l *Log) update(ctx context.Context, a *entity.SyncAttempt) error {
	if err := l.repo.Update(ctx, a); err != nil {
		return fmt.Errorf("failed to update sync attempt %s: %w", a.ID, err)
	}
	l.replicate(ctx, a.ID, entity.ActionUpdate)
	return nil
}

// parseRow validates the identifying fields of a stored row.
func parseRow(a *entity.SyncAttempt) (entity.Type, entity.Action, store.Store, store.Store, error) {
	if strings.TrimSpace(a.EntityID) == "" {
		return "", "", "", "", fmt.Errorf("invalid attempt row: missing entity id")
	}
	t, err := entity.ParseType(string(a.EntityType))
	if err != nil {
		return "", "", "", "", fmt.Errorf("invalid attempt row: %w", err)
	}
	action, err := entity.ParseAction(string(a.Action))
	if err != nil {
		return "", "", "", "", fmt.Errorf("invalid attempt row: %w", err)
	}
	source, err := store.Parse(a.SourceStore)
	if err != nil {
		return "", "", "", "", fmt.Errorf("invalid attempt row: %w", err)
	}
	target, err := store.Parse(a.TargetStore)
	if err != nil {
		return "", "", "", "", fmt.Errorf("invalid attempt row: %w", err)
	}
	return t, action, source, target, nil
}

// Get returns one row.
func (l *Log) Get(ctx context.Context, id string) (*entity.SyncAttempt, error) {
	return l.repo.Get(ctx, id)
}

// List returns one page of rows.
func (l *Log) List(ctx context.Context, f Filter) (Page, error) {
	return l.repo.List(ctx, f)
}

// ListSucceeded returns recent SUCCESS rows for one target store.
func (l *Log) ListSucceeded(
	ctx context.Context, target store.Store, from, to time.Time, limit int,
) ([]*entity.SyncAttempt, error) {
	return l.repo.ListSucceeded(ctx, target, from, to, limit)
}

// DailyStats returns per-day and per store pair totals with failure rates.
func (l *Log) DailyStats(ctx context.Context, from, to time.Time) ([]DailyStat, error) {
	stats, err := l.repo.DailyStats(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily stats: %w", err)
	}
	for i := range stats {
		if stats[i].Total > 0 {
			stats[i].FailureRate = float64(stats[i].Failed) / float64(stats[i].Total)
		}
	}
	return stats, nil
}

// Clean removes rows older than retainDays, then the oldest rows beyond
// maxRows. Non-positive arguments fall back to the defaults. It returns
// the number of deleted rows.
func (l *Log) Clean(ctx context.Context, retainDays, maxRows int) (int, error) {
	if retainDays <= 0 {
		retainDays = DefaultRetainDays
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	cutoff := l.clock.Now().AddDate(0, 0, -retainDays)

	expired, err := l.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired attempts: %w", err)
	}
	overflow, err := l.repo.DeleteBeyond(ctx, maxRows)
	if err != nil {
		return len(expired), fmt.Errorf("failed to delete attempts beyond %d rows: %w", maxRows, err)
	}

	for _, id := range expired {
		l.replicate(ctx, id, entity.ActionDelete)
	}
	for _, id := range overflow {
		l.replicate(ctx, id, entity.ActionDelete)
	}
	deleted := len(expired) + len(overflow)
	slog.Info("Cleaned sync attempts",
		"retain_days", retainDays,
		"max_rows", maxRows,
		"expired", len(expired),
		"overflow", len(overflow))
	return deleted, nil
}

func (l *Log) replicate(ctx context.Context, id string, action entity.Action) {
	if l.replicator == nil {
		return
	}
	if _, err := l.replicator.SubmitSync(ctx, entity.TypeSyncLog, id, action, l.systemStore); err != nil {
		slog.Warn("Failed to replicate sync attempt", "attempt_id", id, "action", action, "error", err)
	}
}

func errorMsg(msg string) *string {
	if len(msg) > maxErrorMsgLen {
		cut := maxErrorMsgLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return &msg
}
