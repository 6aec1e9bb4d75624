package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the meter for per-target apply attempts.
	SyncMetricsMeterName = "github.com/ehving/noticesystem-sub000/sync"
	// ConflictMetricsMeterName is the meter for conflict ticket activity.
	ConflictMetricsMeterName = "github.com/ehving/noticesystem-sub000/conflict"
	// JobMetricsMeterName is the meter for scheduled jobs.
	JobMetricsMeterName = "github.com/ehving/noticesystem-sub000/jobs"
)

// SyncMetrics records the outcome of apply attempts.
type SyncMetrics struct {
	attempts metric.Int64Counter
	duration metric.Float64Histogram
}

// NewSyncMetrics returns nil (no-op metrics) when provider is nil.
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(SyncMetricsMeterName)

	attempts, err := meter.Int64Counter(
		"notice_reconciler_sync_attempts_total",
		metric.WithDescription("Number of apply attempts per target store"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"notice_reconciler_sync_duration_seconds",
		metric.WithDescription("Duration of a single-entity sync across all targets"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}
	return &SyncMetrics{attempts: attempts, duration: duration}, nil
}

// RecordAttempt counts one apply attempt against a target store.
func (m *SyncMetrics) RecordAttempt(ctx context.Context, entityType, target, status string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity_type", entityType),
		attribute.String("target_store", target),
		attribute.String("status", status),
	))
}

// RecordSync records the wall time of one submitted sync.
func (m *SyncMetrics) RecordSync(ctx context.Context, entityType, status string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("entity_type", entityType),
		attribute.String("status", status),
	))
}

// ConflictMetrics records conflict ticket transitions and notifications.
type ConflictMetrics struct {
	transitions   metric.Int64Counter
	notifications metric.Int64Counter
}

// NewConflictMetrics returns nil (no-op metrics) when provider is nil.
func NewConflictMetrics(provider metric.MeterProvider) (*ConflictMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(ConflictMetricsMeterName)

	transitions, err := meter.Int64Counter(
		"notice_reconciler_conflict_transitions_total",
		metric.WithDescription("Number of conflict ticket status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter(
		"notice_reconciler_conflict_notifications_total",
		metric.WithDescription("Number of conflict alerts sent"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}
	return &ConflictMetrics{transitions: transitions, notifications: notifications}, nil
}

// RecordTransition counts a ticket moving from one status to another.
// from is empty for newly created tickets.
func (m *ConflictMetrics) RecordTransition(ctx context.Context, entityType, from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity_type", entityType),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordNotification counts one alert attempt.
func (m *ConflictMetrics) RecordNotification(ctx context.Context, entityType string, success bool) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity_type", entityType),
		attribute.Bool("success", success),
	))
}

// JobMetrics records scheduled job runs.
type JobMetrics struct {
	duration  metric.Float64Histogram
	processed metric.Int64Counter
}

// NewJobMetrics returns nil (no-op metrics) when provider is nil.
func NewJobMetrics(provider metric.MeterProvider) (*JobMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(JobMetricsMeterName)

	duration, err := meter.Float64Histogram(
		"notice_reconciler_job_duration_seconds",
		metric.WithDescription("Duration of scheduled job runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}
	processed, err := meter.Int64Counter(
		"notice_reconciler_job_items_total",
		metric.WithDescription("Number of items handled by scheduled jobs"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}
	return &JobMetrics{duration: duration, processed: processed}, nil
}

// RecordRun records one job execution and the number of items it handled.
func (m *JobMetrics) RecordRun(ctx context.Context, job string, items int, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("job", job),
		attribute.Bool("success", err == nil),
	)
	m.duration.Record(ctx, duration.Seconds(), attrs)
	if items > 0 {
		m.processed.Add(ctx, int64(items), metric.WithAttributes(attribute.String("job", job)))
	}
}
