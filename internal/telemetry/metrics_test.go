package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func counterTotal(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum for %s", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNilProvidersReturnNilMetrics(t *testing.T) {
	t.Parallel()

	syncMetrics, err := NewSyncMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, syncMetrics)

	conflictMetrics, err := NewConflictMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, conflictMetrics)

	jobMetrics, err := NewJobMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, jobMetrics)

	httpMetrics, err := NewHTTPMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, httpMetrics)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var s *SyncMetrics
	s.RecordAttempt(ctx, "USER", "PG", "SUCCESS")
	s.RecordSync(ctx, "USER", "SUCCESS", time.Second)

	var c *ConflictMetrics
	c.RecordTransition(ctx, "USER", "", "OPEN")
	c.RecordNotification(ctx, "USER", true)

	var j *JobMetrics
	j.RecordRun(ctx, "retry", 3, time.Second, nil)
}

func TestSyncMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewSyncMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAttempt(ctx, "USER", "PG", "SUCCESS")
	m.RecordAttempt(ctx, "USER", "SQLSERVER", "FAILED")
	m.RecordSync(ctx, "USER", "FAILED", 20*time.Millisecond)

	got := collect(t, reader)
	require.Contains(t, got, "notice_reconciler_sync_attempts_total")
	assert.Equal(t, int64(2), counterTotal(t, got["notice_reconciler_sync_attempts_total"]))

	hist, ok := got["notice_reconciler_sync_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestConflictMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewConflictMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordTransition(ctx, "NOTICE", "", "OPEN")
	m.RecordTransition(ctx, "NOTICE", "OPEN", "RESOLVED")
	m.RecordNotification(ctx, "NOTICE", false)

	got := collect(t, reader)
	assert.Equal(t, int64(2), counterTotal(t, got["notice_reconciler_conflict_transitions_total"]))
	assert.Equal(t, int64(1), counterTotal(t, got["notice_reconciler_conflict_notifications_total"]))
}

func TestJobMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewJobMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRun(ctx, "retry", 4, time.Second, nil)
	m.RecordRun(ctx, "retry", 0, time.Second, errors.New("boom"))

	got := collect(t, reader)
	assert.Equal(t, int64(4), counterTotal(t, got["notice_reconciler_job_items_total"]))

	hist, ok := got["notice_reconciler_job_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2, "success and failure are separate series")
}
