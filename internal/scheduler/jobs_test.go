package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
)

type fakeTargets struct {
	limits  []int
	source  store.Store
	cleaned [2]int
	err     error
}

func (f *fakeTargets) RetryFailed(_ context.Context, limit int) (attempt.RetryStats, error) {
	f.limits = append(f.limits, limit)
	return attempt.RetryStats{Scanned: 4, Succeeded: 3, Failed: 1}, f.err
}

func (f *fakeTargets) Clean(_ context.Context, retainDays, maxRows int) (int, error) {
	f.cleaned = [2]int{retainDays, maxRows}
	return 7, f.err
}

func (f *fakeTargets) Run(context.Context) (conflict.DetectStats, error) {
	return conflict.DetectStats{Candidates: 9, Checked: 5, Conflicts: 1}, f.err
}

func (f *fakeTargets) RecheckOpen(_ context.Context, limit int) (conflict.SweepStats, error) {
	f.limits = append(f.limits, limit)
	return conflict.SweepStats{Scanned: 2, Resolved: 2}, f.err
}

func (f *fakeTargets) NotifyPending(_ context.Context, limit int) (conflict.NotifyStats, error) {
	f.limits = append(f.limits, limit)
	return conflict.NotifyStats{Selected: 3, Sent: 2, Failed: 1}, f.err
}

func (f *fakeTargets) FullSyncAll(_ context.Context, source store.Store) ([]sync.FullSyncResult, error) {
	f.source = source
	return []sync.FullSyncResult{{Rows: 10}, {Rows: 5}}, f.err
}

func TestJobs(t *testing.T) {
	t.Parallel()

	f := &fakeTargets{}
	tests := []struct {
		job   Job
		name  string
		items int
	}{
		{job: RetryJob(f, 100), name: JobRetry, items: 4},
		{job: CleanupJob(f, 90, 1000), name: JobCleanup, items: 7},
		{job: DetectJob(f), name: JobDetect, items: 5},
		{job: RecheckJob(f, 50), name: JobRecheck, items: 2},
		{job: NotifyJob(f, 20), name: JobNotify, items: 2},
		{job: FullResyncJob(f, store.MySQL), name: JobFullResync, items: 15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.job.Name)
		items, err := tt.job.Run(context.Background())
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.items, items, tt.name)
	}

	assert.Equal(t, []int{100, 50, 20}, f.limits)
	assert.Equal(t, [2]int{90, 1000}, f.cleaned)
	assert.Equal(t, store.MySQL, f.source)
}

func TestJobs_PropagateErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	f := &fakeTargets{err: boom}
	for _, job := range []Job{RetryJob(f, 1), CleanupJob(f, 1, 1), DetectJob(f), FullResyncJob(f, store.Postgres)} {
		_, err := job.Run(context.Background())
		assert.ErrorIs(t, err, boom, job.Name)
	}
}
