// Package scheduler runs the reconciler's periodic jobs.
//
// Interval jobs run on a fixed delay: the next run is timed from the end
// of the previous one, with a small jitter so that several instances do not
// hit the stores at the same moment. Cron jobs follow a standard five-field
// schedule and are skipped while their previous run is still going. Jobs
// never wait on each other.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehving/noticesystem-sub000/internal/otel"
	"github.com/ehving/noticesystem-sub000/internal/telemetry"
)

// jitterFraction is the maximum relative offset applied to an interval.
const jitterFraction = 0.1

// ErrAlreadyStarted is returned when jobs are added or Start is called twice.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Job is one unit of periodic work. Run returns the number of items it
// processed.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

type intervalJob struct {
	job      Job
	interval time.Duration
}

// Scheduler owns the job loops.
type Scheduler struct {
	mu        sync.Mutex
	intervals []intervalJob
	cron      *cron.Cron
	cronJobs  int
	started   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *telemetry.JobMetrics
	tracer  trace.Tracer
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithJobMetrics sets the job metrics.
func WithJobMetrics(metrics *telemetry.JobMetrics) Option {
	return func(s *Scheduler) {
		s.metrics = metrics
	}
}

// WithTracer sets the tracer used for job spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

// New creates an empty scheduler. Cron schedules are evaluated in loc.
func New(loc *time.Location, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddInterval registers job to run every interval.
func (s *Scheduler) AddInterval(job Job, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", job.Name, interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.intervals = append(s.intervals, intervalJob{job: job, interval: interval})
	return nil
}

// AddCron registers job on a five-field cron spec.
func (s *Scheduler) AddCron(job Job, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	_, err := s.cron.AddFunc(spec, func() {
		s.run(s.context(), job)
	})
	if err != nil {
		return fmt.Errorf("job %s: invalid cron spec %q: %w", job.Name, spec, err)
	}
	s.cronJobs++
	return nil
}

// Start launches every job and blocks until ctx is cancelled or Stop is
// called. Running jobs see their context cancelled and stop between items.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	s.ctx, s.cancel = ctx, cancel
	s.mu.Unlock()

	slog.Info("Starting scheduler", "interval_jobs", len(s.intervals), "cron_jobs", s.cronJobs)

	for _, ij := range s.intervals {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, ij)
		}()
	}
	s.cron.Start()

	<-ctx.Done()
	slog.Info("Scheduler stopping")
	<-s.cron.Stop().Done()
	s.wg.Wait()
	return nil
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// Stop cancels every job loop. It is safe to call before Start or twice.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// jittered returns d shifted by up to ±10%.
func jittered(d time.Duration) time.Duration {
	span := int64(float64(d) * jitterFraction)
	if span <= 0 {
		return d
	}
	//nolint:gosec // G404: jitter does not need cryptographic randomness
	return d + time.Duration(rand.Int64N(2*span)) - time.Duration(span)
}

func (s *Scheduler) loop(ctx context.Context, ij intervalJob) {
	slog.Info("Scheduled job", "job", ij.job.Name, "interval", ij.interval)

	timer := time.NewTimer(jittered(ij.interval))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.run(ctx, ij.job)
			timer.Reset(jittered(ij.interval))
		}
	}
}

// run executes one job run. Failures and panics are logged, never raised.
func (s *Scheduler) run(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	ctx, span := otel.StartSpan(ctx, s.tracer, "job."+job.Name,
		trace.WithAttributes(otel.AttrJobName.String(job.Name)))
	defer span.End()

	start := time.Now()
	var (
		items int
		err   error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job %s panicked: %v", job.Name, r)
			}
		}()
		items, err = job.Run(ctx)
	}()
	duration := time.Since(start)

	s.metrics.RecordRun(ctx, job.Name, items, duration, err)
	span.SetAttributes(otel.AttrResultCount.Int(items))
	if err != nil && !errors.Is(err, context.Canceled) {
		otel.RecordError(span, err)
		slog.ErrorContext(ctx, "Scheduled job failed", "job", job.Name, "duration", duration, "error", err)
		return
	}
	slog.DebugContext(ctx, "Scheduled job finished", "job", job.Name, "items", items, "duration", duration)
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
