package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehving/noticesystem-sub000/internal/api"
	v1 "github.com/ehving/noticesystem-sub000/internal/api/v1"
	"github.com/ehving/noticesystem-sub000/internal/app/storage"
	"github.com/ehving/noticesystem-sub000/internal/clock"
	"github.com/ehving/noticesystem-sub000/internal/config"
	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/notify"
	"github.com/ehving/noticesystem-sub000/internal/scheduler"
	"github.com/ehving/noticesystem-sub000/internal/snapshot"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync"
	"github.com/ehving/noticesystem-sub000/internal/sync/applier"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
	"github.com/ehving/noticesystem-sub000/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 60 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 90 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	tracerName = "github.com/ehving/noticesystem-sub000"
)

// ReconcilerAppOptions is a function that configures the reconciler app builder
type ReconcilerAppOptions func(*reconcilerAppConfig) error

// reconcilerAppConfig collects the builder inputs. It supports dependency
// injection for testing while providing sensible defaults for production.
type reconcilerAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	storageFactory storage.Factory
	notifier       notify.Notifier
	clock          clock.Clock

	// HTTP server options
	address        string
	addressSet     bool
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

func baseConfig(opts ...ReconcilerAppOptions) (*reconcilerAppConfig, error) {
	cfg := &reconcilerAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
		clock:          clock.Real{},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if !cfg.addressSet && cfg.config.Server.Address != "" {
		cfg.address = cfg.config.Server.Address
	}
	return cfg, nil
}

// NewReconcilerApp wires every component and the admin HTTP server.
func NewReconcilerApp(
	ctx context.Context,
	opts ...ReconcilerAppOptions,
) (*ReconcilerApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, err := buildComponents(ctx, cfg)
	if err != nil {
		return nil, err
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cancelFunc := func() {
		components.Close()
		cancel()
	}

	return &ReconcilerApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// NewComponents wires the reconciliation components without the HTTP
// server, for one-shot commands. The caller must Close the result.
func NewComponents(ctx context.Context, opts ...ReconcilerAppOptions) (*AppComponents, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	return buildComponents(ctx, cfg)
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) ReconcilerAppOptions {
	return func(cfg *reconcilerAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) ReconcilerAppOptions {
	return func(cfg *reconcilerAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		cfg.addressSet = true
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ReconcilerAppOptions {
	return func(cfg *reconcilerAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) ReconcilerAppOptions {
	return func(cfg *reconcilerAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithNotifier replaces the configured alert channel. Alerts are still
// rate limited.
func WithNotifier(n notify.Notifier) ReconcilerAppOptions {
	return func(cfg *reconcilerAppConfig) error {
		cfg.notifier = n
		return nil
	}
}

// WithClock sets the time source of the attempt log and the tickets.
func WithClock(c clock.Clock) ReconcilerAppOptions {
	return func(cfg *reconcilerAppConfig) error {
		if c == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		cfg.clock = c
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider
func WithMeterProvider(mp metric.MeterProvider) ReconcilerAppOptions {
	return func(cfg *reconcilerAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) ReconcilerAppOptions {
	return func(cfg *reconcilerAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

type metricsSet struct {
	sync     *telemetry.SyncMetrics
	conflict *telemetry.ConflictMetrics
	jobs     *telemetry.JobMetrics
}

func buildMetrics(mp metric.MeterProvider) (metricsSet, error) {
	var (
		m   metricsSet
		err error
	)
	if mp == nil {
		return m, nil
	}
	if m.sync, err = telemetry.NewSyncMetrics(mp); err != nil {
		return m, fmt.Errorf("failed to create sync metrics: %w", err)
	}
	if m.conflict, err = telemetry.NewConflictMetrics(mp); err != nil {
		return m, fmt.Errorf("failed to create conflict metrics: %w", err)
	}
	if m.jobs, err = telemetry.NewJobMetrics(mp); err != nil {
		return m, fmt.Errorf("failed to create job metrics: %w", err)
	}
	slog.Info("Reconciler metrics enabled")
	return m, nil
}

// buildComponents wires storage, the coordinator and its listeners, and
// the scheduler. Storage is released again when wiring fails.
func buildComponents(ctx context.Context, b *reconcilerAppConfig) (_ *AppComponents, err error) {
	slog.Info("Initializing reconciler components", "storage", b.config.Storage.Type)

	if b.storageFactory == nil {
		b.storageFactory, err = storage.NewStorageFactory(ctx, b.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}
	defer func() {
		if err != nil {
			b.storageFactory.Cleanup()
		}
	}()

	var tracer trace.Tracer
	if b.tracerProvider != nil {
		tracer = b.tracerProvider.Tracer(tracerName)
	}
	metrics, err := buildMetrics(b.meterProvider)
	if err != nil {
		return nil, err
	}

	stores := b.config.EnabledStores()
	registry, err := entity.Build(stores, entity.Definitions(), b.storageFactory.OpenAccessor)
	if err != nil {
		return nil, fmt.Errorf("failed to build entity registry: %w", err)
	}

	coord, err := buildCoordinator(b, registry, tracer, metrics.sync)
	if err != nil {
		return nil, err
	}

	systemStore := b.storageFactory.SystemStore()
	if systemStore != "" {
		slog.Info("Replicating system tables", "system_store", systemStore)
	}

	attemptOpts := []attempt.Option{
		attempt.WithClock(b.clock),
		attempt.WithMaxRetries(b.config.Retry.MaxRetries),
		attempt.WithTracer(tracer),
	}
	conflictOpts := []conflict.Option{
		conflict.WithClock(b.clock),
		conflict.WithCooldown(b.config.Conflict.NotifyCooldown.Std()),
		conflict.WithNotifier(buildNotifier(b)),
		conflict.WithMetrics(metrics.conflict),
		conflict.WithTracer(tracer),
	}
	if systemStore != "" {
		attemptOpts = append(attemptOpts, attempt.WithReplication(coord, systemStore))
		conflictOpts = append(conflictOpts, conflict.WithReplication(coord, systemStore))
	}

	attempts := attempt.NewLog(b.storageFactory.AttemptRepository(), coord, attemptOpts...)
	conflictOpts = append(conflictOpts, conflict.WithAttempts(attempts))

	reader := snapshot.NewReader(registry, snapshot.WithTracer(tracer))
	conflicts := conflict.NewManager(b.storageFactory.ConflictRepository(), reader, coord, stores, conflictOpts...)

	coord.SetRecorder(attempts)
	coord.SetChecker(conflicts)

	detector := conflict.NewDetector(conflicts,
		conflict.WithLookback(b.config.Conflict.DetectLookback.Std()),
		conflict.WithLimits(b.config.Conflict.DetectPerStoreLimit, b.config.Conflict.DetectEntityLimit),
	)

	components := &AppComponents{
		Storage:     b.storageFactory,
		Registry:    registry,
		Coordinator: coord,
		Attempts:    attempts,
		Conflicts:   conflicts,
		Detector:    detector,
	}
	components.Scheduler, err = buildScheduler(b.config, components, tracer, metrics.jobs)
	if err != nil {
		return nil, err
	}

	slog.Info("Reconciler components initialized successfully", "stores", stores)
	return components, nil
}

func buildCoordinator(
	b *reconcilerAppConfig, registry *entity.Registry, tracer trace.Tracer, metrics *telemetry.SyncMetrics,
) (*sync.Coordinator, error) {
	logMode, err := sync.ParseLogMode(b.config.Sync.LogMode)
	if err != nil {
		return nil, err
	}

	appliers := make([]applier.StoreApplier, 0, len(registry.Stores()))
	for _, s := range registry.Stores() {
		appliers = append(appliers, applier.New(s, registry, applier.WithTracer(tracer)))
	}

	coord, err := sync.NewCoordinator(registry, appliers,
		sync.WithWorkers(b.config.Sync.Workers),
		sync.WithInlineCheck(b.config.Sync.InlineCheck),
		sync.WithLogMode(logMode),
		sync.WithSyncMetrics(metrics),
		sync.WithTracer(tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync coordinator: %w", err)
	}
	return coord, nil
}

// buildNotifier returns the configured alert channel behind a rate limiter.
func buildNotifier(b *reconcilerAppConfig) notify.Notifier {
	nc := b.config.Notify
	format := notify.Format{SubjectPrefix: nc.SubjectPrefix, AdminURLBase: nc.AdminURLBase}

	next := b.notifier
	if next == nil {
		switch nc.Type {
		case config.NotifyWebhook:
			next = notify.NewWebhookNotifier(nc.WebhookURL, format, nc.Timeout.Std())
		default:
			next = notify.NewLogNotifier(format)
		}
	}
	return notify.NewRateLimited(next, nc.RatePerSecond, nc.Burst)
}

// buildScheduler registers every enabled job.
func buildScheduler(
	cfg *config.Config, c *AppComponents, tracer trace.Tracer, metrics *telemetry.JobMetrics,
) (*scheduler.Scheduler, error) {
	s := scheduler.New(time.Local, scheduler.WithJobMetrics(metrics), scheduler.WithTracer(tracer))

	type intervalJob struct {
		enabled  bool
		job      scheduler.Job
		interval time.Duration
	}
	intervals := []intervalJob{
		{cfg.Retry.Enabled, scheduler.RetryJob(c.Attempts, cfg.Retry.BatchSize), cfg.Retry.Interval.Std()},
		{cfg.Conflict.Enabled, scheduler.DetectJob(c.Detector), cfg.Conflict.Interval.Std()},
		{cfg.Conflict.Enabled, scheduler.RecheckJob(c.Conflicts, cfg.Conflict.RecheckLimit), cfg.Conflict.Interval.Std()},
		{cfg.Conflict.Enabled, scheduler.NotifyJob(c.Conflicts, cfg.Conflict.NotifyLimit), cfg.Conflict.Interval.Std()},
	}
	for _, ij := range intervals {
		if !ij.enabled {
			continue
		}
		if err := s.AddInterval(ij.job, ij.interval); err != nil {
			return nil, fmt.Errorf("failed to schedule job: %w", err)
		}
	}

	if cfg.Cleanup.Enabled {
		job := scheduler.CleanupJob(c.Attempts, cfg.Cleanup.RetainDays, cfg.Cleanup.MaxRows)
		if err := s.AddCron(job, cfg.Cleanup.Cron); err != nil {
			return nil, fmt.Errorf("failed to schedule job: %w", err)
		}
	}
	if cfg.FullResync.Enabled {
		source, err := store.Parse(cfg.FullResync.Source)
		if err != nil {
			return nil, fmt.Errorf("fullResync.source: %w", err)
		}
		if err := s.AddCron(scheduler.FullResyncJob(c.Coordinator, source), cfg.FullResync.Cron); err != nil {
			return nil, fmt.Errorf("failed to schedule job: %w", err)
		}
	}
	return s, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *reconcilerAppConfig,
	c *AppComponents,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Metrics and tracing wrap everything else so rejected requests count too.
	httpMetrics, err := telemetry.NewHTTPMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	if httpMetrics != nil {
		slog.Info("HTTP metrics middleware enabled")
	}
	middlewares := append([]func(http.Handler) http.Handler{
		telemetry.TracingMiddleware(b.tracerProvider),
		httpMetrics.Middleware,
	}, b.middlewares...)

	routes := v1.NewRoutes(c.Conflicts, c.Detector, c.Attempts, c.Coordinator)
	router := api.NewServer(routes,
		api.WithMiddlewares(middlewares...),
		api.WithReadiness(c.Storage),
	)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
