package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	stdsync "sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/otel"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync/applier"
	"github.com/ehving/noticesystem-sub000/internal/telemetry"
)

const (
	// DefaultWorkers bounds concurrent target applications per change.
	DefaultWorkers = 4
	// DefaultSource is the store full resyncs read from when none is given.
	DefaultSource = store.MySQL
)

var (
	// ErrInvalidSync is returned for sync requests missing identifying fields
	// or naming an unknown entity type, action or store.
	ErrInvalidSync = errors.New("invalid sync request")
	// ErrResyncInProgress is returned when a full resync for the same
	// (entity type, source) pair is already running.
	ErrResyncInProgress = errors.New("full resync already in progress")
)

// LogMode selects which attempts are written to the attempt log.
type LogMode int

const (
	// LogNone records nothing. Used for retries and conflict repair.
	LogNone LogMode = iota
	// LogFailOnly records failures immediately and successes after the
	// post-write check has decided between SUCCESS and CONFLICT.
	LogFailOnly
	// LogAll records every attempt as soon as it finishes.
	LogAll
)

// String returns the configuration name of the mode.
func (m LogMode) String() string {
	switch m {
	case LogNone:
		return "NONE"
	case LogFailOnly:
		return "FAIL_ONLY"
	case LogAll:
		return "ALL"
	default:
		return fmt.Sprintf("LogMode(%d)", int(m))
	}
}

// ParseLogMode parses NONE, FAIL_ONLY or ALL.
func ParseLogMode(name string) (LogMode, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "NONE":
		return LogNone, nil
	case "FAIL_ONLY", "":
		return LogFailOnly, nil
	case "ALL":
		return LogAll, nil
	default:
		return LogNone, fmt.Errorf("unknown log mode %q", name)
	}
}

// Outcome is the result of one (entity, source, target) attempt.
type Outcome struct {
	EntityType entity.Type
	EntityID   string
	Action     entity.Action
	Source     store.Store
	Target     store.Store
	Err        error
	// TicketID is set when the post-write check opened a ticket for a
	// successful application.
	TicketID string
}

// Succeeded reports whether the target accepted the change.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// BatchResult summarises a completed fan-out for the post-write check.
type BatchResult struct {
	EntityType entity.Type
	EntityID   string
	Action     entity.Action
	Source     store.Store
	Succeeded  map[store.Store]bool
}

// AnySucceeded reports whether at least one target accepted the change.
func (b BatchResult) AnySucceeded() bool {
	for _, ok := range b.Succeeded {
		if ok {
			return true
		}
	}
	return false
}

// Result is returned by SubmitSync.
type Result struct {
	EntityType entity.Type
	EntityID   string
	Action     entity.Action
	Source     store.Store
	Outcomes   []Outcome
	// TicketID is the ticket opened or refreshed by the post-write check.
	TicketID string
}

// Failed returns the number of targets that rejected the change.
func (r Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}

// AttemptRecorder persists attempt outcomes.
type AttemptRecorder interface {
	RecordOutcome(ctx context.Context, outcome Outcome) error
}

// PostWriteChecker verifies the stores right after a fan-out. It returns
// the id of the ticket when divergence was found, or "" when the stores agree.
type PostWriteChecker interface {
	CheckAfterWrite(ctx context.Context, batch BatchResult) (string, error)
}

// FullSyncResult summarises one full-table resync.
type FullSyncResult struct {
	EntityType entity.Type   `json:"entityType"`
	Source     store.Store   `json:"sourceStore"`
	Rows       int           `json:"rows"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"-"`
}

// Coordinator fans changes out from a source store to every other store.
// A failing target never stops the others and never fails the caller.
type Coordinator struct {
	registry    *entity.Registry
	appliers    map[store.Store]applier.StoreApplier
	workers     int
	inlineCheck bool
	logMode     LogMode

	mu       stdsync.RWMutex
	recorder AttemptRecorder
	checker  PostWriteChecker

	inflightMu stdsync.Mutex
	inflight   map[string]struct{}

	metrics *telemetry.SyncMetrics
	tracer  trace.Tracer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers bounds how many targets are applied concurrently.
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithInlineCheck enables the post-write check after each fan-out.
func WithInlineCheck(enabled bool) Option {
	return func(c *Coordinator) {
		c.inlineCheck = enabled
	}
}

// WithLogMode sets how SubmitSync logs attempts. The default is LogFailOnly.
func WithLogMode(mode LogMode) Option {
	return func(c *Coordinator) {
		c.logMode = mode
	}
}

// WithSyncMetrics sets the sync metrics.
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *Coordinator) {
		c.metrics = metrics
	}
}

// WithTracer sets the tracer used for sync spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = tracer
	}
}

// NewCoordinator creates a coordinator with one applier per registered store.
func NewCoordinator(registry *entity.Registry, appliers []applier.StoreApplier, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		registry: registry,
		appliers: make(map[store.Store]applier.StoreApplier, len(appliers)),
		workers:  DefaultWorkers,
		logMode:  LogFailOnly,
		inflight: make(map[string]struct{}),
	}
	for _, a := range appliers {
		if _, dup := c.appliers[a.Target()]; dup {
			return nil, fmt.Errorf("duplicate applier for store %s", a.Target())
		}
		c.appliers[a.Target()] = a
	}
	for _, s := range registry.Stores() {
		if _, ok := c.appliers[s]; !ok {
			return nil, fmt.Errorf("no applier for store %s", s)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetRecorder installs the attempt recorder. The recorder usually depends
// on the coordinator itself for retries, hence the setter.
func (c *Coordinator) SetRecorder(r AttemptRecorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

// SetChecker installs the post-write checker.
func (c *Coordinator) SetChecker(pc PostWriteChecker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checker = pc
}

func (c *Coordinator) listeners() (AttemptRecorder, PostWriteChecker) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recorder, c.checker
}

// Stores returns the stores changes are fanned out across.
func (c *Coordinator) Stores() []store.Store {
	return c.registry.Stores()
}

func (c *Coordinator) validate(t entity.Type, id string, action entity.Action, source store.Store) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: blank entity id", ErrInvalidSync)
	}
	if _, err := c.registry.Definition(t); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSync, err)
	}
	if _, err := entity.ParseAction(string(action)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSync, err)
	}
	if !c.registry.HasStore(source) {
		return fmt.Errorf("%w: unknown source store %q", ErrInvalidSync, source)
	}
	return nil
}

// SubmitSync applies a change made in source to every other store.
//
// The returned error is only non-nil for malformed requests; per-target
// failures are reported in the Result and the attempt log.
func (c *Coordinator) SubmitSync(
	ctx context.Context, t entity.Type, id string, action entity.Action, source store.Store,
) (Result, error) {
	if err := c.validate(t, id, action, source); err != nil {
		return Result{}, err
	}
	ctx, span := otel.StartSpan(ctx, c.tracer, "sync.SubmitSync",
		trace.WithAttributes(
			otel.AttrEntityType.String(string(t)),
			otel.AttrEntityID.String(id),
			otel.AttrAction.String(string(action)),
			otel.AttrSourceStore.String(string(source)),
		))
	defer span.End()

	start := time.Now()
	result := Result{EntityType: t, EntityID: id, Action: action, Source: source}
	result.Outcomes = c.fanOut(ctx, t, id, action, source, c.logMode)

	batch := BatchResult{
		EntityType: t,
		EntityID:   id,
		Action:     action,
		Source:     source,
		Succeeded:  make(map[store.Store]bool, len(result.Outcomes)),
	}
	for _, o := range result.Outcomes {
		batch.Succeeded[o.Target] = o.Succeeded()
	}

	if c.shouldCheck(t, action) && batch.AnySucceeded() {
		result.TicketID = c.check(ctx, batch)
	}

	for i := range result.Outcomes {
		o := &result.Outcomes[i]
		if !o.Succeeded() {
			continue
		}
		o.TicketID = result.TicketID
		if c.logMode == LogFailOnly {
			c.record(ctx, *o)
		}
	}

	status := string(entity.AttemptSuccess)
	switch {
	case result.TicketID != "":
		status = string(entity.AttemptConflict)
	case result.Failed() > 0:
		status = string(entity.AttemptFailed)
	}
	c.metrics.RecordSync(ctx, string(t), status, time.Since(start))

	if result.Failed() > 0 {
		slog.Warn("Sync finished with failed targets",
			"entity_type", t,
			"entity_id", id,
			"action", action,
			"source", source,
			"failed", result.Failed())
	}
	return result, nil
}

// SubmitBatchSync runs SubmitSync for every id. Each id is independent.
func (c *Coordinator) SubmitBatchSync(
	ctx context.Context, t entity.Type, ids []string, action entity.Action, source store.Store,
) ([]Result, error) {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := c.SubmitSync(ctx, t, id, action, source)
		if err != nil {
			slog.Warn("Skipping invalid batch sync item", "entity_type", t, "entity_id", id, "error", err)
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// SyncToTarget applies a change to a single target and logs the attempt.
// A source equal to the target is a no-op.
func (c *Coordinator) SyncToTarget(
	ctx context.Context, t entity.Type, id string, action entity.Action, source, target store.Store,
) error {
	return c.syncOne(ctx, t, id, action, source, target, LogAll)
}

// SyncToTargetWithoutLog applies a change to a single target without
// writing an attempt row. Retries and conflict repair use it.
func (c *Coordinator) SyncToTargetWithoutLog(
	ctx context.Context, t entity.Type, id string, action entity.Action, source, target store.Store,
) error {
	return c.syncOne(ctx, t, id, action, source, target, LogNone)
}

func (c *Coordinator) syncOne(
	ctx context.Context, t entity.Type, id string, action entity.Action, source, target store.Store, mode LogMode,
) error {
	if err := c.validate(t, id, action, source); err != nil {
		return err
	}
	if source == target {
		return nil
	}
	a, ok := c.appliers[target]
	if !ok {
		return fmt.Errorf("%w: unknown target store %q", ErrInvalidSync, target)
	}
	o := c.applyTo(ctx, a, t, id, action, source)
	if mode == LogAll {
		c.record(ctx, o)
	}
	return o.Err
}

// fanOut applies the change to every store except source. Failures are
// recorded immediately unless mode is LogNone; in LogAll mode successes are
// recorded as well. The returned outcomes follow registry store order.
func (c *Coordinator) fanOut(
	ctx context.Context, t entity.Type, id string, action entity.Action, source store.Store, mode LogMode,
) []Outcome {
	targets := make([]store.Store, 0, len(c.appliers))
	for _, s := range c.registry.Stores() {
		if s != source {
			targets = append(targets, s)
		}
	}
	outcomes := make([]Outcome, len(targets))

	// Plain group: a failing target must not cancel the others.
	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, target := range targets {
		g.Go(func() error {
			o := c.applyTo(ctx, c.appliers[target], t, id, action, source)
			outcomes[i] = o
			if mode == LogAll || (mode == LogFailOnly && !o.Succeeded()) {
				c.record(ctx, o)
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (c *Coordinator) applyTo(
	ctx context.Context, a applier.StoreApplier, t entity.Type, id string, action entity.Action, source store.Store,
) (o Outcome) {
	o = Outcome{EntityType: t, EntityID: id, Action: action, Source: source, Target: a.Target()}
	defer func() {
		if r := recover(); r != nil {
			o.Err = fmt.Errorf("panic applying %s/%s to %s: %v", t, id, a.Target(), r)
		}
		status := entity.AttemptSuccess
		if o.Err != nil {
			status = entity.AttemptFailed
			slog.Error("Failed to apply change",
				"entity_type", t,
				"entity_id", id,
				"action", action,
				"source", source,
				"target", a.Target(),
				"error", o.Err)
		}
		c.metrics.RecordAttempt(ctx, string(t), string(a.Target()), string(status))
	}()
	o.Err = a.ApplyOne(ctx, t, action, id, source)
	return o
}

func (c *Coordinator) shouldCheck(t entity.Type, action entity.Action) bool {
	return c.inlineCheck && !t.IsSystem() && action != entity.ActionDelete
}

// check runs the post-write checker. Checker failures and panics are
// logged and treated as "no conflict".
func (c *Coordinator) check(ctx context.Context, batch BatchResult) (ticketID string) {
	_, checker := c.listeners()
	if checker == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Post-write check panicked",
				"entity_type", batch.EntityType, "entity_id", batch.EntityID, "panic", r)
			ticketID = ""
		}
	}()
	id, err := checker.CheckAfterWrite(ctx, batch)
	if err != nil {
		slog.Error("Post-write check failed",
			"entity_type", batch.EntityType, "entity_id", batch.EntityID, "error", err)
		return ""
	}
	return id
}

// record hands an outcome to the attempt recorder. System entity types are
// never logged, which keeps the log from logging about itself.
func (c *Coordinator) record(ctx context.Context, o Outcome) {
	if o.EntityType.IsSystem() {
		return
	}
	recorder, _ := c.listeners()
	if recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Attempt recorder panicked",
				"entity_type", o.EntityType, "entity_id", o.EntityID, "target", o.Target, "panic", r)
		}
	}()
	if err := recorder.RecordOutcome(ctx, o); err != nil {
		slog.Error("Failed to record sync attempt",
			"entity_type", o.EntityType,
			"entity_id", o.EntityID,
			"target", o.Target,
			"error", err)
	}
}

// FullSyncEntity resubmits every row of t in source as an UPDATE. Only one
// sweep per (t, source) runs at a time; a concurrent call returns
// ErrResyncInProgress. Cancelling ctx stops the sweep between rows.
func (c *Coordinator) FullSyncEntity(ctx context.Context, t entity.Type, source store.Store) (FullSyncResult, error) {
	result := FullSyncResult{EntityType: t, Source: source}
	def, err := c.registry.Definition(t)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrInvalidSync, err)
	}
	acc, err := c.registry.Accessor(t, source)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrInvalidSync, err)
	}

	key := string(t) + "/" + string(source)
	if !c.acquire(key) {
		return result, fmt.Errorf("%w: %s from %s", ErrResyncInProgress, t, source)
	}
	defer c.release(key)

	ctx, span := otel.StartSpan(ctx, c.tracer, "sync.FullSyncEntity",
		trace.WithAttributes(
			otel.AttrEntityType.String(string(t)),
			otel.AttrSourceStore.String(string(source)),
		))
	defer span.End()

	start := time.Now()
	expected, err := acc.Count(ctx, nil)
	if err != nil {
		otel.RecordError(span, err)
		return result, fmt.Errorf("failed to count %s in %s: %w", t, source, err)
	}
	slog.Info("Starting full resync", "entity_type", t, "source", source, "rows", expected)

	rows, err := acc.ListAll(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return result, fmt.Errorf("failed to list %s in %s: %w", t, source, err)
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			slog.Info("Full resync stopped", "entity_type", t, "source", source, "rows", result.Rows)
			return result, err
		}
		r, err := c.SubmitSync(ctx, t, def.IDOf(row), entity.ActionUpdate, source)
		if err != nil {
			slog.Warn("Skipping row during full resync", "entity_type", t, "error", err)
			continue
		}
		result.Rows++
		if r.Failed() > 0 {
			result.Failed++
		}
	}
	result.Duration = time.Since(start)
	span.SetAttributes(otel.AttrResultCount.Int(result.Rows))
	slog.Info("Full resync completed",
		"entity_type", t,
		"source", source,
		"rows", result.Rows,
		"failed", result.Failed,
		"duration", result.Duration)
	return result, nil
}

// FullSyncAll runs FullSyncEntity for every business entity type. A sweep
// already running for one type is skipped; other errors stop the run.
func (c *Coordinator) FullSyncAll(ctx context.Context, source store.Store) ([]FullSyncResult, error) {
	results := make([]FullSyncResult, 0, len(c.registry.BusinessTypes()))
	for _, t := range c.registry.BusinessTypes() {
		r, err := c.FullSyncEntity(ctx, t, source)
		if errors.Is(err, ErrResyncInProgress) {
			slog.Info("Full resync already running, skipping", "entity_type", t, "source", source)
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// ResyncRunning reports whether a sweep for (t, source) is in flight.
func (c *Coordinator) ResyncRunning(t entity.Type, source store.Store) bool {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	_, ok := c.inflight[string(t)+"/"+string(source)]
	return ok
}

func (c *Coordinator) acquire(key string) bool {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	if _, busy := c.inflight[key]; busy {
		return false
	}
	c.inflight[key] = struct{}{}
	return true
}

func (c *Coordinator) release(key string) {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	delete(c.inflight, key)
}
