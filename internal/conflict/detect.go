package conflict

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	stdsync "sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/otel"
)

const (
	// DefaultLookback is where the detection cursor starts on the first run.
	DefaultLookback = 720 * time.Hour
	// DefaultPerStoreLimit bounds the successful attempts read per store.
	DefaultPerStoreLimit = 200
	// DefaultEntityLimit bounds the entities checked per run.
	DefaultEntityLimit = 200
)

// ErrNoAttemptSource is returned by DetectRecent when the Manager was built
// without WithAttempts.
var ErrNoAttemptSource = errors.New("batch detection needs an attempt source")

// DetectStats summarises one batch detection run.
type DetectStats struct {
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Candidates int       `json:"candidates"`
	Checked    int       `json:"checked"`
	Conflicts  int       `json:"conflicts"`
	Errors     int       `json:"errors"`
}

type candidate struct {
	entityType entity.Type
	entityID   string
	action     entity.Action
	seen       time.Time
}

func attemptTime(a *entity.SyncAttempt) time.Time {
	switch {
	case a.UpdateTime != nil:
		return *a.UpdateTime
	case a.CreateTime != nil:
		return *a.CreateTime
	}
	return time.Time{}
}

// DetectRecent checks every entity with a successful attempt in (from, to]
// against any store. Candidates are deduplicated per entity keeping the
// newest attempt, newest first, and at most entityLimit are checked.
func (m *Manager) DetectRecent(ctx context.Context, from, to time.Time, perStoreLimit, entityLimit int) (DetectStats, error) {
	stats := DetectStats{From: from, To: to}
	if m.attempts == nil {
		return stats, ErrNoAttemptSource
	}
	if perStoreLimit <= 0 {
		perStoreLimit = DefaultPerStoreLimit
	}
	if entityLimit <= 0 {
		entityLimit = DefaultEntityLimit
	}

	ctx, span := otel.StartSpan(ctx, m.tracer, "conflict.DetectRecent")
	defer span.End()

	newest := make(map[string]candidate)
	for _, s := range m.stores {
		rows, err := m.attempts.ListSucceeded(ctx, s, from, to, perStoreLimit)
		if err != nil {
			otel.RecordError(span, err)
			return stats, fmt.Errorf("failed to list successful attempts for %s: %w", s, err)
		}
		for _, a := range rows {
			if a.EntityType.IsSystem() || a.EntityID == "" {
				continue
			}
			c := candidate{entityType: a.EntityType, entityID: a.EntityID, action: a.Action, seen: attemptTime(a)}
			key := entityKey(c.entityType, c.entityID)
			if prev, ok := newest[key]; !ok || c.seen.After(prev.seen) {
				newest[key] = c
			}
		}
	}

	candidates := make([]candidate, 0, len(newest))
	for _, c := range newest {
		candidates = append(candidates, c)
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		return cmp.Or(
			b.seen.Compare(a.seen),
			cmp.Compare(a.entityType, b.entityType),
			cmp.Compare(a.entityID, b.entityID),
		)
	})
	stats.Candidates = len(candidates)
	if len(candidates) > entityLimit {
		candidates = candidates[:entityLimit]
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Checked++
		ticket, err := m.Detect(ctx, c.entityType, c.entityID, c.action)
		if err != nil {
			stats.Errors++
			slog.ErrorContext(ctx, "Batch conflict detection failed",
				"entity_type", c.entityType, "entity_id", c.entityID, "error", err)
			continue
		}
		if ticket != nil {
			stats.Conflicts++
		}
	}
	span.SetAttributes(otel.AttrResultCount.Int(stats.Conflicts))
	return stats, nil
}

// Detector runs batch detection over a moving window. The cursor starts at
// now minus the lookback and advances to the end of every successful run.
type Detector struct {
	manager       *Manager
	lookback      time.Duration
	perStoreLimit int
	entityLimit   int

	mu     stdsync.Mutex
	cursor time.Time
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithLookback sets how far back the first run reaches.
func WithLookback(lookback time.Duration) DetectorOption {
	return func(d *Detector) {
		if lookback > 0 {
			d.lookback = lookback
		}
	}
}

// WithLimits sets the per-store attempt limit and the per-run entity limit.
func WithLimits(perStore, entities int) DetectorOption {
	return func(d *Detector) {
		if perStore > 0 {
			d.perStoreLimit = perStore
		}
		if entities > 0 {
			d.entityLimit = entities
		}
	}
}

// NewDetector creates a Detector driving m.
func NewDetector(m *Manager, opts ...DetectorOption) *Detector {
	d := &Detector{
		manager:       m,
		lookback:      DefaultLookback,
		perStoreLimit: DefaultPerStoreLimit,
		entityLimit:   DefaultEntityLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run scans (cursor, now] and advances the cursor on success. Runs are
// serialized.
func (d *Detector) Run(ctx context.Context) (DetectStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.manager.clock.Now()
	if d.cursor.IsZero() {
		d.cursor = now.Add(-d.lookback)
	}
	ctx, span := otel.StartSpan(ctx, d.manager.tracer, "conflict.Detector.Run",
		trace.WithAttributes(otel.AttrJobName.String("detect")))
	defer span.End()

	stats, err := d.manager.DetectRecent(ctx, d.cursor, now, d.perStoreLimit, d.entityLimit)
	if err != nil {
		otel.RecordError(span, err)
		return stats, err
	}
	d.cursor = now
	return stats, nil
}

// Cursor returns the end of the last successful run, or the zero time
// before the first run.
func (d *Detector) Cursor() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}
