// Package conflict owns the lifecycle of conflict tickets.
//
// A ticket records that one entity instance diverges across stores. There
// is at most one ticket per (entity type, entity id); repeated detections
// refresh it instead of adding rows. Tickets move between OPEN, RESOLVED
// and IGNORED:
//
//	(none)   -> OPEN      first detection
//	OPEN     -> RESOLVED  recheck finds the stores in agreement
//	RESOLVED -> OPEN      a later detection or recheck finds divergence
//	any      -> IGNORED   operator action
//	IGNORED  -> OPEN      operator reopen, or resolve (reopens first)
//
// Every read-modify-write of a ticket runs under a per-entity lock.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehving/noticesystem-sub000/internal/clock"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/keylock"
	"github.com/ehving/noticesystem-sub000/internal/notify"
	"github.com/ehving/noticesystem-sub000/internal/otel"
	"github.com/ehving/noticesystem-sub000/internal/snapshot"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync"
	"github.com/ehving/noticesystem-sub000/internal/telemetry"
)

const (
	// DefaultCooldown is the minimum time between two alerts for one ticket.
	DefaultCooldown = 30 * time.Minute
	// DefaultRecheckLimit bounds one RecheckOpen sweep.
	DefaultRecheckLimit = 50
	// DefaultNotifyLimit bounds one NotifyPending sweep.
	DefaultNotifyLimit = 20
)

var (
	// ErrInvalidRequest is returned for operator requests missing required input.
	ErrInvalidRequest = errors.New("invalid conflict request")
	// ErrRepairIncomplete is returned by Resolve when the stores still
	// diverge after the repair.
	ErrRepairIncomplete = errors.New("repair incomplete")
)

// SnapshotReader reads one entity instance from every store.
type SnapshotReader interface {
	Read(ctx context.Context, t entity.Type, id string) (snapshot.Snapshot, error)
}

// Repairer copies one row from a source store onto one target without
// logging an attempt.
type Repairer interface {
	SyncToTargetWithoutLog(
		ctx context.Context, t entity.Type, id string, action entity.Action, source, target store.Store,
	) error
}

// SucceededLister lists successful attempts applied to a target store.
type SucceededLister interface {
	ListSucceeded(ctx context.Context, target store.Store, from, to time.Time, limit int) ([]*entity.SyncAttempt, error)
}

// Replicator propagates system-of-record rows to the other stores.
type Replicator interface {
	SubmitSync(ctx context.Context, t entity.Type, id string, action entity.Action, source store.Store) (sync.Result, error)
}

// Manager detects divergence, maintains tickets and sends alerts.
type Manager struct {
	repo     Repository
	reader   SnapshotReader
	repairer Repairer
	stores   []store.Store

	attempts SucceededLister
	notifier notify.Notifier
	clock    clock.Clock
	cooldown time.Duration
	locks    *keylock.Striped

	replicator  Replicator
	systemStore store.Store

	metrics *telemetry.ConflictMetrics
	tracer  trace.Tracer
}

var _ sync.PostWriteChecker = (*Manager)(nil)

// Option configures a Manager.
type Option func(*Manager)

// WithAttempts sets the attempt source used by batch detection.
func WithAttempts(l SucceededLister) Option {
	return func(m *Manager) {
		m.attempts = l
	}
}

// WithNotifier sets the alert channel. The default logs alerts.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithClock sets the clock used for ticket timestamps and cooldowns.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithCooldown sets the minimum time between two alerts for one ticket.
func WithCooldown(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.cooldown = d
		}
	}
}

// WithReplication propagates ticket and snapshot item rows from
// systemStore to the other stores through r.
func WithReplication(r Replicator, systemStore store.Store) Option {
	return func(m *Manager) {
		m.replicator = r
		m.systemStore = systemStore
	}
}

// WithMetrics sets the ticket metrics.
func WithMetrics(metrics *telemetry.ConflictMetrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithTracer sets the tracer used for ticket spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

// NewManager creates a Manager over the given stores.
func NewManager(repo Repository, reader SnapshotReader, repairer Repairer, stores []store.Store, opts ...Option) *Manager {
	m := &Manager{
		repo:     repo,
		reader:   reader,
		repairer: repairer,
		stores:   stores,
		notifier: notify.NewLogNotifier(notify.Format{}),
		clock:    clock.Real{},
		cooldown: DefaultCooldown,
		locks:    keylock.New(keylock.DefaultStripes),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cooldown returns the notification cooldown.
func (m *Manager) Cooldown() time.Duration {
	return m.cooldown
}

func entityKey(t entity.Type, id string) string {
	return string(t) + "/" + id
}

// CheckAfterWrite implements sync.PostWriteChecker.
func (m *Manager) CheckAfterWrite(ctx context.Context, batch sync.BatchResult) (string, error) {
	ticket, err := m.Detect(ctx, batch.EntityType, batch.EntityID, batch.Action)
	if err != nil || ticket == nil {
		return "", err
	}
	return ticket.ID, nil
}

// Detect snapshots (t, id) after action and opens or refreshes its ticket
// when the stores diverge. It returns nil when they agree. Agreement never
// closes a ticket here; that is left to Recheck.
func (m *Manager) Detect(ctx context.Context, t entity.Type, id string, action entity.Action) (*entity.ConflictTicket, error) {
	if t.IsSystem() || strings.TrimSpace(id) == "" {
		return nil, nil
	}

	ctx, span := otel.StartSpan(ctx, m.tracer, "conflict.Detect",
		otel.WithEntity(t, id))
	defer span.End()

	unlock := m.locks.Lock(entityKey(t, id))
	defer unlock()

	snap, err := m.reader.Read(ctx, t, id)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	conflictType, diverged := snapshot.Classify(action, snap)
	if !diverged {
		return nil, nil
	}
	span.SetAttributes(otel.AttrConflictType.String(string(conflictType)))

	ticket, err := m.openOrRefresh(ctx, t, id, conflictType, snap)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrTicketID.String(ticket.ID))
	return ticket, nil
}

// openOrRefresh finds or creates the entity's single ticket and records
// the divergence on it. The caller holds the entity lock.
func (m *Manager) openOrRefresh(
	ctx context.Context, t entity.Type, id string, conflictType entity.ConflictType, snap snapshot.Snapshot,
) (*entity.ConflictTicket, error) {
	now := m.clock.Now()
	created := false

	ticket, err := m.repo.GetByEntity(ctx, t, id)
	if errors.Is(err, ErrTicketNotFound) {
		ticket = &entity.ConflictTicket{
			ID:            uuid.NewString(),
			EntityType:    t,
			EntityID:      id,
			Status:        entity.TicketOpen,
			ConflictType:  &conflictType,
			FirstSeenAt:   &now,
			LastSeenAt:    &now,
			LastCheckedAt: &now,
			Audit:         entity.Audit{CreateTime: &now, UpdateTime: &now},
		}
		err = m.repo.Insert(ctx, ticket)
		if errors.Is(err, ErrDuplicateTicket) {
			ticket, err = m.repo.GetByEntity(ctx, t, id)
		} else {
			created = err == nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket of %s: %w", entityKey(t, id), err)
	}

	if created {
		m.transition(ctx, ticket, "")
		m.replicate(ctx, entity.TypeSyncConflict, ticket.ID, entity.ActionCreate)
	} else {
		from := ticket.Status
		markDiverged(ticket, conflictType, now)
		if err := m.save(ctx, ticket, from); err != nil {
			return nil, err
		}
	}

	if err := m.replaceItems(ctx, ticket, snap, now); err != nil {
		return nil, err
	}
	return ticket, nil
}

// markDiverged records a fresh observation of divergence. A RESOLVED
// ticket reopens; an IGNORED one stays ignored.
func markDiverged(ticket *entity.ConflictTicket, conflictType entity.ConflictType, now time.Time) {
	ticket.ConflictType = &conflictType
	ticket.LastSeenAt = &now
	ticket.LastCheckedAt = &now
	if ticket.FirstSeenAt == nil {
		ticket.FirstSeenAt = &now
	}
	if ticket.Status == entity.TicketResolved {
		ticket.Status = entity.TicketOpen
		ticket.ResolutionSourceStore = nil
		ticket.ResolvedAt = nil
	}
}

// markConsistent records that the stores agree. Only an OPEN ticket
// resolves automatically.
func markConsistent(ticket *entity.ConflictTicket, now time.Time) {
	ticket.LastCheckedAt = &now
	if ticket.Status == entity.TicketOpen {
		ticket.Status = entity.TicketResolved
		ticket.ResolvedAt = &now
	}
}

// appendNote adds one "[TAG] note" line to the ticket's audit trail.
func appendNote(ticket *entity.ConflictTicket, tag, note string) {
	line := "[" + tag + "]"
	if note = strings.TrimSpace(note); note != "" {
		line += " " + note
	}
	if ticket.ResolutionNote != nil && *ticket.ResolutionNote != "" {
		line = *ticket.ResolutionNote + "\n" + line
	}
	ticket.ResolutionNote = &line
}

// save persists ticket and reports a status change from from.
func (m *Manager) save(ctx context.Context, ticket *entity.ConflictTicket, from entity.TicketStatus) error {
	now := m.clock.Now()
	ticket.UpdateTime = &now
	if err := m.repo.Update(ctx, ticket); err != nil {
		return fmt.Errorf("failed to update ticket %s: %w", ticket.ID, err)
	}
	if from != ticket.Status {
		m.transition(ctx, ticket, from)
	}
	m.replicate(ctx, entity.TypeSyncConflict, ticket.ID, entity.ActionUpdate)
	return nil
}

func (m *Manager) transition(ctx context.Context, ticket *entity.ConflictTicket, from entity.TicketStatus) {
	fromName := string(from)
	if fromName == "" {
		fromName = "NONE"
	}
	slog.InfoContext(ctx, "Conflict ticket transition",
		"ticket_id", ticket.ID,
		"entity_type", ticket.EntityType,
		"entity_id", ticket.EntityID,
		"from", fromName,
		"to", ticket.Status)
	m.metrics.RecordTransition(ctx, string(ticket.EntityType), fromName, string(ticket.Status))
}

// replaceItems swaps the ticket's snapshot items for the per-store view of snap.
func (m *Manager) replaceItems(ctx context.Context, ticket *entity.ConflictTicket, snap snapshot.Snapshot, now time.Time) error {
	items := make([]*entity.SnapshotItem, 0, len(snap.Stores))
	for _, s := range snap.Stores {
		item := &entity.SnapshotItem{
			ID:                 uuid.NewString(),
			ConflictID:         ticket.ID,
			StoreID:            string(s),
			FingerprintVersion: snap.FingerprintVersion,
			LastCheckedAt:      &now,
			Audit:              entity.Audit{CreateTime: &now, UpdateTime: &now},
		}
		if snap.Exists[s] {
			hash := snap.Hashes[s]
			item.ExistsFlag = 1
			item.RowHash = &hash
		}
		items = append(items, item)
	}

	removed, err := m.repo.ReplaceItems(ctx, ticket.ID, items)
	if err != nil {
		return fmt.Errorf("failed to store snapshot of ticket %s: %w", ticket.ID, err)
	}
	for _, id := range removed {
		m.replicate(ctx, entity.TypeSyncConflictItem, id, entity.ActionDelete)
	}
	for _, item := range items {
		m.replicate(ctx, entity.TypeSyncConflictItem, item.ID, entity.ActionCreate)
	}
	return nil
}

func (m *Manager) replicate(ctx context.Context, t entity.Type, id string, action entity.Action) {
	if m.replicator == nil {
		return
	}
	if _, err := m.replicator.SubmitSync(ctx, t, id, action, m.systemStore); err != nil {
		slog.WarnContext(ctx, "Failed to replicate conflict row",
			"entity_type", t, "id", id, "action", action, "error", err)
	}
}
