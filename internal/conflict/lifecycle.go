package conflict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/otel"
	"github.com/ehving/noticesystem-sub000/internal/snapshot"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

// SweepStats summarises a RecheckOpen run.
type SweepStats struct {
	Scanned   int `json:"scanned"`
	Resolved  int `json:"resolved"`
	StillOpen int `json:"stillOpen"`
	Errors    int `json:"errors"`
}

// judge classifies a snapshot taken outside of a write. A row missing from
// every store counts as a completed delete.
func judge(snap snapshot.Snapshot) (entity.ConflictType, bool) {
	if snap.AllMissing() {
		return "", false
	}
	return snapshot.Classify(entity.ActionUpdate, snap)
}

// withTicket loads ticket id, takes its entity lock and hands a fresh copy
// to fn.
func (m *Manager) withTicket(
	ctx context.Context, id string, fn func(*entity.ConflictTicket) (*entity.ConflictTicket, error),
) (*entity.ConflictTicket, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: ticket id is required", ErrInvalidRequest)
	}
	ticket, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(entityKey(ticket.EntityType, ticket.EntityID))
	defer unlock()

	// The ticket may have changed while waiting for the lock.
	if ticket, err = m.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return fn(ticket)
}

// Recheck re-reads the ticket's entity from every store, replaces its
// snapshot items and applies the automatic transitions.
func (m *Manager) Recheck(ctx context.Context, id string) (*entity.ConflictTicket, error) {
	return m.withTicket(ctx, id, func(ticket *entity.ConflictTicket) (*entity.ConflictTicket, error) {
		return m.recheckLocked(ctx, ticket)
	})
}

func (m *Manager) recheckLocked(ctx context.Context, ticket *entity.ConflictTicket) (*entity.ConflictTicket, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "conflict.Recheck",
		trace.WithAttributes(
			otel.AttrTicketID.String(ticket.ID),
			otel.AttrEntityType.String(string(ticket.EntityType)),
			otel.AttrEntityID.String(ticket.EntityID),
		))
	defer span.End()

	snap, err := m.reader.Read(ctx, ticket.EntityType, ticket.EntityID)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	now := m.clock.Now()
	from := ticket.Status
	if conflictType, diverged := judge(snap); diverged {
		markDiverged(ticket, conflictType, now)
	} else {
		markConsistent(ticket, now)
	}
	if err := m.save(ctx, ticket, from); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	if err := m.replaceItems(ctx, ticket, snap, now); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	return ticket, nil
}

// RecheckOpen rechecks up to limit OPEN tickets, least recently checked
// first. A failing ticket is logged and the sweep continues.
func (m *Manager) RecheckOpen(ctx context.Context, limit int) (SweepStats, error) {
	if limit <= 0 {
		limit = DefaultRecheckLimit
	}
	var stats SweepStats
	tickets, err := m.repo.ListOpen(ctx, limit)
	if err != nil {
		return stats, fmt.Errorf("failed to list open tickets: %w", err)
	}

	for _, t := range tickets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Scanned++
		ticket, err := m.Recheck(ctx, t.ID)
		if err != nil {
			stats.Errors++
			slog.ErrorContext(ctx, "Failed to recheck conflict ticket", "ticket_id", t.ID, "error", err)
			continue
		}
		if ticket.Status == entity.TicketResolved {
			stats.Resolved++
		} else {
			stats.StillOpen++
		}
	}
	return stats, nil
}

// Resolve repairs the ticket's entity by copying source's current row to
// every other store, then rechecks. The resolution is stamped only when
// the recheck finds the stores in agreement; otherwise the ticket stays
// OPEN and ErrRepairIncomplete is returned with it. An IGNORED ticket is
// reopened first.
func (m *Manager) Resolve(ctx context.Context, id string, source store.Store, note string) (*entity.ConflictTicket, error) {
	if !slices.Contains(m.stores, source) {
		return nil, fmt.Errorf("%w: source store %q is not sync enabled", ErrInvalidRequest, source)
	}

	return m.withTicket(ctx, id, func(ticket *entity.ConflictTicket) (*entity.ConflictTicket, error) {
		ctx, span := otel.StartSpan(ctx, m.tracer, "conflict.Resolve",
			trace.WithAttributes(otel.AttrTicketID.String(ticket.ID), otel.AttrSourceStore.String(string(source))))
		defer span.End()

		if ticket.Status == entity.TicketIgnored {
			ticket.Status = entity.TicketOpen
			appendNote(ticket, "AUTO-REOPEN", "reopened to resolve from "+string(source))
			if err := m.save(ctx, ticket, entity.TicketIgnored); err != nil {
				otel.RecordError(span, err)
				return nil, err
			}
		}

		var repairErrs []error
		for _, target := range m.stores {
			if target == source {
				continue
			}
			err := m.repairer.SyncToTargetWithoutLog(ctx, ticket.EntityType, ticket.EntityID, entity.ActionUpdate, source, target)
			if err != nil {
				slog.WarnContext(ctx, "Conflict repair failed for target",
					"ticket_id", ticket.ID, "source", source, "target", target, "error", err)
				repairErrs = append(repairErrs, fmt.Errorf("%s: %w", target, err))
			}
		}

		ticket, err := m.recheckLocked(ctx, ticket)
		if err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
		if ticket.Status != entity.TicketResolved {
			err := fmt.Errorf("%w: %s %s still diverges", ErrRepairIncomplete, ticket.EntityType, ticket.EntityID)
			err = errors.Join(append([]error{err}, repairErrs...)...)
			otel.RecordError(span, err)
			return ticket, err
		}

		now := m.clock.Now()
		src := string(source)
		ticket.ResolutionSourceStore = &src
		ticket.ResolvedAt = &now
		appendNote(ticket, "RESOLVE "+src, note)
		if err := m.save(ctx, ticket, ticket.Status); err != nil {
			otel.RecordError(span, err)
			return nil, err
		}
		return ticket, nil
	})
}

// Ignore marks the ticket IGNORED and appends note to its audit trail.
func (m *Manager) Ignore(ctx context.Context, id, note string) (*entity.ConflictTicket, error) {
	return m.withTicket(ctx, id, func(ticket *entity.ConflictTicket) (*entity.ConflictTicket, error) {
		from := ticket.Status
		ticket.Status = entity.TicketIgnored
		appendNote(ticket, "IGNORE", note)
		if err := m.save(ctx, ticket, from); err != nil {
			return nil, err
		}
		return ticket, nil
	})
}

// Reopen moves the ticket back to OPEN, clearing any resolution, and
// appends note to its audit trail. Reopening an OPEN ticket only adds the note.
func (m *Manager) Reopen(ctx context.Context, id, note string) (*entity.ConflictTicket, error) {
	return m.withTicket(ctx, id, func(ticket *entity.ConflictTicket) (*entity.ConflictTicket, error) {
		from := ticket.Status
		ticket.Status = entity.TicketOpen
		ticket.ResolutionSourceStore = nil
		ticket.ResolvedAt = nil
		appendNote(ticket, "REOPEN", note)
		if err := m.save(ctx, ticket, from); err != nil {
			return nil, err
		}
		return ticket, nil
	})
}
