package conflict

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/otel"
)

// NotifyStats summarises a NotifyPending run.
type NotifyStats struct {
	Selected int `json:"selected"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
}

// NotifyPending alerts on up to limit OPEN tickets that were never notified
// or whose last alert is at least one cooldown old. Each selected ticket
// gets one alert; a sent alert stamps lastNotifiedAt and bumps
// notifyCount. A failed alert is logged and retried on a later run.
func (m *Manager) NotifyPending(ctx context.Context, limit int) (NotifyStats, error) {
	if limit <= 0 {
		limit = DefaultNotifyLimit
	}
	ctx, span := otel.StartSpan(ctx, m.tracer, "conflict.NotifyPending")
	defer span.End()

	var stats NotifyStats
	cutoff := m.clock.Now().Add(-m.cooldown)
	tickets, err := m.repo.ListNotifiable(ctx, cutoff, limit)
	if err != nil {
		otel.RecordError(span, err)
		return stats, fmt.Errorf("failed to list notifiable tickets: %w", err)
	}
	stats.Selected = len(tickets)

	for _, ticket := range tickets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := m.notifyOne(ctx, ticket); err != nil {
			stats.Failed++
			slog.ErrorContext(ctx, "Failed to send conflict alert", "ticket_id", ticket.ID, "error", err)
			m.metrics.RecordNotification(ctx, string(ticket.EntityType), false)
			continue
		}
		stats.Sent++
		m.metrics.RecordNotification(ctx, string(ticket.EntityType), true)
	}
	span.SetAttributes(otel.AttrResultCount.Int(stats.Sent))
	return stats, nil
}

func (m *Manager) notifyOne(ctx context.Context, ticket *entity.ConflictTicket) error {
	items, err := m.repo.Items(ctx, ticket.ID)
	if err != nil {
		return fmt.Errorf("failed to load snapshot items: %w", err)
	}
	if err := m.notifier.SendConflictAlert(ctx, ticket, items); err != nil {
		return err
	}

	_, err = m.withTicket(ctx, ticket.ID, func(current *entity.ConflictTicket) (*entity.ConflictTicket, error) {
		now := m.clock.Now()
		current.LastNotifiedAt = &now
		current.NotifyCount++
		return current, m.save(ctx, current, current.Status)
	})
	return err
}
