package notify

import (
	"context"
	"log/slog"

	"github.com/ehving/noticesystem-sub000/internal/entity"
)

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	format Format
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that logs at WARN level.
func NewLogNotifier(format Format) *LogNotifier {
	return &LogNotifier{format: format}
}

// SendConflictAlert implements Notifier.
func (n *LogNotifier) SendConflictAlert(ctx context.Context, ticket *entity.ConflictTicket, items []*entity.SnapshotItem) error {
	alert := n.format.Render(ticket, items)
	slog.WarnContext(ctx, alert.Subject,
		"ticket_id", alert.TicketID,
		"entity_type", alert.EntityType,
		"entity_id", alert.EntityID,
		"link", alert.Link,
		"body", alert.Body)
	return nil
}
