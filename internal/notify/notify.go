// Package notify delivers conflict alerts to operators.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ehving/noticesystem-sub000/internal/entity"
)

// Notifier sends one alert for a conflict ticket.
//
//go:generate mockgen -destination=mocks/mock_notify.go -package=mocks -source=notify.go Notifier
type Notifier interface {
	SendConflictAlert(ctx context.Context, ticket *entity.ConflictTicket, items []*entity.SnapshotItem) error
}

// Format controls how alerts are rendered.
type Format struct {
	// SubjectPrefix is prepended to every subject, e.g. "[notice-system]".
	SubjectPrefix string
	// AdminURLBase is the operator console base URL used to link the ticket.
	AdminURLBase string
}

// Alert is a rendered conflict notification.
type Alert struct {
	TicketID   string `json:"ticketId"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Link       string `json:"link,omitempty"`
}

// Render builds the alert for ticket and its per-store snapshot items.
func (f Format) Render(ticket *entity.ConflictTicket, items []*entity.SnapshotItem) Alert {
	conflictType := "UNKNOWN"
	if ticket.ConflictType != nil {
		conflictType = string(*ticket.ConflictType)
	}

	subject := fmt.Sprintf("conflict %s/%s (%s)", ticket.EntityType, ticket.EntityID, conflictType)
	if f.SubjectPrefix != "" {
		subject = f.SubjectPrefix + " " + subject
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Entity %s/%s diverges across stores (%s).\n", ticket.EntityType, ticket.EntityID, conflictType)
	if ticket.FirstSeenAt != nil {
		fmt.Fprintf(&b, "First seen: %s\n", ticket.FirstSeenAt.UTC().Format("2006-01-02 15:04:05"))
	}
	if ticket.LastSeenAt != nil {
		fmt.Fprintf(&b, "Last seen: %s\n", ticket.LastSeenAt.UTC().Format("2006-01-02 15:04:05"))
	}
	b.WriteString("\nStores:\n")
	for _, item := range items {
		hash := "-"
		if item.RowHash != nil && *item.RowHash != "" {
			hash = *item.RowHash
		}
		fmt.Fprintf(&b, "  %-10s exists=%d hash=%s\n", item.StoreID, item.ExistsFlag, hash)
	}

	alert := Alert{
		TicketID:   ticket.ID,
		EntityType: string(ticket.EntityType),
		EntityID:   ticket.EntityID,
		Subject:    subject,
	}
	if f.AdminURLBase != "" {
		alert.Link = strings.TrimRight(f.AdminURLBase, "/") + "/conflicts/" + ticket.ID
		fmt.Fprintf(&b, "\nDetails: %s\n", alert.Link)
	}
	alert.Body = b.String()
	return alert
}
