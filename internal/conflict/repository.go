package conflict

import (
	"context"
	"errors"
	"time"

	"github.com/ehving/noticesystem-sub000/internal/entity"
)

var (
	// ErrTicketNotFound is returned when no ticket matches the lookup.
	ErrTicketNotFound = errors.New("conflict ticket not found")
	// ErrDuplicateTicket is returned by Insert when the entity already has a ticket.
	ErrDuplicateTicket = errors.New("entity already has a conflict ticket")
)

// Filter selects tickets for List. Zero fields do not filter.
type Filter struct {
	Status       entity.TicketStatus
	EntityType   entity.Type
	ConflictType entity.ConflictType
	// From and To bound LastSeenAt, both inclusive.
	From *time.Time
	To   *time.Time
	// OpenOnly restricts the result to OPEN tickets and overrides Status.
	OpenOnly bool
	Limit    int
	Offset   int
}

// Aggregations counts every ticket matching a Filter, ignoring paging.
type Aggregations struct {
	ByStatus       map[string]int64 `json:"byStatus"`
	ByConflictType map[string]int64 `json:"byConflictType"`
	ByEntityType   map[string]int64 `json:"byEntityType"`
}

// Page is one page of tickets, newest LastSeenAt first.
type Page struct {
	Items        []*entity.ConflictTicket `json:"items"`
	Total        int64                    `json:"total"`
	Aggregations Aggregations             `json:"aggregations"`
}

// Repository persists tickets and their snapshot items.
//
//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks -source=repository.go Repository
type Repository interface {
	Get(ctx context.Context, id string) (*entity.ConflictTicket, error)
	// GetByEntity returns the single ticket of (t, entityID) or ErrTicketNotFound.
	GetByEntity(ctx context.Context, t entity.Type, entityID string) (*entity.ConflictTicket, error)
	Insert(ctx context.Context, ticket *entity.ConflictTicket) error
	Update(ctx context.Context, ticket *entity.ConflictTicket) error
	Items(ctx context.Context, ticketID string) ([]*entity.SnapshotItem, error)
	// ReplaceItems swaps the ticket's items for items and returns the ids
	// of the removed rows.
	ReplaceItems(ctx context.Context, ticketID string, items []*entity.SnapshotItem) ([]string, error)
	// ListOpen returns OPEN tickets, least recently checked first.
	ListOpen(ctx context.Context, limit int) ([]*entity.ConflictTicket, error)
	// ListNotifiable returns OPEN tickets never notified or last notified
	// at or before cutoff, oldest notification first.
	ListNotifiable(ctx context.Context, cutoff time.Time, limit int) ([]*entity.ConflictTicket, error)
	List(ctx context.Context, f Filter) (Page, error)
}

func (f Filter) status() entity.TicketStatus {
	if f.OpenOnly {
		return entity.TicketOpen
	}
	return f.Status
}

func newAggregations() Aggregations {
	return Aggregations{
		ByStatus:       map[string]int64{},
		ByConflictType: map[string]int64{},
		ByEntityType:   map[string]int64{},
	}
}
