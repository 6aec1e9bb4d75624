package conflict

import (
	"context"
	"encoding/json"

	"github.com/ehving/noticesystem-sub000/internal/entity"
)

// Detail is one ticket with its snapshot items and the current row of
// every store that has one.
type Detail struct {
	Ticket *entity.ConflictTicket     `json:"ticket"`
	Items  []*entity.SnapshotItem     `json:"items"`
	Rows   map[string]json.RawMessage `json:"rows"`
	// RowsError is set when the stores could not be read.
	RowsError string `json:"rowsError,omitempty"`
}

// List returns one page of tickets with aggregations over the whole filter.
func (m *Manager) List(ctx context.Context, f Filter) (Page, error) {
	return m.repo.List(ctx, f)
}

// Get returns one ticket.
func (m *Manager) Get(ctx context.Context, id string) (*entity.ConflictTicket, error) {
	return m.repo.Get(ctx, id)
}

// Detail returns the ticket, its items and the live rows. A store read
// failure is reported in RowsError rather than failing the call.
func (m *Manager) Detail(ctx context.Context, id string) (*Detail, error) {
	ticket, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := m.repo.Items(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{Ticket: ticket, Items: items, Rows: map[string]json.RawMessage{}}
	snap, err := m.reader.Read(ctx, ticket.EntityType, ticket.EntityID)
	if err != nil {
		d.RowsError = err.Error()
		return d, nil
	}
	for s, row := range snap.Rows {
		raw, err := json.Marshal(row)
		if err != nil {
			d.RowsError = err.Error()
			continue
		}
		d.Rows[string(s)] = raw
	}
	return d, nil
}
