// Package memstore provides in-memory store accessors. They back the
// "memory" storage mode and the tests of the sync and conflict packages.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ehving/noticesystem-sub000/internal/store"
)

// ErrDuplicateKey is returned when inserting a row whose id already exists.
var ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")

// Op names an accessor operation for fault injection.
type Op string

// Accessor operations.
const (
	OpGet    Op = "get"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpList   Op = "list"
	OpCount  Op = "count"
)

// FaultFunc decides whether an operation should fail. A nil error lets it through.
type FaultFunc func(op Op, id string) error

// Accessor is a map-backed store.Accessor for one table.
type Accessor struct {
	mu    sync.RWMutex
	table store.Table
	rows  map[string]store.Row
	fault FaultFunc
}

var _ store.Accessor = (*Accessor)(nil)

// New creates an empty accessor for table.
func New(table store.Table) *Accessor {
	return &Accessor{
		table: table,
		rows:  make(map[string]store.Row),
	}
}

// SetFault installs f; nil removes fault injection.
func (a *Accessor) SetFault(f FaultFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fault = f
}

// Put stores a copy of row without fault injection.
func (a *Accessor) Put(row store.Row) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows[a.table.ID(row)] = a.table.Clone(row)
}

// Len returns the number of stored rows.
func (a *Accessor) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.rows)
}

func (a *Accessor) check(op Op, id string) error {
	if a.fault == nil {
		return nil
	}
	return a.fault(op, id)
}

// GetByID implements store.Accessor.
func (a *Accessor) GetByID(_ context.Context, id string) (store.Row, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.check(OpGet, id); err != nil {
		return nil, err
	}
	row, ok := a.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a.table.Clone(row), nil
}

// Insert implements store.Accessor.
func (a *Accessor) Insert(_ context.Context, row store.Row) error {
	id := a.table.ID(row)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(OpInsert, id); err != nil {
		return err
	}
	if _, exists := a.rows[id]; exists {
		return fmt.Errorf("%w: %s.id=%s", ErrDuplicateKey, a.table.Name, id)
	}
	a.rows[id] = a.table.Clone(row)
	return nil
}

// UpdateByID implements store.Accessor.
func (a *Accessor) UpdateByID(_ context.Context, row store.Row) error {
	id := a.table.ID(row)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(OpUpdate, id); err != nil {
		return err
	}
	if _, exists := a.rows[id]; !exists {
		return store.ErrNotFound
	}
	a.rows[id] = a.table.Clone(row)
	return nil
}

// DeleteByID implements store.Accessor.
func (a *Accessor) DeleteByID(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.check(OpDelete, id); err != nil {
		return err
	}
	delete(a.rows, id)
	return nil
}

// ListAll implements store.Accessor. Rows are ordered by id.
func (a *Accessor) ListAll(_ context.Context) ([]store.Row, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.check(OpList, ""); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(a.rows))
	for id := range a.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]store.Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, a.table.Clone(a.rows[id]))
	}
	return rows, nil
}

// Count implements store.Accessor.
func (a *Accessor) Count(_ context.Context, filter store.Filter) (int64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.check(OpCount, ""); err != nil {
		return 0, err
	}
	names := a.table.ColumnNames()
	var n int64
	for _, row := range a.rows {
		if matches(names, a.table.Values(row), filter) {
			n++
		}
	}
	return n, nil
}

func matches(names []string, values []any, filter store.Filter) bool {
	for column, want := range filter {
		idx := -1
		for i, name := range names {
			if name == column {
				idx = i
				break
			}
		}
		if idx < 0 || values[idx] != want {
			return false
		}
	}
	return true
}

// Backend owns the accessors of every (store, table) pair.
type Backend struct {
	mu     sync.Mutex
	tables map[store.Store]map[string]*Accessor
}

// NewBackend creates an empty backend.
func NewBackend() *Backend {
	return &Backend{tables: make(map[store.Store]map[string]*Accessor)}
}

// Open returns the accessor for table in s, creating it on first use.
// Its signature matches entity.AccessorFactory.
func (b *Backend) Open(s store.Store, table store.Table) (store.Accessor, error) {
	return b.accessor(s, table), nil
}

// Table returns the accessor previously opened for the named table in s, or nil.
func (b *Backend) Table(s store.Store, name string) *Accessor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tables[s][name]
}

func (b *Backend) accessor(s store.Store, table store.Table) *Accessor {
	b.mu.Lock()
	defer b.mu.Unlock()
	byName, ok := b.tables[s]
	if !ok {
		byName = make(map[string]*Accessor)
		b.tables[s] = byName
	}
	a, ok := byName[table.Name]
	if !ok {
		a = New(table)
		byName[table.Name] = a
	}
	return a
}
