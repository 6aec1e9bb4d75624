// Package store defines the stores taking part in reconciliation and the
// row-level accessor each entity type exposes per store.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store identifies one of the independently writable relational backends.
type Store string

const (
	// MySQL is the MySQL store.
	MySQL Store = "MYSQL"
	// Postgres is the PostgreSQL store.
	Postgres Store = "PG"
	// SQLServer is the Microsoft SQL Server store.
	SQLServer Store = "SQLSERVER"
)

// ErrNotFound is returned by Accessor.GetByID when the row does not exist.
var ErrNotFound = errors.New("row not found")

// All returns every known store in a stable order.
func All() []Store {
	return []Store{MySQL, Postgres, SQLServer}
}

// Valid reports whether s is a known store.
func (s Store) Valid() bool {
	switch s {
	case MySQL, Postgres, SQLServer:
		return true
	}
	return false
}

// Parse converts a case-insensitive store name into a Store.
func Parse(name string) (Store, error) {
	s := Store(strings.ToUpper(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown store %q", name)
	}
	return s, nil
}

// Row is one entity instance. Its concrete type is fixed per table.
type Row any

// Filter restricts Count to rows whose columns equal the given values.
type Filter map[string]any

// Accessor reads and writes the rows of one entity type in one store.
type Accessor interface {
	// GetByID returns the row with the given id or ErrNotFound.
	GetByID(ctx context.Context, id string) (Row, error)
	// Insert creates row.
	Insert(ctx context.Context, row Row) error
	// UpdateByID overwrites the row with the same id.
	UpdateByID(ctx context.Context, row Row) error
	// DeleteByID removes the row. Deleting a missing row is not an error.
	DeleteByID(ctx context.Context, id string) error
	// ListAll returns every row of the table.
	ListAll(ctx context.Context) ([]Row, error)
	// Count returns the number of rows matching filter.
	Count(ctx context.Context, filter Filter) (int64, error)
}

// Column maps one table column onto a field of the row type.
type Column struct {
	Name string
	// Value returns the field value to write (nil for SQL NULL).
	Value func(Row) any
	// Target returns a scan destination pointing into the row.
	Target func(Row) any
}

// Table describes how the rows of one entity type are laid out.
// Columns[0] is the primary key.
type Table struct {
	Name    string
	Columns []Column
	New     func() Row
	ID      func(Row) string
	Clone   func(Row) Row
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Values returns the column values of row in declaration order.
func (t Table) Values(row Row) []any {
	values := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		values[i] = c.Value(row)
	}
	return values
}

// Targets returns scan destinations for row in declaration order.
func (t Table) Targets(row Row) []any {
	targets := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		targets[i] = c.Target(row)
	}
	return targets
}
