// Package sqlstore implements store.Accessor over database/sql for the
// MySQL, PostgreSQL and SQL Server stores.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/ehving/noticesystem-sub000/internal/store"
)

// Accessor reads and writes one table of one store.
type Accessor struct {
	db      *sql.DB
	dialect Dialect
	table   store.Table
	q       queries
}

var _ store.Accessor = (*Accessor)(nil)

// NewAccessor creates an accessor for table on db.
func NewAccessor(db *sql.DB, dialect Dialect, table store.Table) *Accessor {
	return &Accessor{
		db:      db,
		dialect: dialect,
		table:   table,
		q:       buildQueries(dialect, table),
	}
}

// GetByID implements store.Accessor.
func (a *Accessor) GetByID(ctx context.Context, id string) (store.Row, error) {
	row := a.table.New()
	err := a.db.QueryRowContext(ctx, a.q.get, id).Scan(a.table.Targets(row)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", a.table.Name, id, err)
	}
	return row, nil
}

// Insert implements store.Accessor.
func (a *Accessor) Insert(ctx context.Context, row store.Row) error {
	if _, err := a.db.ExecContext(ctx, a.q.insert, a.table.Values(row)...); err != nil {
		return fmt.Errorf("failed to insert %s %s: %w", a.table.Name, a.table.ID(row), err)
	}
	return nil
}

// UpdateByID implements store.Accessor. It returns store.ErrNotFound when
// no row carries the id.
func (a *Accessor) UpdateByID(ctx context.Context, row store.Row) error {
	values := a.table.Values(row)
	args := append(slices.Clone(values[1:]), values[0])
	res, err := a.db.ExecContext(ctx, a.q.update, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", a.table.Name, a.table.ID(row), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteByID implements store.Accessor.
func (a *Accessor) DeleteByID(ctx context.Context, id string) error {
	if _, err := a.db.ExecContext(ctx, a.q.delete, id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", a.table.Name, id, err)
	}
	return nil
}

// ListAll implements store.Accessor.
func (a *Accessor) ListAll(ctx context.Context) ([]store.Row, error) {
	rows, err := a.db.QueryContext(ctx, a.q.list)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", a.table.Name, err)
	}
	defer rows.Close()

	var result []store.Row
	for rows.Next() {
		row := a.table.New()
		if err := rows.Scan(a.table.Targets(row)...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", a.table.Name, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", a.table.Name, err)
	}
	return result, nil
}

// Count implements store.Accessor. Filter keys must be column names.
func (a *Accessor) Count(ctx context.Context, filter store.Filter) (int64, error) {
	query, args, err := a.countQuery(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := a.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", a.table.Name, err)
	}
	return n, nil
}

func (a *Accessor) countQuery(filter store.Filter) (string, []any, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", a.dialect.Quote(a.table.Name))
	if len(filter) == 0 {
		return query, nil, nil
	}

	known := a.table.ColumnNames()
	columns := make([]string, 0, len(filter))
	for c := range filter {
		if !slices.Contains(known, c) {
			return "", nil, fmt.Errorf("unknown column %q for table %s", c, a.table.Name)
		}
		columns = append(columns, c)
	}
	sort.Strings(columns)

	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		conds[i] = fmt.Sprintf("%s = %s", a.dialect.Quote(c), a.dialect.Placeholder(i+1))
		args[i] = filter[c]
	}
	return query + " WHERE " + strings.Join(conds, " AND "), args, nil
}
