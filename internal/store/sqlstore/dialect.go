package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ehving/noticesystem-sub000/internal/store"
)

// Dialect captures the identifier quoting and placeholder syntax of one engine.
type Dialect struct {
	Name        string
	DriverName  string
	quote       func(string) string
	placeholder func(n int) string
}

// Quote returns ident quoted for the dialect.
func (d Dialect) Quote(ident string) string {
	return d.quote(ident)
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

var (
	// MySQL uses backtick identifiers and ? markers. SQLite accepts the same syntax.
	MySQL = Dialect{
		Name:        "mysql",
		DriverName:  "mysql",
		quote:       func(s string) string { return "`" + s + "`" },
		placeholder: func(int) string { return "?" },
	}
	// Postgres uses double-quoted identifiers and $n markers.
	Postgres = Dialect{
		Name:        "postgres",
		DriverName:  "pgx",
		quote:       func(s string) string { return `"` + s + `"` },
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
	// SQLServer uses bracketed identifiers and @pN markers.
	SQLServer = Dialect{
		Name:        "sqlserver",
		DriverName:  "sqlserver",
		quote:       func(s string) string { return "[" + s + "]" },
		placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
	}
)

// DialectFor returns the dialect spoken by s.
func DialectFor(s store.Store) (Dialect, error) {
	switch s {
	case store.MySQL:
		return MySQL, nil
	case store.Postgres:
		return Postgres, nil
	case store.SQLServer:
		return SQLServer, nil
	}
	return Dialect{}, fmt.Errorf("no dialect for store %q", s)
}

type queries struct {
	get    string
	insert string
	update string
	delete string
	list   string
}

func buildQueries(d Dialect, t store.Table) queries {
	names := t.ColumnNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.Quote(n)
	}
	table := d.Quote(t.Name)
	id := quoted[0]
	cols := strings.Join(quoted, ", ")

	marks := make([]string, len(names))
	for i := range names {
		marks[i] = d.Placeholder(i + 1)
	}

	// UPDATE binds the non-key columns first and the key last.
	sets := make([]string, 0, len(names)-1)
	for i, q := range quoted[1:] {
		sets = append(sets, fmt.Sprintf("%s = %s", q, d.Placeholder(i+1)))
	}

	return queries{
		get:    fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", cols, table, id, d.Placeholder(1)),
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, cols, strings.Join(marks, ", ")),
		update: fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", table, strings.Join(sets, ", "), id, d.Placeholder(len(names))),
		delete: fmt.Sprintf("DELETE FROM %s WHERE %s = %s", table, id, d.Placeholder(1)),
		list:   fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", cols, table, id),
	}
}
