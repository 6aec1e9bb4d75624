// Package sqlerr classifies database errors from the three store drivers
// into retryable and non-retryable failures.
package sqlerr

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
)

// Class is the retry classification of an error.
type Class int

const (
	// Unknown errors are treated as retryable by callers.
	Unknown Class = iota
	// Transient errors come from infrastructure: timeouts, lost
	// connections, deadlocks, lock waits.
	Transient
	// Structural errors will fail the same way on every retry: constraint
	// violations, type or grammar mismatches, unknown columns.
	Structural
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Structural:
		return "structural"
	default:
		return "unknown"
	}
}

var transientKeywords = []string{
	"timeout",
	"timed out",
	"connection",
	"could not open connection",
	"deadlock",
	"lock wait",
	"temporarily",
	"too many connections",
	"server is down",
	"broken pipe",
}

var structuralKeywords = []string{
	"foreign key",
	"violates foreign key",
	"not-null",
	"cannot be null",
	"data too long",
	"value too long",
	"bad sql grammar",
	"syntax error",
	"type mismatch",
	"cannot cast",
	"unknown column",
	"invalid column",
	"no such column",
}

var duplicateKeywords = []string{
	"duplicate key",
	"duplicate entry",
	"unique constraint",
}

// Classify returns the retry class of err. Typed driver errors are
// inspected first; the message is matched against keyword lists otherwise.
func Classify(err error) Class {
	if err == nil {
		return Unknown
	}
	if c := classifyTyped(err); c != Unknown {
		return c
	}
	msg := strings.ToLower(err.Error())
	// Transient keywords take precedence.
	for _, k := range transientKeywords {
		if strings.Contains(msg, k) {
			return Transient
		}
	}
	for _, k := range structuralKeywords {
		if strings.Contains(msg, k) {
			return Structural
		}
	}
	return Unknown
}

// IsDuplicateKey reports whether err is a unique or primary key violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == 2627 || msErr.Number == 2601
	}
	msg := strings.ToLower(err.Error())
	for _, k := range duplicateKeywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

func classifyTyped(err error) Class {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPostgres(pgErr.Code)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return classifyMySQL(myErr.Number)
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return classifySQLServer(msErr.Number)
	}
	return Unknown
}

// classifyPostgres maps SQLSTATE codes.
func classifyPostgres(code string) Class {
	switch code {
	case "40001", "40P01", "55P03", "53300", "57P01", "57P03", "57014":
		return Transient
	}
	if len(code) < 2 {
		return Unknown
	}
	switch code[:2] {
	case "08":
		return Transient
	case "22", "23", "42":
		return Structural
	}
	return Unknown
}

func classifyMySQL(number uint16) Class {
	switch number {
	case 1040, 1053, 1205, 1213, 2002, 2003, 2006, 2013:
		return Transient
	case 1048, 1054, 1062, 1064, 1146, 1264, 1292, 1366, 1406, 1451, 1452:
		return Structural
	}
	return Unknown
}

func classifySQLServer(number int32) Class {
	switch number {
	case -2, 233, 1205, 1222, 10053, 10054, 40613:
		return Transient
	case 102, 207, 208, 245, 515, 547, 2601, 2627, 2628, 8152:
		return Structural
	}
	return Unknown
}
