// Package fingerprint builds the canonical business-field strings that are
// hashed to compare one entity instance across stores.
//
// Every value is normalized before it is written: text is trimmed and its
// line endings unified to "\n", missing values become the empty string and
// date-times are converted to UTC, truncated to whole seconds and rendered with TimeLayout.
// Two rows with the same business content therefore produce the same
// canonical string on every database engine.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the single rendering used for date-time fields.
const TimeLayout = "2006-01-02 15:04:05"

const (
	fieldSeparator = "|"
	keyValueSep    = "="
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Builder accumulates name=value pairs in call order.
type Builder struct {
	parts []string
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Field appends a non-nullable text field.
func (b *Builder) Field(name, value string) *Builder {
	return b.add(name, NormText(value))
}

// Text appends a nullable text field.
func (b *Builder) Text(name string, value *string) *Builder {
	if value == nil {
		return b.add(name, "")
	}
	return b.add(name, NormText(*value))
}

// Int appends a nullable integer field.
func (b *Builder) Int(name string, value *int) *Builder {
	if value == nil {
		return b.add(name, "")
	}
	return b.add(name, strconv.Itoa(*value))
}

// Int64 appends a nullable 64-bit integer field.
func (b *Builder) Int64(name string, value *int64) *Builder {
	if value == nil {
		return b.add(name, "")
	}
	return b.add(name, strconv.FormatInt(*value, 10))
}

// Time appends a nullable date-time field.
func (b *Builder) Time(name string, value *time.Time) *Builder {
	return b.add(name, NormTime(value))
}

// Canonical returns the joined canonical form.
func (b *Builder) Canonical() string {
	return strings.Join(b.parts, fieldSeparator)
}

func (b *Builder) add(name, value string) *Builder {
	b.parts = append(b.parts, name+keyValueSep+value)
	return b
}

// NormText trims s and unifies its line endings.
func NormText(s string) string {
	return lineEndings.Replace(strings.TrimSpace(s))
}

// NormTime converts t to UTC, truncates it to second precision and renders
// it with TimeLayout. A nil time renders as the empty string.
func NormTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Truncate(time.Second).Format(TimeLayout)
}

// Hash returns the hex SHA-256 of the versioned canonical string.
// The version prefix keeps hashes from different field lists apart.
func Hash(version int, canonical string) string {
	sum := sha256.Sum256([]byte("v" + strconv.Itoa(version) + fieldSeparator + canonical))
	return hex.EncodeToString(sum[:])
}
