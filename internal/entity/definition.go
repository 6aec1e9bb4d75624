package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/ehving/noticesystem-sub000/internal/fingerprint"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

// ErrRowType is returned when a row of the wrong Go type is handed to a Definition.
var ErrRowType = errors.New("unexpected row type")

// Definition binds an entity type to its table layout, explicit field copy
// and business fingerprint.
type Definition struct {
	Type Type
	// FingerprintVersion changes whenever the fingerprint field list changes.
	FingerprintVersion int
	Table              store.Table

	fingerprint func(store.Row) (string, error)
	copyFields  func(dst, src store.Row, fresh bool) error
}

// New returns an empty row of the definition's Go type.
func (d *Definition) New() store.Row {
	return d.Table.New()
}

// IDOf returns the primary key of row.
func (d *Definition) IDOf(row store.Row) string {
	return d.Table.ID(row)
}

// Fingerprint returns the canonical business-field string of row.
func (d *Definition) Fingerprint(row store.Row) (string, error) {
	return d.fingerprint(row)
}

// Hash returns the versioned SHA-256 of row's fingerprint.
func (d *Definition) Hash(row store.Row) (string, error) {
	canonical, err := d.fingerprint(row)
	if err != nil {
		return "", err
	}
	return fingerprint.Hash(d.FingerprintVersion, canonical), nil
}

// Copy copies every business field of src onto dst. A fresh dst also takes
// src's id and create time; an existing dst keeps its own create time.
func (d *Definition) Copy(dst, src store.Row, fresh bool) error {
	return d.copyFields(dst, src, fresh)
}

type field[T any] struct {
	name   string
	value  func(*T) any
	target func(*T) any
}

type binding[T any] struct {
	typ     Type
	version int
	table   string
	id      func(*T) *string
	audit   func(*T) *Audit
	fields  []field[T]
	copy    func(dst, src *T)
	print   func(*T, *fingerprint.Builder)
}

func define[T any](b binding[T]) *Definition {
	cast := func(row store.Row) (*T, error) {
		t, ok := row.(*T)
		if !ok || t == nil {
			return nil, fmt.Errorf("%w: %s expects %T, got %T", ErrRowType, b.typ, (*T)(nil), row)
		}
		return t, nil
	}
	// Scan targets and values are only ever built for rows created by New.
	must := func(row store.Row) *T {
		return row.(*T)
	}

	columns := make([]store.Column, 0, len(b.fields)+3)
	columns = append(columns, store.Column{
		Name:   "id",
		Value:  func(r store.Row) any { return *b.id(must(r)) },
		Target: func(r store.Row) any { return b.id(must(r)) },
	})
	for _, f := range b.fields {
		columns = append(columns, store.Column{
			Name:   f.name,
			Value:  func(r store.Row) any { return f.value(must(r)) },
			Target: func(r store.Row) any { return f.target(must(r)) },
		})
	}
	columns = append(columns,
		store.Column{
			Name:   "create_time",
			Value:  func(r store.Row) any { return nullableUTC(b.audit(must(r)).CreateTime) },
			Target: func(r store.Row) any { return &b.audit(must(r)).CreateTime },
		},
		store.Column{
			Name:   "update_time",
			Value:  func(r store.Row) any { return nullableUTC(b.audit(must(r)).UpdateTime) },
			Target: func(r store.Row) any { return &b.audit(must(r)).UpdateTime },
		},
	)

	return &Definition{
		Type:               b.typ,
		FingerprintVersion: b.version,
		Table: store.Table{
			Name:    b.table,
			Columns: columns,
			New:     func() store.Row { return new(T) },
			ID: func(r store.Row) string {
				t, err := cast(r)
				if err != nil {
					return ""
				}
				return *b.id(t)
			},
			Clone: func(r store.Row) store.Row {
				c := *must(r)
				return &c
			},
		},
		fingerprint: func(r store.Row) (string, error) {
			t, err := cast(r)
			if err != nil {
				return "", err
			}
			fb := fingerprint.New()
			b.print(t, fb)
			return fb.Canonical(), nil
		},
		copyFields: func(dst, src store.Row, fresh bool) error {
			d, err := cast(dst)
			if err != nil {
				return err
			}
			s, err := cast(src)
			if err != nil {
				return err
			}
			if fresh {
				*b.id(d) = *b.id(s)
				b.audit(d).CreateTime = b.audit(s).CreateTime
			}
			b.copy(d, s)
			b.audit(d).UpdateTime = b.audit(s).UpdateTime
			return nil
		},
	}
}

func nullable[V any](p *V) any {
	if p == nil {
		return nil
	}
	return *p
}

// nullableUTC writes date-times as UTC so zone-less columns such as
// SQL Server DATETIME2 store the instant.
func nullableUTC(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func nullableText[S ~string](p *S) any {
	if p == nil {
		return nil
	}
	return string(*p)
}
