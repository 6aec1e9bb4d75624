// Package applier applies one change from a source store's current state
// into a fixed target store.
package applier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/otel"
	"github.com/ehving/noticesystem-sub000/internal/sqlerr"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

// ErrInvalidChange is returned for changes missing their identifying fields.
var ErrInvalidChange = errors.New("invalid change")

// StoreApplier applies changes into one target store.
type StoreApplier interface {
	// Target returns the store this applier writes to.
	Target() store.Store
	// ApplyOne makes the target row of (t, id) match the source store.
	// It is idempotent.
	ApplyOne(ctx context.Context, t entity.Type, action entity.Action, id string, source store.Store) error
}

// Applier is the registry-backed StoreApplier. It never spans a transaction
// across stores: each store commits on its own.
type Applier struct {
	target   store.Store
	registry *entity.Registry
	tracer   trace.Tracer
}

var _ StoreApplier = (*Applier)(nil)

// Option configures an Applier.
type Option func(*Applier)

// WithTracer sets the tracer used for apply spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Applier) {
		a.tracer = tracer
	}
}

// New creates the applier for target.
func New(target store.Store, registry *entity.Registry, opts ...Option) *Applier {
	a := &Applier{target: target, registry: registry}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Target implements StoreApplier.
func (a *Applier) Target() store.Store {
	return a.target
}

// ApplyOne implements StoreApplier.
//
// DELETE removes the target row. CREATE and UPDATE copy the source row onto
// the target row, inserting or updating as needed; when the source row is
// gone the target row is removed too so no ghost row survives.
func (a *Applier) ApplyOne(ctx context.Context, t entity.Type, action entity.Action, id string, source store.Store) (err error) {
	ctx, span := otel.StartSpan(ctx, a.tracer, "applier.ApplyOne", trace.WithAttributes(
		otel.AttrEntityType.String(string(t)),
		otel.AttrEntityID.String(id),
		otel.AttrAction.String(string(action)),
		otel.AttrSourceStore.String(string(source)),
		otel.AttrTargetStore.String(string(a.target)),
	))
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	if t == "" || strings.TrimSpace(id) == "" || action == "" || source == "" {
		return fmt.Errorf("%w: type=%q id=%q action=%q source=%q", ErrInvalidChange, t, id, action, source)
	}
	if source == a.target {
		return fmt.Errorf("%w: source and target are both %s", ErrInvalidChange, source)
	}

	def, err := a.registry.Definition(t)
	if err != nil {
		return err
	}
	target, err := a.registry.Accessor(t, a.target)
	if err != nil {
		return err
	}

	switch action {
	case entity.ActionDelete:
		return target.DeleteByID(ctx, id)
	case entity.ActionCreate, entity.ActionUpdate:
	default:
		return fmt.Errorf("%w: unsupported action %q", ErrInvalidChange, action)
	}

	src, err := a.registry.Accessor(t, source)
	if err != nil {
		return err
	}
	srcRow, err := src.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return target.DeleteByID(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read source row: %w", err)
	}

	dstRow, err := target.GetByID(ctx, id)
	fresh := errors.Is(err, store.ErrNotFound)
	if err != nil && !fresh {
		return fmt.Errorf("failed to read target row: %w", err)
	}
	if fresh {
		dstRow = def.New()
	}
	if err := def.Copy(dstRow, srcRow, fresh); err != nil {
		return err
	}

	if !fresh {
		return target.UpdateByID(ctx, dstRow)
	}
	err = target.Insert(ctx, dstRow)
	if err != nil && sqlerr.IsDuplicateKey(err) {
		// A concurrent apply inserted the row first.
		return target.UpdateByID(ctx, dstRow)
	}
	return err
}
