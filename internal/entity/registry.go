// Package entity holds the entity model of the notice system and the
// Registry that binds every entity type to its per-store accessors.
package entity

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ehving/noticesystem-sub000/internal/store"
)

var (
	// ErrUnknownType is returned for entity types that are not registered.
	ErrUnknownType = errors.New("entity type not registered")
	// ErrUnknownStore is returned for stores that take no part in sync.
	ErrUnknownStore = errors.New("store not registered")
)

// AccessorFactory opens the accessor for one table in one store.
type AccessorFactory func(s store.Store, table store.Table) (store.Accessor, error)

// Registry maps each entity type to its Definition and to one Accessor per
// sync-enabled store. It is immutable once built.
type Registry struct {
	stores    []store.Store
	order     []Type
	defs      map[Type]*Definition
	accessors map[Type]map[store.Store]store.Accessor
}

// NewRegistry creates an empty registry over the given sync-enabled stores.
func NewRegistry(stores []store.Store) *Registry {
	return &Registry{
		stores:    slices.Clone(stores),
		defs:      make(map[Type]*Definition),
		accessors: make(map[Type]map[store.Store]store.Accessor),
	}
}

// Build registers every definition, opening its accessors through factory.
func Build(stores []store.Store, defs []*Definition, factory AccessorFactory) (*Registry, error) {
	r := NewRegistry(stores)
	for _, def := range defs {
		accessors := make(map[store.Store]store.Accessor, len(stores))
		for _, s := range stores {
			a, err := factory(s, def.Table)
			if err != nil {
				return nil, fmt.Errorf("failed to open %s accessor for %s: %w", def.Type, s, err)
			}
			accessors[s] = a
		}
		if err := r.Register(def, accessors); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds def with one accessor per registered store.
func (r *Registry) Register(def *Definition, accessors map[store.Store]store.Accessor) error {
	if def == nil {
		return fmt.Errorf("definition is required")
	}
	if _, exists := r.defs[def.Type]; exists {
		return fmt.Errorf("entity type %s already registered", def.Type)
	}
	for _, s := range r.stores {
		if accessors[s] == nil {
			return fmt.Errorf("entity type %s has no accessor for store %s", def.Type, s)
		}
	}
	r.defs[def.Type] = def
	r.accessors[def.Type] = accessors
	r.order = append(r.order, def.Type)
	return nil
}

// Stores returns the sync-enabled stores.
func (r *Registry) Stores() []store.Store {
	return slices.Clone(r.stores)
}

// HasStore reports whether s takes part in sync.
func (r *Registry) HasStore(s store.Store) bool {
	return slices.Contains(r.stores, s)
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []Type {
	return slices.Clone(r.order)
}

// BusinessTypes returns the registered non-system types.
func (r *Registry) BusinessTypes() []Type {
	var types []Type
	for _, t := range r.order {
		if !t.IsSystem() {
			types = append(types, t)
		}
	}
	return types
}

// Definition returns the definition of t.
func (r *Registry) Definition(t Type) (*Definition, error) {
	def, ok := r.defs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return def, nil
}

// Accessor returns the accessor of t in store s.
func (r *Registry) Accessor(t Type, s store.Store) (store.Accessor, error) {
	byStore, ok := r.accessors[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	a, ok := byStore[s]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, s)
	}
	return a, nil
}
