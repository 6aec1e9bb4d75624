package applier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/store/memstore"
)

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*entity.Registry, *memstore.Backend) {
	t.Helper()
	backend := memstore.NewBackend()
	registry, err := entity.Build(store.All(), entity.Definitions(), backend.Open)
	require.NoError(t, err)
	return registry, backend
}

func getDept(t *testing.T, backend *memstore.Backend, s store.Store, id string) *entity.Dept {
	t.Helper()
	row, err := backend.Table(s, "dept").GetByID(context.Background(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	require.NoError(t, err)
	return row.(*entity.Dept)
}

func TestApplyOne_InsertsFreshRow(t *testing.T) {
	t.Parallel()

	registry, backend := setup(t)
	backend.Table(store.MySQL, "dept").Put(&entity.Dept{ID: "d-1", Name: "Sales", SortOrder: ptr(1)})

	a := New(store.Postgres, registry)
	require.NoError(t, a.ApplyOne(context.Background(), entity.TypeDept, entity.ActionCreate, "d-1", store.MySQL))

	got := getDept(t, backend, store.Postgres, "d-1")
	require.NotNil(t, got)
	assert.Equal(t, "Sales", got.Name)
	assert.Equal(t, 1, *got.SortOrder)
	assert.Nil(t, getDept(t, backend, store.SQLServer, "d-1"), "only the target store is written")
}

func TestApplyOne_UpdatesExistingRow(t *testing.T) {
	t.Parallel()

	registry, backend := setup(t)
	backend.Table(store.MySQL, "dept").Put(&entity.Dept{ID: "d-1", Name: "New name"})
	backend.Table(store.SQLServer, "dept").Put(&entity.Dept{ID: "d-1", Name: "Old name", Status: ptr(1)})

	a := New(store.SQLServer, registry)
	require.NoError(t, a.ApplyOne(context.Background(), entity.TypeDept, entity.ActionUpdate, "d-1", store.MySQL))

	got := getDept(t, backend, store.SQLServer, "d-1")
	assert.Equal(t, "New name", got.Name)
	assert.Nil(t, got.Status, "every business field is copied, including empty ones")
}

func TestApplyOne_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	registry, backend := setup(t)
	backend.Table(store.Postgres, "dept").Put(&entity.Dept{ID: "d-1", Name: "Sales"})
	a := New(store.Postgres, registry)
	ctx := context.Background()

	require.NoError(t, a.ApplyOne(ctx, entity.TypeDept, entity.ActionDelete, "d-1", store.MySQL))
	assert.Nil(t, getDept(t, backend, store.Postgres, "d-1"))

	require.NoError(t, a.ApplyOne(ctx, entity.TypeDept, entity.ActionDelete, "d-1", store.MySQL),
		"deleting an absent row succeeds")
}

func TestApplyOne_MissingSourceDeletesTarget(t *testing.T) {
	t.Parallel()

	registry, backend := setup(t)
	backend.Table(store.Postgres, "dept").Put(&entity.Dept{ID: "d-1", Name: "Ghost"})

	a := New(store.Postgres, registry)
	require.NoError(t, a.ApplyOne(context.Background(), entity.TypeDept, entity.ActionUpdate, "d-1", store.MySQL))
	assert.Nil(t, getDept(t, backend, store.Postgres, "d-1"))
}

// racingAccessor simulates a concurrent apply inserting the row first.
type racingAccessor struct {
	*memstore.Accessor
}

func (r racingAccessor) Insert(ctx context.Context, row store.Row) error {
	_ = r.Accessor.Insert(ctx, &entity.Dept{ID: "d-1", Name: "concurrent"})
	return r.Accessor.Insert(ctx, row)
}

func TestApplyOne_DuplicateInsertFallsBackToUpdate(t *testing.T) {
	t.Parallel()

	var dept *entity.Definition
	for _, def := range entity.Definitions() {
		if def.Type == entity.TypeDept {
			dept = def
		}
	}
	source := memstore.New(dept.Table)
	source.Put(&entity.Dept{ID: "d-1", Name: "Sales"})
	target := memstore.New(dept.Table)

	registry := entity.NewRegistry([]store.Store{store.MySQL, store.Postgres})
	require.NoError(t, registry.Register(dept, map[store.Store]store.Accessor{
		store.MySQL:    source,
		store.Postgres: racingAccessor{Accessor: target},
	}))

	a := New(store.Postgres, registry)
	require.NoError(t, a.ApplyOne(context.Background(), entity.TypeDept, entity.ActionCreate, "d-1", store.MySQL))

	row, err := target.GetByID(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, "Sales", row.(*entity.Dept).Name)
}

func TestApplyOne_InvalidInput(t *testing.T) {
	t.Parallel()

	registry, _ := setup(t)
	a := New(store.Postgres, registry)
	ctx := context.Background()

	tests := []struct {
		name   string
		typ    entity.Type
		action entity.Action
		id     string
		source store.Store
	}{
		{name: "blank id", typ: entity.TypeDept, action: entity.ActionUpdate, id: " ", source: store.MySQL},
		{name: "no action", typ: entity.TypeDept, id: "d-1", source: store.MySQL},
		{name: "no source", typ: entity.TypeDept, action: entity.ActionUpdate, id: "d-1"},
		{name: "source is target", typ: entity.TypeDept, action: entity.ActionUpdate, id: "d-1", source: store.Postgres},
		{name: "bad action", typ: entity.TypeDept, action: "MERGE", id: "d-1", source: store.MySQL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := a.ApplyOne(ctx, tt.typ, tt.action, tt.id, tt.source)
			require.ErrorIs(t, err, ErrInvalidChange)
		})
	}

	err := a.ApplyOne(ctx, entity.Type("WIDGET"), entity.ActionUpdate, "w-1", store.MySQL)
	require.ErrorIs(t, err, entity.ErrUnknownType)
}

func TestApplyOne_SourceReadFailure(t *testing.T) {
	t.Parallel()

	registry, backend := setup(t)
	boom := errors.New("connection refused")
	backend.Table(store.MySQL, "dept").SetFault(func(memstore.Op, string) error { return boom })

	a := New(store.Postgres, registry)
	err := a.ApplyOne(context.Background(), entity.TypeDept, entity.ActionUpdate, "d-1", store.MySQL)
	require.ErrorIs(t, err, boom)
}
