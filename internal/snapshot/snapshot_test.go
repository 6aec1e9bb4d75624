package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/store/memstore"
)

func snap(exists map[store.Store]bool, hashes map[store.Store]string) Snapshot {
	return Snapshot{
		EntityType: entity.TypeUser,
		EntityID:   "u-1",
		Stores:     store.All(),
		Exists:     exists,
		Hashes:     hashes,
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	allSame := snap(
		map[store.Store]bool{store.MySQL: true, store.Postgres: true, store.SQLServer: true},
		map[store.Store]string{store.MySQL: "a", store.Postgres: "a", store.SQLServer: "a"},
	)
	oneMissing := snap(
		map[store.Store]bool{store.MySQL: true, store.Postgres: true, store.SQLServer: false},
		map[store.Store]string{store.MySQL: "a", store.Postgres: "a"},
	)
	differing := snap(
		map[store.Store]bool{store.MySQL: true, store.Postgres: true, store.SQLServer: true},
		map[store.Store]string{store.MySQL: "a", store.Postgres: "b", store.SQLServer: "a"},
	)
	allGone := snap(
		map[store.Store]bool{store.MySQL: false, store.Postgres: false, store.SQLServer: false},
		map[store.Store]string{},
	)

	tests := []struct {
		name      string
		action    entity.Action
		snapshot  Snapshot
		wantType  entity.ConflictType
		wantFound bool
	}{
		{name: "update with one store missing", action: entity.ActionUpdate, snapshot: oneMissing, wantType: entity.ConflictMissing, wantFound: true},
		{name: "update with differing hashes", action: entity.ActionUpdate, snapshot: differing, wantType: entity.ConflictMismatch, wantFound: true},
		{name: "update all consistent", action: entity.ActionUpdate, snapshot: allSame},
		{name: "create with one store missing", action: entity.ActionCreate, snapshot: oneMissing, wantType: entity.ConflictMissing, wantFound: true},
		{name: "create with all missing", action: entity.ActionCreate, snapshot: allGone, wantType: entity.ConflictMissing, wantFound: true},
		{name: "delete fully propagated", action: entity.ActionDelete, snapshot: allGone},
		{name: "delete left a row behind", action: entity.ActionDelete, snapshot: oneMissing, wantType: entity.ConflictMissing, wantFound: true},
		{name: "delete where everything still exists", action: entity.ActionDelete, snapshot: allSame, wantType: entity.ConflictMissing, wantFound: true},
		{name: "empty snapshot", action: entity.ActionUpdate, snapshot: Snapshot{}},
		{name: "empty snapshot delete", action: entity.ActionDelete, snapshot: Snapshot{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, found := Classify(tt.action, tt.snapshot)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantType, got)
		})
	}
}

func TestSnapshotFlags(t *testing.T) {
	t.Parallel()

	s := snap(
		map[store.Store]bool{store.MySQL: true, store.Postgres: true, store.SQLServer: false},
		map[store.Store]string{store.MySQL: "a", store.Postgres: "b"},
	)
	assert.True(t, s.AnyMissing())
	assert.False(t, s.AllExist())
	assert.False(t, s.AllMissing())
	assert.False(t, s.Mismatch(), "mismatch requires every store to have the row")

	assert.True(t, Snapshot{}.Empty())
	assert.False(t, Snapshot{}.AllExist())
}

func newRegistry(t *testing.T) (*entity.Registry, *memstore.Backend) {
	t.Helper()
	backend := memstore.NewBackend()
	r, err := entity.Build(store.All(), entity.Definitions(), backend.Open)
	require.NoError(t, err)
	return r, backend
}

func TestReader_Read(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry, backend := newRegistry(t)
	reader := NewReader(registry)

	backend.Table(store.MySQL, "role").Put(&entity.Role{ID: "r-1", Name: "admin"})
	backend.Table(store.Postgres, "role").Put(&entity.Role{ID: "r-1", Name: "admin "})

	s, err := reader.Read(ctx, entity.TypeRole, "r-1")
	require.NoError(t, err)
	assert.True(t, s.Exists[store.MySQL])
	assert.True(t, s.Exists[store.Postgres])
	assert.False(t, s.Exists[store.SQLServer])
	assert.Equal(t, s.Hashes[store.MySQL], s.Hashes[store.Postgres], "trailing whitespace is normalized")
	assert.NotContains(t, s.Hashes, store.SQLServer)
	assert.Equal(t, 1, s.FingerprintVersion)

	ct, found := Classify(entity.ActionUpdate, s)
	assert.True(t, found)
	assert.Equal(t, entity.ConflictMissing, ct)

	backend.Table(store.SQLServer, "role").Put(&entity.Role{ID: "r-1", Name: "Admin"})
	s, err = reader.Read(ctx, entity.TypeRole, "r-1")
	require.NoError(t, err)
	ct, found = Classify(entity.ActionUpdate, s)
	assert.True(t, found)
	assert.Equal(t, entity.ConflictMismatch, ct)
}

func TestReader_BlankID(t *testing.T) {
	t.Parallel()

	registry, _ := newRegistry(t)
	s, err := NewReader(registry).Read(context.Background(), entity.TypeRole, "  ")
	require.NoError(t, err)
	assert.True(t, s.Empty())
	_, found := Classify(entity.ActionUpdate, s)
	assert.False(t, found)
}

func TestReader_ReadErrorPropagates(t *testing.T) {
	t.Parallel()

	registry, backend := newRegistry(t)
	backend.Table(store.MySQL, "role").Put(&entity.Role{ID: "r-1", Name: "admin"})
	boom := errors.New("connection refused")
	backend.Table(store.SQLServer, "role").SetFault(func(memstore.Op, string) error { return boom })

	_, err := NewReader(registry).Read(context.Background(), entity.TypeRole, "r-1")
	require.ErrorIs(t, err, boom)
}

// wrongRowAccessor hands back rows of a type the definition cannot fingerprint.
type wrongRowAccessor struct {
	store.Accessor
}

func (wrongRowAccessor) GetByID(context.Context, string) (store.Row, error) {
	return &entity.User{ID: "r-1"}, nil
}

func TestReader_FingerprintFailureIsFatal(t *testing.T) {
	t.Parallel()

	registry := entity.NewRegistry([]store.Store{store.MySQL, store.Postgres})
	var role *entity.Definition
	for _, def := range entity.Definitions() {
		if def.Type == entity.TypeRole {
			role = def
		}
	}
	require.NoError(t, registry.Register(role, map[store.Store]store.Accessor{
		store.MySQL:    memstore.New(role.Table),
		store.Postgres: wrongRowAccessor{},
	}))

	_, err := NewReader(registry).Read(context.Background(), entity.TypeRole, "r-1")
	require.ErrorIs(t, err, ErrFingerprint)
	require.ErrorIs(t, err, entity.ErrRowType)
}

// gatedAccessor parks its first GetByID until release is closed.
type gatedAccessor struct {
	*memstore.Accessor
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedAccessor) GetByID(ctx context.Context, id string) (store.Row, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Accessor.GetByID(ctx, id)
}

func TestReader_ReadSeesEarlierWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	role := definitionOfRole(t)
	mysql := memstore.New(role.Table)
	sqlserver := memstore.New(role.Table)
	mysql.Put(&entity.Role{ID: "r-1", Name: "admin"})
	gated := &gatedAccessor{Accessor: mysql, entered: make(chan struct{}), release: make(chan struct{})}

	registry := entity.NewRegistry([]store.Store{store.MySQL, store.SQLServer})
	require.NoError(t, registry.Register(role, map[store.Store]store.Accessor{
		store.MySQL:     gated,
		store.SQLServer: sqlserver,
	}))
	reader := NewReader(registry)

	firstDone := make(chan error, 1)
	go func() {
		_, err := reader.Read(ctx, entity.TypeRole, "r-1")
		firstDone <- err
	}()
	<-gated.entered

	sqlserver.Put(&entity.Role{ID: "r-1", Name: "admin"})

	type result struct {
		snap Snapshot
		err  error
	}
	second := make(chan result, 1)
	go func() {
		s, err := reader.Read(ctx, entity.TypeRole, "r-1")
		second <- result{s, err}
	}()

	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.True(t, got.snap.Exists[store.SQLServer])
		assert.False(t, got.snap.AnyMissing())
		assert.False(t, got.snap.Mismatch())
	case <-time.After(5 * time.Second):
		close(gated.release)
		t.Fatal("second read waited for the earlier read")
	}

	close(gated.release)
	require.NoError(t, <-firstDone)
}

func definitionOfRole(t *testing.T) *entity.Definition {
	t.Helper()
	for _, def := range entity.Definitions() {
		if def.Type == entity.TypeRole {
			return def
		}
	}
	t.Fatal("role definition missing")
	return nil
}

func TestReader_UnknownType(t *testing.T) {
	t.Parallel()

	registry := entity.NewRegistry(store.All())
	_, err := NewReader(registry).Read(context.Background(), entity.TypeRole, "r-1")
	require.ErrorIs(t, err, entity.ErrUnknownType)
}
