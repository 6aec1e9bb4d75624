package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/store/memstore"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	backend := memstore.NewBackend()
	r, err := Build(store.All(), Definitions(), backend.Open)
	require.NoError(t, err)

	assert.Equal(t, store.All(), r.Stores())
	assert.True(t, r.HasStore(store.SQLServer))
	assert.Len(t, r.Types(), 9)
	assert.Equal(t,
		[]Type{TypeUser, TypeRole, TypeDept, TypeNotice, TypeNoticeTargetDept, TypeNoticeRead},
		r.BusinessTypes())

	def, err := r.Definition(TypeUser)
	require.NoError(t, err)
	assert.Equal(t, "users", def.Table.Name)

	a, err := r.Accessor(TypeUser, store.Postgres)
	require.NoError(t, err)
	assert.Same(t, backend.Table(store.Postgres, "users"), a)
}

func TestRegistry_Errors(t *testing.T) {
	t.Parallel()

	r := NewRegistry([]store.Store{store.MySQL, store.Postgres})

	_, err := r.Definition(TypeRole)
	require.ErrorIs(t, err, ErrUnknownType)

	def := roleDefinition()
	err = r.Register(def, map[store.Store]store.Accessor{store.MySQL: memstore.New(def.Table)})
	require.Error(t, err, "every registered store needs an accessor")

	accessors := map[store.Store]store.Accessor{
		store.MySQL:    memstore.New(def.Table),
		store.Postgres: memstore.New(def.Table),
	}
	require.NoError(t, r.Register(def, accessors))
	require.Error(t, r.Register(def, accessors), "duplicate registration")

	_, err = r.Accessor(TypeRole, store.SQLServer)
	require.ErrorIs(t, err, ErrUnknownStore)
	assert.False(t, r.HasStore(store.SQLServer))
}

func TestBuild_FactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("dial failed")
	_, err := Build(store.All(), Definitions(), func(store.Store, store.Table) (store.Accessor, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestParse(t *testing.T) {
	t.Parallel()

	typ, err := ParseType("notice_read")
	require.NoError(t, err)
	assert.Equal(t, TypeNoticeRead, typ)
	assert.False(t, typ.IsSystem())
	assert.True(t, TypeSyncConflictItem.IsSystem())

	_, err = ParseType("widget")
	require.Error(t, err)

	action, err := ParseAction("delete")
	require.NoError(t, err)
	assert.Equal(t, ActionDelete, action)

	_, err = ParseAction("upsert")
	require.Error(t, err)

	status, err := ParseAttemptStatus(" conflict ")
	require.NoError(t, err)
	assert.Equal(t, AttemptConflict, status)
	_, err = ParseAttemptStatus("PENDING")
	require.Error(t, err)

	ticket, err := ParseTicketStatus("ignored")
	require.NoError(t, err)
	assert.Equal(t, TicketIgnored, ticket)
	_, err = ParseTicketStatus("CLOSED")
	require.Error(t, err)

	ct, err := ParseConflictType("Mismatch")
	require.NoError(t, err)
	assert.Equal(t, ConflictMismatch, ct)
	_, err = ParseConflictType("DRIFT")
	require.Error(t, err)
}
