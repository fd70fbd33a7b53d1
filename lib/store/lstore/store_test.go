package lstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/db/engines/maple"
	"github.com/ValentinKolb/dTodo/lib/db/engines/sqlite"
	"github.com/ValentinKolb/dTodo/lib/store"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMaple() db.KVDB { return maple.NewMapleDB(nil) }

func TestLocalStore_SetGetDelete(t *testing.T) {
	s := NewLocalStore(newMaple)

	require.NoError(t, s.SetIfUnset("todos", []byte("a")))
	require.NoError(t, s.SetIfUnset("todos", []byte("b")))

	value, ok, err := s.Get("todos")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), value)

	require.NoError(t, s.Set("todos", []byte("c")))
	value, _, _ = s.Get("todos")
	assert.Equal(t, []byte("c"), value)

	require.NoError(t, s.Delete("todos"))
	ok, err = s.Has("todos")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStore_ContinuesAfterLoad(t *testing.T) {
	source := maple.NewMapleDB(nil)
	for i := uint64(1); i <= 50; i++ {
		require.NoError(t, source.Set("todos", []byte{byte(i)}, i))
	}
	var snapshot bytes.Buffer
	require.NoError(t, source.Save(&snapshot))

	target := maple.NewMapleDB(nil)
	require.NoError(t, target.Load(&snapshot))

	s := NewLocalStore(func() db.KVDB { return target })
	require.NoError(t, s.Set("todos", []byte("after-restart")))

	value, _, err := s.Get("todos")
	require.NoError(t, err)
	assert.Equal(t, []byte("after-restart"), value, "writes after a restore must not be treated as stale")
}

// readOnlyDB advertises only the read features
type readOnlyDB struct {
	db.KVDB
}

func (r readOnlyDB) SupportsFeature(feature db.Feature) bool {
	return (db.FeatureGet|db.FeatureHas)&feature == feature
}

// failingDB fails every read
type failingDB struct {
	db.KVDB
}

func (f failingDB) Get(string) ([]byte, bool, error) { return nil, false, io.ErrUnexpectedEOF }

func TestLocalStore_Errors(t *testing.T) {
	ro := NewLocalStore(func() db.KVDB { return readOnlyDB{maple.NewMapleDB(nil)} })

	err := ro.Set("todos", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.NewError(store.RetCUnsupportedOperation, "")))

	failing := NewLocalStore(func() db.KVDB { return failingDB{maple.NewMapleDB(nil)} })
	_, _, err = failing.Get("todos")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.NewError(store.RetCInternalError, "")))
}

func openSQLite(t *testing.T, path string) store.IStore {
	t.Helper()
	database, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewLocalStore(func() db.KVDB { return database })
}

func TestLocalStore_CompareAndSwap(t *testing.T) {
	s := NewLocalStore(newMaple)
	require.NoError(t, s.Set("todos.lock", []byte("a")))

	swapped, err := s.CompareAndSwap("todos.lock", []byte("b"), []byte("c"))
	require.NoError(t, err)
	assert.False(t, swapped)

	swapped, err = s.CompareAndSwap("todos.lock", []byte("a"), []byte("c"))
	require.NoError(t, err)
	assert.True(t, swapped)

	deleted, err := s.CompareAndDelete("todos.lock", []byte("a"))
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.CompareAndDelete("todos.lock", []byte("c"))
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestLocalStore_SharedSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.db")
	first := openSQLite(t, path)
	second := openSQLite(t, path)

	a, _, err := todo.Open(first, "todos")
	require.NoError(t, err)
	b, _, err := todo.Open(second, "todos")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := b.Save(todo.Patch{"title": fmt.Sprintf("from b %d", i)}, todo.NoID)
		require.NoError(t, err)
	}
	created, err := a.Save(todo.Patch{"title": "from a"}, todo.NoID)
	require.NoError(t, err)
	require.Len(t, created, 1)

	all, err := b.FindAll()
	require.NoError(t, err)
	require.Len(t, all, 4, "every saved record must be persisted")
	assert.Equal(t, "from a", all[3].Title)
	assert.Equal(t, created[0].ID, all[3].ID)
}
