package todo

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/db/engines/maple"
	"github.com/ValentinKolb/dTodo/lib/lockmgr"
	"github.com/ValentinKolb/dTodo/lib/store"
	"github.com/ValentinKolb/dTodo/lib/store/lstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSlots() store.IStore {
	return lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) })
}

// fixedClock always returns the same instant
func fixedClock() time.Time { return time.UnixMilli(1700000000000) }

func openStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, todos, err := Open(newSlots(), "todos-test", append([]Option{WithClock(fixedClock)}, opts...)...)
	require.NoError(t, err)
	require.Empty(t, todos)
	return s
}

func create(t *testing.T, s *Store, title string, completed bool) Todo {
	t.Helper()
	created, err := s.Save(Patch{"title": title, "completed": completed}, NoID)
	require.NoError(t, err)
	require.Len(t, created, 1)
	return created[0]
}

func TestOpen_Idempotent(t *testing.T) {
	slots := newSlots()
	s, _, err := Open(slots, "todos")
	require.NoError(t, err)
	create(t, s, "a", false)

	_, todos, err := Open(slots, "todos")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "a", todos[0].Title)

	value, _, err := slots.Get("todos")
	require.NoError(t, err)
	assert.Contains(t, string(value), `{"todos":[{"id":`)
}

func TestSave_CreateAssignsUniqueIncreasingIDs(t *testing.T) {
	s := openStore(t)
	first := create(t, s, "a", false)
	second := create(t, s, "b", false)
	third := create(t, s, "c", false)

	assert.Equal(t, ID(1700000000000), first.ID)
	assert.Equal(t, first.ID+1, second.ID, "same tick must not collide")
	assert.Equal(t, second.ID+1, third.ID)

	all, err := s.FindAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, titles(all))
}

func TestSave_CreateIgnoresPatchID(t *testing.T) {
	s := openStore(t)
	created, err := s.Save(Patch{"id": 5, "title": "a"}, NoID)
	require.NoError(t, err)
	assert.NotEqual(t, ID(5), created[0].ID)
	assert.False(t, created[0].Completed)
}

func TestSave_IDsSeededFromExistingRecords(t *testing.T) {
	slots := newSlots()
	require.NoError(t, slots.Set("todos", []byte(`{"todos":[{"id":1800000000000,"title":"future","completed":false}]}`)))

	s, _, err := Open(slots, "todos", WithClock(fixedClock))
	require.NoError(t, err)
	created := create(t, s, "next", false)
	assert.Equal(t, ID(1800000000001), created.ID)
}

func TestSave_UpdateMergesFields(t *testing.T) {
	s := openStore(t)
	a := create(t, s, "a", false)
	b := create(t, s, "b", false)

	all, err := s.Save(Patch{"completed": true, "priority": 1}, b.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a, all[0])
	assert.Equal(t, "b", all[1].Title)
	assert.True(t, all[1].Completed)
	assert.Equal(t, 1.0, all[1].Extra["priority"])

	all, err = s.Save(Patch{"title": "b2"}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "b2", all[1].Title)
	assert.True(t, all[1].Completed, "unpatched fields stay untouched")
}

func TestSave_UpdateMissIsNoOp(t *testing.T) {
	s := openStore(t)
	create(t, s, "a", false)
	before, err := s.FindAll()
	require.NoError(t, err)

	all, err := s.Save(Patch{"title": "x"}, 12345)
	require.NoError(t, err)
	assert.Equal(t, before, all)
}

func TestSave_InvalidPatch(t *testing.T) {
	s := openStore(t)
	_, err := s.Save(Patch{"title": 1}, NoID)
	assert.ErrorIs(t, err, ErrInvalidPatch)

	all, err := s.FindAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFind(t *testing.T) {
	s := openStore(t)
	a := create(t, s, "a", false)
	create(t, s, "b", true)
	create(t, s, "c", false)

	open, err := s.Find(Query{"completed": false})
	require.NoError(t, err)
	done, err := s.Find(Query{"completed": true})
	require.NoError(t, err)
	all, err := s.FindAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, titles(open))
	assert.Equal(t, []string{"b"}, titles(done))
	assert.Len(t, all, len(open)+len(done))

	byID, err := s.Find(Query{"id": a.ID})
	require.NoError(t, err)
	assert.Equal(t, []Todo{a}, byID)

	everything, err := s.Find(Query{})
	require.NoError(t, err)
	assert.Equal(t, all, everything)

	none, err := s.Find(Query{"title": "nope"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRemove(t *testing.T) {
	slots := newSlots()
	require.NoError(t, slots.Set("todos", []byte(`{"todos":[
		{"id":"3","title":"string id","completed":false},
		{"id":4,"title":"keep","completed":false},
		{"id":3,"title":"dup","completed":true}]}`)))
	s, _, err := Open(slots, "todos")
	require.NoError(t, err)

	id, err := ParseID("3")
	require.NoError(t, err)
	all, err := s.Remove(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, titles(all))

	all, err = s.Remove(999)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, titles(all))
}

func TestDrop(t *testing.T) {
	s := openStore(t)
	create(t, s, "a", false)

	all, err := s.Drop()
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NotNil(t, all)

	all, err = s.FindAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCorruptCollection(t *testing.T) {
	slots := newSlots()
	require.NoError(t, slots.Set("todos", []byte(`{"todos":[{"id":"abc"}]}`)))

	_, _, err := Open(slots, "todos")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptCollection))
	assert.Contains(t, err.Error(), `"todos"`)

	require.NoError(t, slots.Set("other", []byte(`not json`)))
	_, _, err = Open(slots, "other")
	assert.ErrorIs(t, err, ErrCorruptCollection)
}

func TestConcurrentCreates(t *testing.T) {
	slots := newSlots()
	s, _, err := Open(slots, "todos", WithLease(lockmgr.NewLockManager(slots)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Save(Patch{"title": "x"}, NoID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.FindAll()
	require.NoError(t, err)
	require.Len(t, all, 20)
	seen := map[ID]bool{}
	for _, rec := range all {
		assert.False(t, seen[rec.ID], "duplicate id %d", rec.ID)
		seen[rec.ID] = true
	}

	held, err := slots.Has("todos.lock")
	require.NoError(t, err)
	assert.False(t, held, "lease must be released after each write")
}

func titles(todos []Todo) []string {
	out := make([]string, len(todos))
	for i, rec := range todos {
		out[i] = rec.Title
	}
	return out
}
