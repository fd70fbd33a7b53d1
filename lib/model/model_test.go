package model

import (
	"math"
	"testing"

	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/db/engines/maple"
	"github.com/ValentinKolb/dTodo/lib/store/lstore"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T) *Model {
	t.Helper()
	slots := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) })
	s, _, err := todo.Open(slots, "todos-model")
	require.NoError(t, err)
	return New(s)
}

func TestCreate_TrimsTitle(t *testing.T) {
	m := newModel(t)
	created, err := m.Create("  buy milk \n")
	require.NoError(t, err)
	assert.Equal(t, "buy milk", created.Title)
	assert.False(t, created.Completed)
	assert.NotEqual(t, todo.NoID, created.ID)
}

func TestBuyMilkScenario(t *testing.T) {
	m := newModel(t)

	milk, err := m.Create("buy milk")
	require.NoError(t, err)
	bread, err := m.Create("buy bread")
	require.NoError(t, err)

	_, err = m.Update(milk.ID, todo.Patch{"completed": true})
	require.NoError(t, err)

	count, err := m.GetCount()
	require.NoError(t, err)
	assert.Equal(t, Count{Active: 1, Completed: 1, Total: 2}, count)

	active, err := m.Read(todo.Query{"completed": false})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, bread.ID, active[0].ID)

	remaining, err := m.Remove(milk.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "buy bread", remaining[0].Title)

	empty, err := m.RemoveAll()
	require.NoError(t, err)
	assert.Empty(t, empty)

	count, err = m.GetCount()
	require.NoError(t, err)
	assert.Equal(t, Count{}, count)
}

func TestRead_QueryForms(t *testing.T) {
	m := newModel(t)
	a, err := m.Create("a")
	require.NoError(t, err)
	_, err = m.Create("b")
	require.NoError(t, err)

	all, err := m.Read(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	for _, q := range []any{a.ID, int64(a.ID), a.ID.String(), " " + a.ID.String() + "abc", float64(a.ID) + 0.7} {
		got, err := m.Read(q)
		require.NoError(t, err, "%v", q)
		require.Len(t, got, 1, "%v", q)
		assert.Equal(t, a.ID, got[0].ID)
	}

	got, err := m.Read(map[string]any{"title": "b"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Title)

	got, err = m.Read("no digits")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = m.Read([]int{1})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

// idRecorder records the id of every Find by id
type idRecorder struct {
	todo.ITodoStore
	ids []any
}

func (r *idRecorder) Find(query todo.Query) ([]todo.Todo, error) {
	r.ids = append(r.ids, query["id"])
	return []todo.Todo{}, nil
}

type ticket int16

func TestRead_NumericKinds(t *testing.T) {
	for _, q := range []any{
		int8(7), int16(7), int32(7), 7, uint8(7), uint16(7), uint32(7), uint(7), uint64(7),
		float32(7.9), 7.2, ticket(7), todo.ID(7),
	} {
		rec := &idRecorder{}
		_, err := New(rec).Read(q)
		require.NoError(t, err, "%T", q)
		assert.Equal(t, []any{todo.ID(7)}, rec.ids, "%T", q)
	}

	rec := &idRecorder{}
	_, err := New(rec).Read(int8(-3))
	require.NoError(t, err)
	assert.Equal(t, []any{todo.ID(-3)}, rec.ids)
}

func TestRead_NumbersWithoutIDMatchNothing(t *testing.T) {
	for _, q := range []any{
		uint64(math.MaxUint64), uint64(math.MaxInt64) + 1, 1e19, -1e19,
		math.NaN(), math.Inf(1), float32(math.Inf(-1)), float64(math.MaxInt64),
	} {
		rec := &idRecorder{}
		got, err := New(rec).Read(q)
		require.NoError(t, err, "%v", q)
		assert.Empty(t, got, "%v", q)
		assert.Empty(t, rec.ids, "%v must not be looked up", q)
	}

	rec := &idRecorder{}
	_, err := New(rec).Read(float64(math.MinInt64))
	require.NoError(t, err)
	assert.Equal(t, []any{todo.ID(math.MinInt64)}, rec.ids)
}

func TestFindPartitions(t *testing.T) {
	m := newModel(t)
	for i, title := range []string{"a", "b", "c", "d"} {
		created, err := m.Create(title)
		require.NoError(t, err)
		if i%2 == 0 {
			_, err = m.Update(created.ID, todo.Patch{"completed": true})
			require.NoError(t, err)
		}
	}

	active, err := m.Read(todo.Query{"completed": false})
	require.NoError(t, err)
	done, err := m.Read(todo.Query{"completed": true})
	require.NoError(t, err)
	all, err := m.Read(nil)
	require.NoError(t, err)

	assert.Len(t, all, len(active)+len(done))
	count, err := m.GetCount()
	require.NoError(t, err)
	assert.Equal(t, Count{Active: len(active), Completed: len(done), Total: len(all)}, count)
}

func TestLeadingInt(t *testing.T) {
	tests := []struct {
		in   string
		want todo.ID
		ok   bool
	}{
		{"42", 42, true},
		{"  -7x", -7, true},
		{"+3", 3, true},
		{"", 0, false},
		{"-", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := leadingInt(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
