package model

import (
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"math"
	"reflect"
	"strings"
)

// ErrInvalidQuery is returned by Read for query values it cannot interpret.
var ErrInvalidQuery = todo.ErrInvalidQuery

// Count summarizes a collection.
type Count struct {
	Active    int `json:"active" yaml:"active"`
	Completed int `json:"completed" yaml:"completed"`
	Total     int `json:"total" yaml:"total"`
}

// Model is the facade the CLI and the HTML view work with.
type Model struct {
	store todo.ITodoStore
}

// New creates a Model on top of a local or remote todo store.
func New(store todo.ITodoStore) *Model {
	return &Model{store: store}
}

// Create adds an active record with the trimmed title.
func (m *Model) Create(title string) (todo.Todo, error) {
	created, err := m.store.Save(todo.Patch{
		"title":     strings.TrimSpace(title),
		"completed": false,
	}, todo.NoID)
	if err != nil {
		return todo.Todo{}, err
	}
	if len(created) != 1 {
		return todo.Todo{}, fmt.Errorf("create returned %d records", len(created))
	}
	return created[0], nil
}

// Read returns records selected by query:
//
//   - nil: all records
//   - number (any integer or float type, todo.ID): the record(s) with that id.
//     Floats are truncated, numbers outside the int64 range match nothing.
//   - string: the leading integer is the id ("12abc" is 12), a string without
//     one matches nothing.
//   - todo.Query or map[string]any: records matching all fields
func (m *Model) Read(query any) ([]todo.Todo, error) {
	switch q := query.(type) {
	case nil:
		return m.store.FindAll()
	case todo.Query:
		return m.store.Find(q)
	case map[string]any:
		return m.store.Find(todo.Query(q))
	case string:
		id, ok := leadingInt(q)
		if !ok {
			return []todo.Todo{}, nil
		}
		return m.findID(id)
	default:
		id, numeric, inRange := numericID(query)
		if !numeric {
			return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidQuery, query)
		}
		if !inRange {
			return []todo.Todo{}, nil
		}
		return m.findID(id)
	}
}

// numericID converts a value of any integer or float kind to an id, floats are
// truncated. inRange is false for values no id can have: NaN, infinities and
// everything beyond int64.
func numericID(v any) (id todo.ID, numeric, inRange bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return todo.ID(rv.Int()), true, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, true, false
		}
		return todo.ID(u), true, true
	case reflect.Float32, reflect.Float64:
		f := math.Trunc(rv.Float())
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, true, false
		}
		return todo.ID(f), true, true
	default:
		return 0, false, false
	}
}

func (m *Model) findID(id todo.ID) ([]todo.Todo, error) {
	return m.store.Find(todo.Query{"id": id})
}

// Update merges data into the record with the id.
func (m *Model) Update(id todo.ID, data todo.Patch) ([]todo.Todo, error) {
	return m.store.Save(data, id)
}

func (m *Model) Remove(id todo.ID) ([]todo.Todo, error) {
	return m.store.Remove(id)
}

// RemoveAll empties the collection.
func (m *Model) RemoveAll() ([]todo.Todo, error) {
	return m.store.Drop()
}

// GetCount counts active and completed records.
func (m *Model) GetCount() (Count, error) {
	todos, err := m.store.FindAll()
	if err != nil {
		return Count{}, err
	}
	return CountOf(todos), nil
}

// CountOf counts the records of an already loaded collection.
func CountOf(todos []todo.Todo) Count {
	var c Count
	for _, t := range todos {
		if t.Completed {
			c.Completed++
		} else {
			c.Active++
		}
	}
	c.Total = c.Active + c.Completed
	return c
}

// leadingInt parses an optional sign and the digits at the start of s,
// leading whitespace is skipped.
func leadingInt(s string) (todo.ID, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n int64
	digits := 0
	for ; digits < len(s) && s[digits] >= '0' && s[digits] <= '9'; digits++ {
		if n > (math.MaxInt64-9)/10 {
			return todo.NoID, false
		}
		n = n*10 + int64(s[digits]-'0')
	}
	if digits == 0 {
		return todo.NoID, false
	}
	if neg {
		n = -n
	}
	return todo.ID(n), true
}
