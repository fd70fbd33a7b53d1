package todo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ID identifies a record within a collection.
type ID int64

// NoID is the zero id. Saving with NoID creates a new record.
const NoID ID = 0

// ParseID parses a decimal id, surrounding whitespace is ignored.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return NoID, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(n), nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// UnmarshalJSON accepts numbers and numeric strings, so collections written
// with string ids ("3") decode to the same ID as 3.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = NoID
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}

	if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*id = ID(n)
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return fmt.Errorf("%w: %s", ErrInvalidID, b)
	}
	*id = ID(f)
	return nil
}

// Todo is a single task record. Fields other than id, title and completed
// that were attached by patches are kept in Extra.
type Todo struct {
	ID        ID
	Title     string
	Completed bool
	Extra     map[string]any
}

// MarshalJSON writes id, title and completed first, followed by the extra
// fields in key order.
func (t Todo) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	buf.WriteString(t.ID.String())
	buf.WriteString(`,"title":`)
	title, err := json.Marshal(t.Title)
	if err != nil {
		return nil, err
	}
	buf.Write(title)
	buf.WriteString(`,"completed":`)
	buf.WriteString(strconv.FormatBool(t.Completed))

	keys := make([]string, 0, len(t.Extra))
	for k := range t.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key, _ := json.Marshal(k)
		value, err := json.Marshal(t.Extra[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *Todo) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("record is null")
	}

	*t = Todo{}
	for k, raw := range fields {
		switch k {
		case "id":
			if err := json.Unmarshal(raw, &t.ID); err != nil {
				return err
			}
		case "title":
			if err := json.Unmarshal(raw, &t.Title); err != nil {
				return fmt.Errorf("title: %w", err)
			}
		case "completed":
			if err := json.Unmarshal(raw, &t.Completed); err != nil {
				return fmt.Errorf("completed: %w", err)
			}
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			if t.Extra == nil {
				t.Extra = make(map[string]any)
			}
			t.Extra[k] = v
		}
	}
	return nil
}

// field returns the JSON value of a named field, ok is false if the record
// does not carry the field.
func (t Todo) field(name string) (value any, ok bool) {
	switch name {
	case "id":
		return float64(t.ID), true
	case "title":
		return t.Title, true
	case "completed":
		return t.Completed, true
	default:
		value, ok = t.Extra[name]
		return value, ok
	}
}

// clone returns a copy that does not share the Extra map
func (t Todo) clone() Todo {
	if t.Extra != nil {
		extra := make(map[string]any, len(t.Extra))
		for k, v := range t.Extra {
			extra[k] = v
		}
		t.Extra = extra
	}
	return t
}

// collection is the content of a slot
type collection struct {
	Todos []Todo `json:"todos"`
}
