package todo

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Query selects records whose fields equal all given values.
// Values are compared as JSON values: numbers by value, strings never equal numbers.
// An empty query matches every record.
type Query map[string]any

// Patch holds the fields to set on a record. The id key is ignored.
type Patch map[string]any

// normalize converts a value into its JSON representation (float64, string,
// bool, nil, []any or map[string]any).
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x, nil
	case ID:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// compile normalizes all query values
func (q Query) compile() (Query, error) {
	out := make(Query, len(q))
	for k, v := range q {
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidQuery, k, err)
		}
		out[k] = n
	}
	return out, nil
}

// matches expects a compiled query. A field the record does not carry never matches.
func (q Query) matches(t Todo) bool {
	for k, want := range q {
		got, ok := t.field(k)
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// compile validates the patch and normalizes its values
func (p Patch) compile() (Patch, error) {
	out := make(Patch, len(p))
	for k, v := range p {
		if k == "id" {
			continue
		}
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidPatch, k, err)
		}
		switch k {
		case "title":
			if _, ok := n.(string); !ok {
				return nil, fmt.Errorf("%w: title must be a string, got %T", ErrInvalidPatch, v)
			}
		case "completed":
			if _, ok := n.(bool); !ok {
				return nil, fmt.Errorf("%w: completed must be a bool, got %T", ErrInvalidPatch, v)
			}
		}
		out[k] = n
	}
	return out, nil
}

// apply shallow merges a compiled patch into the record
func (p Patch) apply(t *Todo) {
	for k, v := range p {
		switch k {
		case "title":
			t.Title = v.(string)
		case "completed":
			t.Completed = v.(bool)
		default:
			if t.Extra == nil {
				t.Extra = make(map[string]any)
			}
			t.Extra[k] = v
		}
	}
}
