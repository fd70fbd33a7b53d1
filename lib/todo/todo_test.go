package todo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := ParseID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, ID(42), id)

	for _, bad := range []string{"", "abc", "3x", "1.5"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrInvalidID, bad)
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`3`, 3},
		{`"3"`, 3},
		{`1700000000123`, 1700000000123},
		{`1.7e12`, 1700000000000},
		{`null`, NoID},
	}
	for _, tt := range tests {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(tt.in), &id), tt.in)
		assert.Equal(t, tt.want, id, tt.in)
	}

	for _, bad := range []string{`"three"`, `1.5`, `true`} {
		var id ID
		assert.Error(t, json.Unmarshal([]byte(bad), &id), bad)
	}
}

func TestTodo_MarshalJSON_FieldOrder(t *testing.T) {
	rec := Todo{ID: 7, Title: `say "hi"`, Completed: true, Extra: map[string]any{"zeta": 1.0, "alpha": "a"}}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"id":7,"title":"say \"hi\"","completed":true,"alpha":"a","zeta":1}`, string(b))

	var back Todo
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, rec, back)
}

func TestTodo_UnmarshalJSON_Errors(t *testing.T) {
	for _, bad := range []string{`null`, `[]`, `{"title":5}`, `{"completed":"yes"}`, `{"id":"x"}`} {
		var rec Todo
		assert.Error(t, json.Unmarshal([]byte(bad), &rec), bad)
	}
}

func TestPatch_Compile(t *testing.T) {
	p, err := Patch{"id": 99, "title": "x", "completed": true, "priority": 2}.compile()
	require.NoError(t, err)
	assert.Equal(t, Patch{"title": "x", "completed": true, "priority": 2.0}, p)

	_, err = Patch{"title": 5}.compile()
	assert.ErrorIs(t, err, ErrInvalidPatch)
	_, err = Patch{"completed": "true"}.compile()
	assert.ErrorIs(t, err, ErrInvalidPatch)
	_, err = Patch{"cb": func() {}}.compile()
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestQuery_Matches(t *testing.T) {
	rec := Todo{ID: 3, Title: "buy milk", Extra: map[string]any{"tags": []any{"shop"}}}

	match := func(q Query) bool {
		c, err := q.compile()
		require.NoError(t, err)
		return c.matches(rec)
	}

	assert.True(t, match(Query{}))
	assert.True(t, match(Query{"id": 3}))
	assert.True(t, match(Query{"id": ID(3)}))
	assert.True(t, match(Query{"id": 3.0}))
	assert.True(t, match(Query{"id": uint8(3)}))
	assert.False(t, match(Query{"id": "3"}), "strings never equal numbers")
	assert.True(t, match(Query{"title": "buy milk", "completed": false}))
	assert.False(t, match(Query{"title": "buy milk", "completed": true}))
	assert.False(t, match(Query{"missing": nil}), "absent fields never match")
	assert.True(t, match(Query{"tags": []string{"shop"}}))

	_, err := Query{"ch": make(chan int)}.compile()
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
