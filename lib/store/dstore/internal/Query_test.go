package internal

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/db/engines/maple"
	"github.com/ValentinKolb/dTodo/lib/store"
)

func TestQueryRun(t *testing.T) {
	kv := maple.NewMapleDB(nil)
	if err := kv.Set("todos-default", []byte(`{"todos":[]}`), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	res, err := GetQuery("todos-default").Run(kv)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v := res.(SlotValue); !v.Ok || string(v.Value) != `{"todos":[]}` {
		t.Errorf("Get returned %+v", v)
	}

	res, err = GetQuery("todos-missing").Run(kv)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v := res.(SlotValue); v.Ok || v.Value != nil {
		t.Errorf("Get of a missing slot returned %+v", v)
	}

	res, err = HasQuery("todos-default").Run(kv)
	if err != nil || res != true {
		t.Errorf("Has returned %v, %v", res, err)
	}

	res, err = DBInfoQuery().Run(kv)
	if err != nil {
		t.Fatalf("GetDBInfo failed: %v", err)
	}
	if info := res.(db.DatabaseInfo); info.SlotCount != 1 {
		t.Errorf("expected 1 slot, got %d", info.SlotCount)
	}

	_, err = Query{Type: QueryType(42)}.Run(kv)
	if !errors.Is(err, store.NewError(store.RetCInvalidOperation, "")) {
		t.Errorf("expected invalid operation, got %v", err)
	}
}

func TestQueryStale(t *testing.T) {
	if GetQuery("a").Stale() || HasQuery("a").Stale() {
		t.Error("slot reads must be linearizable")
	}
	if !DBInfoQuery().Stale() {
		t.Error("db info is read from the local replica")
	}
}

func TestQueryTypeString(t *testing.T) {
	for q, want := range map[QueryType]string{
		QueryTGet:       "Get",
		QueryTHas:       "Has",
		QueryTGetDBInfo: "GetDBInfo",
		QueryType(9):    "Unknown",
	} {
		if got := q.String(); got != want {
			t.Errorf("QueryType(%d).String() = %q, want %q", q, got, want)
		}
	}
}
