package internal

import (
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/store"
)

// QueryType selects the read a Query performs on the db of a replica.
type QueryType uint8

const (
	QueryTGet       QueryType = iota // value of a slot
	QueryTHas                        // whether a slot exists
	QueryTGetDBInfo                  // metadata of the replica's db
)

var queryTypeNames = [...]string{
	QueryTGet:       "Get",
	QueryTHas:       "Has",
	QueryTGetDBInfo: "GetDBInfo",
}

func (q QueryType) String() string {
	if int(q) < len(queryTypeNames) {
		return queryTypeNames[q]
	}
	return "Unknown"
}

// Query is a read passed to SyncRead or StaleRead. Queries never enter the raft
// log, so they are plain Go values.
type Query struct {
	Type QueryType
	Key  string // slot name, empty for GetDBInfo
}

// SlotValue is the result of a Get query
type SlotValue struct {
	Ok    bool
	Value []byte
}

func GetQuery(key string) Query { return Query{Type: QueryTGet, Key: key} }

func HasQuery(key string) Query { return Query{Type: QueryTHas, Key: key} }

func DBInfoQuery() Query { return Query{Type: QueryTGetDBInfo} }

// Stale reports whether the local replica may answer the query without a read index.
// Slot reads are linearizable, the db info describes the local replica only.
func (q Query) Stale() bool {
	return q.Type == QueryTGetDBInfo
}

// Run evaluates the query on kv. Get yields a SlotValue, Has a bool and
// GetDBInfo a db.DatabaseInfo. Errors are *store.Error values.
func (q Query) Run(kv db.KVDB) (interface{}, error) {
	switch q.Type {
	case QueryTGet:
		if !kv.SupportsFeature(db.FeatureGet) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Get operation is not supported")
		}
		val, ok, err := kv.Get(q.Key)
		if err != nil {
			return nil, store.NewError(store.RetCInternalError, err.Error())
		}
		return SlotValue{Ok: ok, Value: val}, nil

	case QueryTHas:
		if !kv.SupportsFeature(db.FeatureHas) {
			return nil, store.NewError(store.RetCUnsupportedOperation, "Has operation is not supported")
		}
		ok, err := kv.Has(q.Key)
		if err != nil {
			return nil, store.NewError(store.RetCInternalError, err.Error())
		}
		return ok, nil

	case QueryTGetDBInfo:
		return kv.GetInfo(), nil

	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %d", q.Type))
	}
}
