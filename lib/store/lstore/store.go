package lstore

import (
	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/store"
	"sync/atomic"
)

type storeImpl struct {
	db    db.KVDB
	index atomic.Uint64
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
// Whether the slots survive a restart depends on the db the factory creates.
func NewLocalStore(factory store.DBFactory) store.IStore {
	s := &storeImpl{
		db: factory(),
	}
	s.index.Store(s.db.WriteIdx())
	return s
}

// incAndGetIndex returns the next write index.
// The index never falls behind the index of the db, which may have advanced
// through a Load after the store was created.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (s *storeImpl) incAndGetIndex() uint64 {
	for {
		curr := s.index.Load()
		next := max(curr, s.db.WriteIdx()) + 1
		if s.index.CompareAndSwap(curr, next) {
			return next
		}
	}
}

// wrap converts a db error into a store error
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return store.NewError(store.RetCInternalError, err.Error())
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if !s.db.SupportsFeature(db.FeatureSet) {
		return store.NewError(store.RetCUnsupportedOperation, "Set operation is not supported")
	}
	return wrap(s.db.Set(key, value, s.incAndGetIndex()))
}

func (s *storeImpl) SetIfUnset(key string, value []byte) error {
	if !s.db.SupportsFeature(db.FeatureSetIfUnset) {
		return store.NewError(store.RetCUnsupportedOperation, "SetIfUnset operation is not supported")
	}
	return wrap(s.db.SetIfUnset(key, value, s.incAndGetIndex()))
}

func (s *storeImpl) Delete(key string) error {
	if !s.db.SupportsFeature(db.FeatureDelete) {
		return store.NewError(store.RetCUnsupportedOperation, "Delete operation is not supported")
	}
	return wrap(s.db.Delete(key, s.incAndGetIndex()))
}

func (s *storeImpl) CompareAndSwap(key string, expected, value []byte) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureCompareAndSwap) {
		return false, store.NewError(store.RetCUnsupportedOperation, "CompareAndSwap operation is not supported")
	}
	swapped, err := s.db.CompareAndSwap(key, expected, value, s.incAndGetIndex())
	return swapped, wrap(err)
}

func (s *storeImpl) CompareAndDelete(key string, expected []byte) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureCompareAndSwap) {
		return false, store.NewError(store.RetCUnsupportedOperation, "CompareAndDelete operation is not supported")
	}
	deleted, err := s.db.CompareAndDelete(key, expected, s.incAndGetIndex())
	return deleted, wrap(err)
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if !s.db.SupportsFeature(db.FeatureGet) {
		return nil, false, store.NewError(store.RetCUnsupportedOperation, "Get operation is not supported")
	}
	val, ok, err := s.db.Get(key)
	return val, ok, wrap(err)
}

func (s *storeImpl) Has(key string) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureHas) {
		return false, store.NewError(store.RetCUnsupportedOperation, "Has operation is not supported")
	}
	ok, err := s.db.Has(key)
	return ok, wrap(err)
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}
