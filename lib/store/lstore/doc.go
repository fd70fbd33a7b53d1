// Package lstore implements a local, single-node slot store based on the
// store.IStore interface. It is a thin wrapper around any db.KVDB implementation
// with automatic write index management.
//
// Implementation Details:
//
//   - Write Index Management: The store keeps an atomic counter that is incremented
//     with each write. It starts at the write index of the db, so a durable db
//     (sqlite) or a db restored from a snapshot (maple) keeps accepting writes after a
//     restart instead of treating them as stale.
//
//   - Feature Detection: Before executing operations, the store checks if the underlying
//     db.KVDB implementation supports the requested feature. Unsupported operations
//     return RetCUnsupportedOperation instead of failing silently.
//
//   - Error Mapping: Errors of the db (e.g. a sqlite I/O failure) are returned as
//     *store.Error with RetCInternalError.
//
// Usage Example:
//
//	factory := func() db.KVDB { return maple.NewMapleDB(nil) }
//	slots := lstore.NewLocalStore(factory)
//	_ = slots.SetIfUnset("todos-default", []byte(`{"todos":[]}`))
package lstore
