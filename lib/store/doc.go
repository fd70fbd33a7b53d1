// Package store provides the slot handle (IStore) the todo collections are persisted
// through. It is an abstraction layer over the lower-level db.KVDB implementations that
// adds write index management and standardized error reporting.
//
// Key Components:
//
//   - IStore Interface: Set, SetIfUnset, Delete, Get, Has and GetDBInfo on named slots,
//     plus CompareAndSwap and CompareAndDelete for the writer lease (lockmgr).
//
//   - Error System: Error carries a RetCode and a message, so callers can tell an
//     unsupported operation from an internal failure with errors.Is.
//
//   - DBFactory: A function type that abstracts the creation of the underlying db.KVDB.
//
// Implementations:
//
//   - Local Store (lstore): directly uses a db.KVDB instance and manages the write
//     index with an atomic counter. Suitable for a single process, durable when the
//     sqlite engine is used.
//
//   - Distributed Store (dstore): built on the Dragonboat RAFT library. Every write is a
//     raft proposal, reads are linearizable. Suitable for replicated deployments.
package store
