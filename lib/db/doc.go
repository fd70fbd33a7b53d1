// Package db provides a standardized interface for slot databases.
// A slot is a named, opaque byte blob that is always read and written as a whole.
// The todo store keeps exactly one serialized collection per slot, so the database
// never has to understand the records themselves.
//
// The package focuses on:
//   - A unified interface for slot operations
//   - Feature discovery through capability flags
//   - Standardized persistence operations
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides methods for basic operations (Set, SetIfUnset, Get, Has, Delete),
//     atomic compare operations (CompareAndSwap, CompareAndDelete),
//     metadata retrieval (GetInfo) and persistence operations (Save, Load).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method. FeatureDurable marks engines
//     whose slots survive a restart on their own (sqlite), as opposed to engines that
//     need Save/Load snapshots (maple).
//
//   - Database Information: The DatabaseInfo structure reports the slot count, an
//     estimated size, the implementation type and implementation-specific metadata.
//
// Note on the write index:
//   - All write operations take a write-index parameter that serves as a logical
//     timestamp. When the database is driven by raft, the index is the raft log index;
//     local stores use an atomic counter.
//   - The database write index (WriteIdx) only increases. Attempts to set a lower
//     index are ignored.
//   - Engines advertising FeatureOrderedWrites also ignore slot writes whose index is
//     below the index of the stored slot. The raft state machine depends on this when
//     log entries are replayed on top of a snapshot. Engines without the feature apply
//     every write (sqlite, whose file may be shared by several processes that each
//     count on their own).
//
// Related Packages:
//
// The engines/maple package provides a sharded in-memory implementation with binary
// snapshots. The engines/sqlite package provides a durable implementation backed by a
// single sqlite file. The testing package (lib/db/testing) provides the conformance
// suite both engines are tested with.
package db
