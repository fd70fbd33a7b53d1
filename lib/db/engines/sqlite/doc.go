// Package sqlite implements a durable slot database (db.KVDB) on top of a single
// sqlite file, using github.com/mattn/go-sqlite3.
//
// Every slot is one row of the slots table. Set and SetIfUnset are single
// statements (INSERT ... ON CONFLICT), so a slot is always replaced as a whole and a
// crash never leaves a half-written collection behind.
//
// Several processes may open the same file (e.g. two dtodo commands running against
// one --local database). Every write therefore takes its write index from the meta
// table inside its own transaction, and writes are never skipped as stale: the engine
// does not advertise db.FeatureOrderedWrites. CompareAndSwap and CompareAndDelete are
// single conditional statements, which makes them atomic across processes.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - a 5 second busy timeout
//   - a single open connection (sqlite only supports one writer)
//   - immediate transactions (_txlock=immediate)
//
// Save and Load exchange snapshots in the same line-oriented JSON format, so a
// sqlite database can be exported and imported into another sqlite file.
package sqlite
