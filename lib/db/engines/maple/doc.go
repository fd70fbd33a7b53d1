// Package maple implements an in-memory slot database (KVDB) tuned for concurrent
// access. It provides an implementation of the db.KVDB interface with a focus on
// thread safety and cheap whole-slot reads and writes.
//
// Key Components:
//
//   - mapleImpl: The central database structure implementing db.KVDB. It manages the
//     shards and a monotonically increasing write index. The write index itself is
//     generated by the caller (a counter in lstore, the raft log index in dstore).
//
//   - Shard: A partition of the key space backed by an xsync.MapOf. Keys are assigned
//     to shards with a seeded FNV-1a hash (util.ShardIndex).
//
//   - Entry: The slot value plus the index of its last write. The index is used to
//     ignore stale writes, e.g. when raft replays log entries that are older than
//     the snapshot that was just loaded.
//
// Persistence:
//
//	Save writes a binary snapshot (magic "MAPLEDB\x00", version 4) of all slots.
//	Load reads such a snapshot and swaps the shards atomically, so a truncated
//	snapshot never leaves the database half-loaded.
//
// Usage Example:
//
//	database := maple.NewMapleDB(nil)
//	_ = database.Set("todos-default", []byte(`{"todos":[]}`), 1)
//	value, ok, _ := database.Get("todos-default")
package maple
