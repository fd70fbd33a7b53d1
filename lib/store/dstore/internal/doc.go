// Package internal defines the wire structures exchanged between the dstore
// client and the replicated state machine.
//
//   - Command: a write (Set, SetIfUnset, Delete, CompareAndSwap, CompareAndDelete)
//     on one slot. Commands are stored in the raft log and therefore serialized
//     into a compact binary form.
//
//   - Query: a read (Get, Has, GetDBInfo). Queries are passed to the state machine
//     as Go values and evaluate themselves on its db (Query.Run).
//
// Command Format:
//
//	- 1 byte: Command type
//	- 4 bytes: Key length (uint32, big endian)
//	- N bytes: Key data (slot name)
//	- compare commands only: 4 bytes expected length, then the expected value
//	- M bytes: Value data (the serialized collection, absent for deletes)
//
// The types are not thread-safe. The raft log applies commands sequentially,
// so no sharing happens in practice.
package internal
