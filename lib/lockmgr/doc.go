// Package lockmgr implements writer leases on top of any store.IStore.
//
// The todo store uses a lease on "<collection>.lock" so that several dtodo
// processes sharing one slot store (a sqlite file, a raft shard) do not
// interleave their read-modify-write cycles on the same collection.
//
// The lock manager keeps no state of its own, every lease lives in the store.
// It is therefore safe to create several managers on the same store.
//
// Acquisition:
//
//	The lease value is a small JSON document with a random owner ID (uuid) and a
//	deadline. AcquireLock writes it with SetIfUnset and reads the slot back; the
//	lease is held if the stored owner is ours. If another owner holds a lease whose
//	deadline has passed, it is replaced with CompareAndSwap against the exact bytes
//	that were judged expired.
//
// Release:
//
//	ReleaseLock deletes the slot with CompareAndDelete against its own lease, so a
//	writer whose lease was taken over cannot remove the lease of the new owner.
//
// Guarantees:
//
//	Set-if-unset and the compare operations are atomic on every store (one xsync
//	Compute in maple, one conditional statement in sqlite, one raft entry in dstore).
//	Two writers therefore never hold a lease at the same time, also when both try to
//	take over the same expired lease.
//
// Usage Example:
//
//	lm := lockmgr.NewLockManager(slots)
//	ownerID, err := lockmgr.Wait(ctx, lm, "todos-default.lock", 5*time.Second, 0)
//	if err != nil { ... }
//	defer lm.ReleaseLock("todos-default.lock", ownerID)
package lockmgr
