// Package dstore replicates the todo slots with the Dragonboat RAFT library.
// It implements store.IStore, so a todo.Store can run unchanged on a single node
// (lstore) or on a cluster of dtodo servers.
//
// Components:
//
//   - storeImpl (store.go): turns IStore calls into internal.Command proposals
//     (writes) and internal.Query lookups (reads).
//
//   - SlotStateMachine (statemachine.go): a Dragonboat IConcurrentStateMachine that
//     owns the db.KVDB of a replica and applies committed commands to it.
//
// Writes:
//
//	Set, SetIfUnset and Delete are proposed via SyncPropose. Once a majority has
//	committed the entry, every replica applies it with the raft log index as the
//	write index of the db. Replaying entries after recovery is therefore idempotent.
//
// Reads:
//
//	Get and Has use SyncRead (linearizable). GetDBInfo uses StaleRead and may lag
//	behind the leader.
//
// Retries:
//
//	dragonboat.ErrSystemBusy is retried a few times with a short sleep, every
//	attempt is bounded by the configured timeout.
//
// Snapshots:
//
//	SaveSnapshot and RecoverFromSnapshot delegate to db.KVDB Save and Load. The
//	snapshot is fuzzy; the log entries after it are replayed on recovery.
//
// Example:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	factory := func() db.KVDB { return maple.NewMapleDB(nil) }
//	err = nh.StartConcurrentReplica(members, false, dstore.CreateStateMachineFactory(factory), shardConfig)
//	if err != nil { ... }
//
//	slots := dstore.NewDistributedStore(nh, shardID, 5*time.Second)
//
// Deploy an odd number of replicas. Writes need the leader and a majority.
package dstore
