package dstore

import (
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/store"
	"github.com/ValentinKolb/dTodo/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
	"io"
	"time"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// SlotStateMachine applies replicated slot writes to a db.KVDB
type SlotStateMachine struct {
	replicaID uint64
	shardID   uint64
	database  db.KVDB
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host.
// The factory pattern is used to enable the caller to pass an interchangeable dbFactory
func CreateStateMachineFactory(dbFactory store.DBFactory) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		database := dbFactory()
		if !database.SupportsFeature(db.FeatureOrderedWrites) {
			log.Warningf("shard %d replica %d: db does not ignore stale writes, log replays may override newer slots", shardID, replicaID)
		}
		return &SlotStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			database:  database,
		}
	}
}

// Lookup evaluates an internal.Query on the db of this replica
func (fsm *SlotStateMachine) Lookup(itf interface{}) (interface{}, error) {
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}
	return q.Run(fsm.database)
}

// Update applies committed commands. The raft log index is used as the write index,
// so replaying entries after a snapshot recovery does not override newer slots.
func (fsm *SlotStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	start := time.Now()
	for idx, e := range entries {
		entries[idx].Result = fsm.apply(e)
	}

	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("State machine took long to update. Batch updated %d entries, took %.2fms", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// apply executes a single log entry and returns its result
func (fsm *SlotStateMachine) apply(e sm.Entry) sm.Result {
	if len(e.Cmd) == 0 {
		return sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte("empty command ignored")}
	}

	cmd := internal.Command{}
	if err := cmd.Deserialize(e.Cmd); err != nil {
		return sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(fmt.Sprintf("failed to deserialize command: %v", err))}
	}

	feat, err := cmd.Type.ToDBFeature()
	if err != nil {
		return sm.Result{Value: uint64(store.RetCInvalidOperation), Data: []byte(fmt.Sprintf("unknown Command operation: %s", cmd.Type))}
	}
	if !fsm.database.SupportsFeature(feat) {
		return sm.Result{Value: uint64(store.RetCUnsupportedOperation), Data: []byte(fmt.Sprintf("%s operation is not supported", cmd.Type))}
	}

	var hit bool
	switch cmd.Type {
	case internal.CommandTSet:
		err = fsm.database.Set(cmd.Key, cmd.Value, e.Index)
	case internal.CommandTSetIfUnset:
		err = fsm.database.SetIfUnset(cmd.Key, cmd.Value, e.Index)
	case internal.CommandTDelete:
		err = fsm.database.Delete(cmd.Key, e.Index)
	case internal.CommandTCompareAndSwap:
		hit, err = fsm.database.CompareAndSwap(cmd.Key, cmd.Expected, cmd.Value, e.Index)
	case internal.CommandTCompareAndDelete:
		hit, err = fsm.database.CompareAndDelete(cmd.Key, cmd.Expected, e.Index)
	}
	if err != nil {
		log.Errorf("%s on slot %q failed: %v", cmd.Type, cmd.Key, err)
		return sm.Result{Value: uint64(store.RetCInternalError), Data: []byte(err.Error())}
	}
	if cmd.Type.Compares() {
		return sm.Result{Value: uint64(store.RetCSuccess), Data: internal.EncodeHit(hit)}
	}
	return sm.Result{Value: uint64(store.RetCSuccess), Data: []byte(fmt.Sprintf("%s: key=%s", cmd.Type, cmd.Key))}
}

// PrepareSnapshot is not used. Nothing has to be prepared for fuzzy snapshots
func (fsm *SlotStateMachine) PrepareSnapshot() (interface{}, error) {
	return nil, nil
}

// SaveSnapshot saves a fuzzy db snapshot to the writer
func (fsm *SlotStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureSave) {
		return fmt.Errorf("the used KVDB implementation does not support Save() operations")
	}
	return fsm.database.Save(writer)
}

// RecoverFromSnapshot replaces the db content with the snapshot
func (fsm *SlotStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureLoad) {
		return fmt.Errorf("the used KVDB implementation does not support Load() operations")
	}
	return fsm.database.Load(r)
}

func (fsm *SlotStateMachine) Close() error {
	return fsm.database.Close()
}
