package dstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/store"
	"github.com/ValentinKolb/dTodo/lib/store/dstore/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

const busyAttempts = 5

var log = logger.GetLogger("store")

// storeImpl is a slot handle whose writes are raft proposals on one shard.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	session *client.Session
	timeout time.Duration
}

// NewDistributedStore creates a slot store replicated through the raft shard with the given id.
// All replicas of the shard must be started with CreateStateMachineFactory.
func NewDistributedStore(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) store.IStore {
	return &storeImpl{
		nh:      nh,
		shardID: shardID,
		session: nh.GetNoOPSession(shardID),
		timeout: timeout,
	}
}

// whileBusy runs attempt until it returns something other than dragonboat.ErrSystemBusy.
// Every attempt gets its own deadline of s.timeout.
func whileBusy[R any](s *storeImpl, op string, attempt func(ctx context.Context) (R, error)) (R, error) {
	var zero R
	for i := 1; i <= busyAttempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		res, err := attempt(ctx)
		cancel()

		if !errors.Is(err, dragonboat.ErrSystemBusy) {
			return res, err
		}
		log.Infof("%s on shard %d: system busy (%d/%d)", op, s.shardID, i, busyAttempts)
		time.Sleep(s.timeout / 10)
	}
	return zero, store.NewError(store.RetCInternalError, fmt.Sprintf("%s: shard %d stayed busy", op, s.shardID))
}

// propose replicates cmd, translates the state machine's return code and returns
// the result data
func (s *storeImpl) propose(cmd internal.Command) ([]byte, error) {
	data, err := whileBusy(s, cmd.Type.String(), func(ctx context.Context) ([]byte, error) {
		r, err := s.nh.SyncPropose(ctx, s.session, cmd.Serialize())
		if err != nil {
			return nil, err
		}
		if code := store.RetCode(r.Value); code != store.RetCSuccess {
			return nil, store.NewError(code, string(r.Data))
		}
		return r.Data, nil
	})
	if err != nil {
		return nil, asStoreError(err)
	}
	return data, nil
}

// lookup sends q to the state machine, linearizable unless the query is stale
func lookup[R any](s *storeImpl, q internal.Query) (R, error) {
	var zero R
	res, err := whileBusy(s, q.Type.String(), func(ctx context.Context) (interface{}, error) {
		if q.Stale() {
			return s.nh.StaleRead(s.shardID, q)
		}
		return s.nh.SyncRead(ctx, s.shardID, q)
	})
	if err != nil {
		return zero, asStoreError(err)
	}
	typed, ok := res.(R)
	if !ok {
		return zero, store.NewError(store.RetCInternalError, fmt.Sprintf("%s: unexpected result %T", q.Type, res))
	}
	return typed, nil
}

func asStoreError(err error) error {
	var se *store.Error
	if errors.As(err, &se) {
		return se
	}
	return store.NewError(store.RetCInternalError, err.Error())
}

// --------------------------------------------------------------------------
// store.IStore
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	_, err := s.propose(internal.Command{Type: internal.CommandTSet, Key: key, Value: value})
	return err
}

func (s *storeImpl) SetIfUnset(key string, value []byte) error {
	_, err := s.propose(internal.Command{Type: internal.CommandTSetIfUnset, Key: key, Value: value})
	return err
}

func (s *storeImpl) Delete(key string) error {
	_, err := s.propose(internal.Command{Type: internal.CommandTDelete, Key: key})
	return err
}

func (s *storeImpl) CompareAndSwap(key string, expected, value []byte) (bool, error) {
	data, err := s.propose(internal.Command{Type: internal.CommandTCompareAndSwap, Key: key, Expected: expected, Value: value})
	return internal.DecodeHit(data), err
}

func (s *storeImpl) CompareAndDelete(key string, expected []byte) (bool, error) {
	data, err := s.propose(internal.Command{Type: internal.CommandTCompareAndDelete, Key: key, Expected: expected})
	return internal.DecodeHit(data), err
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	res, err := lookup[internal.SlotValue](s, internal.GetQuery(key))
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	return lookup[bool](s, internal.HasQuery(key))
}

// GetDBInfo is answered by the local replica
func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return lookup[db.DatabaseInfo](s, internal.DBInfoQuery())
}
