package lockmgr

import (
	"github.com/ValentinKolb/dTodo/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var log = logger.GetLogger("lockmgr")

type lockMgrImpl struct {
	store store.IStore
	now   func() time.Time
}

func NewLockManager(store store.IStore) ILockManager {
	return &lockMgrImpl{
		store: store,
		now:   time.Now,
	}
}

func (lm *lockMgrImpl) AcquireLock(key string, ttl time.Duration) (bool, []byte, error) {
	ownerID := generateOwnerID()
	want := lease{Owner: string(ownerID)}
	if ttl > 0 {
		want.Deadline = lm.now().Add(ttl).UnixMilli()
	}
	value := encodeLease(want)

	// Try to acquire the lease (set only if it doesn't exist)
	if err := lm.store.SetIfUnset(key, value); err != nil {
		return false, nil, err
	}

	current, found, err := lm.store.Get(key)
	if err != nil {
		return false, nil, err
	}
	if !found {
		// released between our write and read, the next attempt may succeed
		return false, nil, nil
	}

	held := decodeLease(current)
	if held.Owner == want.Owner {
		return true, ownerID, nil
	}
	if !held.expired(lm.now()) {
		return false, nil, nil
	}

	// Take over the expired lease. The swap only succeeds if the slot still holds
	// the exact lease we judged expired, so of two contenders at most one wins.
	swapped, err := lm.store.CompareAndSwap(key, current, value)
	if err != nil {
		return false, nil, err
	}
	if !swapped {
		return false, nil, nil
	}
	log.Warningf("took over expired lease %q of owner %s", key, held.Owner)
	return true, ownerID, nil
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID []byte) (bool, error) {
	value, ok, err := lm.store.Get(key)
	if err != nil || !ok {
		return err == nil, err
	}

	if decodeLease(value).Owner != string(ownerID) {
		return false, nil
	}

	// a lease taken over after the Get above is left alone
	return lm.store.CompareAndDelete(key, value)
}
