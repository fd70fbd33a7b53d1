package lockmgr

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/db/engines/maple"
	"github.com/ValentinKolb/dTodo/lib/store"
	"github.com/ValentinKolb/dTodo/lib/store/lstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() store.IStore {
	return lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) })
}

func TestAcquireRelease(t *testing.T) {
	lm := NewLockManager(newStore())

	ok, owner, err := lm.AcquireLock("todos.lock", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, owner)

	ok, other, err := lm.AcquireLock("todos.lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a live lease must not be acquired twice")
	assert.Nil(t, other)

	released, err := lm.ReleaseLock("todos.lock", []byte("someone-else"))
	require.NoError(t, err)
	assert.False(t, released)

	released, err = lm.ReleaseLock("todos.lock", owner)
	require.NoError(t, err)
	assert.True(t, released)

	ok, _, err = lm.AcquireLock("todos.lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseMissing(t *testing.T) {
	lm := NewLockManager(newStore())
	released, err := lm.ReleaseLock("missing.lock", []byte("x"))
	require.NoError(t, err)
	assert.True(t, released)
}

func TestExpiredLeaseIsTakenOver(t *testing.T) {
	slots := newStore()
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	first := &lockMgrImpl{store: slots, now: clock}
	second := &lockMgrImpl{store: slots, now: clock}

	ok, firstOwner, err := first.AcquireLock("todos.lock", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = second.AcquireLock("todos.lock", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Second)
	ok, secondOwner, err := second.AcquireLock("todos.lock", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// the previous owner can no longer release the lease
	released, err := first.ReleaseLock("todos.lock", firstOwner)
	require.NoError(t, err)
	assert.False(t, released)

	released, err = second.ReleaseLock("todos.lock", secondOwner)
	require.NoError(t, err)
	assert.True(t, released)
}

func TestGarbageLeaseIsTakenOver(t *testing.T) {
	slots := newStore()
	require.NoError(t, slots.Set("todos.lock", []byte("not a lease")))

	ok, _, err := NewLockManager(slots).AcquireLock("todos.lock", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWait(t *testing.T) {
	lm := NewLockManager(newStore())
	_, owner, err := lm.AcquireLock("todos.lock", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = Wait(ctx, lm, "todos.lock", 0, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = lm.ReleaseLock("todos.lock", owner)
	}()
	got, err := Wait(context.Background(), lm, "todos.lock", 0, 5*time.Millisecond)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

// pausedAfterGet blocks the first Get after it has read the slot until resume is closed
type pausedAfterGet struct {
	store.IStore
	reached chan struct{}
	resume  chan struct{}
	once    sync.Once
}

func newPausedAfterGet(inner store.IStore) *pausedAfterGet {
	return &pausedAfterGet{IStore: inner, reached: make(chan struct{}), resume: make(chan struct{})}
}

func (p *pausedAfterGet) Get(key string) ([]byte, bool, error) {
	value, ok, err := p.IStore.Get(key)
	p.once.Do(func() {
		close(p.reached)
		<-p.resume
	})
	return value, ok, err
}

type acquireResult struct {
	ok  bool
	err error
}

func TestExpiredLease_RacingTakeoverHasOneWinner(t *testing.T) {
	slots := newStore()
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	previous := &lockMgrImpl{store: slots, now: clock}
	ok, _, err := previous.AcquireLock("todos.lock", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	now = now.Add(2 * time.Second)

	gated := newPausedAfterGet(slots)
	late := &lockMgrImpl{store: gated, now: clock}
	early := &lockMgrImpl{store: slots, now: clock}

	lateDone := make(chan acquireResult, 1)
	go func() {
		ok, _, err := late.AcquireLock("todos.lock", time.Second)
		lateDone <- acquireResult{ok, err}
	}()

	// late has seen the expired lease, early takes it over first
	<-gated.reached
	ok, _, err = early.AcquireLock("todos.lock", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	close(gated.resume)
	res := <-lateDone
	require.NoError(t, res.err)
	assert.False(t, res.ok, "the lease was already taken over by another writer")
}

func TestRelease_AfterTakeoverKeepsNewLease(t *testing.T) {
	slots := newStore()
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	gated := newPausedAfterGet(slots)
	previous := &lockMgrImpl{store: gated, now: clock}
	successor := &lockMgrImpl{store: slots, now: clock}

	// acquire through the raw store, release through the gated one
	ok, previousOwner, err := (&lockMgrImpl{store: slots, now: clock}).AcquireLock("todos.lock", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	released := make(chan acquireResult, 1)
	go func() {
		ok, err := previous.ReleaseLock("todos.lock", previousOwner)
		released <- acquireResult{ok, err}
	}()

	<-gated.reached
	now = now.Add(2 * time.Second)
	ok, successorOwner, err := successor.AcquireLock("todos.lock", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	close(gated.resume)
	res := <-released
	require.NoError(t, res.err)
	assert.False(t, res.ok)

	// the successor still holds its lease
	ok, _, err = NewLockManager(slots).AcquireLock("todos.lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = successor.ReleaseLock("todos.lock", successorOwner)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpiredLease_ManyContenders(t *testing.T) {
	slots := newStore()
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	ok, _, err := (&lockMgrImpl{store: slots, now: clock}).AcquireLock("todos.lock", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	now = now.Add(2 * time.Second)

	const contenders = 16
	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := (&lockMgrImpl{store: slots, now: clock}).AcquireLock("todos.lock", time.Minute)
			assert.NoError(t, err)
			if ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}
