package lockmgr

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// lease is the value stored in the lock slot
type lease struct {
	Owner    string `json:"owner"`
	Deadline int64  `json:"deadline"` // unix ms, 0 = never expires
}

func (l lease) expired(now time.Time) bool {
	return l.Deadline != 0 && now.UnixMilli() >= l.Deadline
}

// generateOwnerID creates a new unique owner ID (random uuid)
func generateOwnerID() []byte {
	return []byte(uuid.NewString())
}

func encodeLease(l lease) []byte {
	b, _ := json.Marshal(l)
	return b
}

// decodeLease parses a lock slot. A slot that is not a lease is treated as
// expired so that garbage can never block a writer forever.
func decodeLease(b []byte) lease {
	var l lease
	if err := json.Unmarshal(b, &l); err != nil || l.Owner == "" {
		return lease{Owner: "", Deadline: 1}
	}
	return l
}

// Wait polls AcquireLock until the lease is acquired or ctx is done.
func Wait(ctx context.Context, lm ILockManager, key string, ttl, poll time.Duration) ([]byte, error) {
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	for {
		ok, ownerID, err := lm.AcquireLock(key, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return ownerID, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(poll):
		}
	}
}
