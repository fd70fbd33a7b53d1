package lockmgr

import "time"

// ILockManager defines the interface for a lease provider.
type ILockManager interface {
	// AcquireLock acquires a lease for the given key that expires after ttl (0 = never).
	// Returns whether the lease was acquired and the owner ID needed to release it.
	// An expired lease of another owner is taken over.
	AcquireLock(key string, ttl time.Duration) (ok bool, ownerID []byte, err error)

	// ReleaseLock releases the lease for the given key.
	// Returns whether the lease was released. A missing lease counts as released,
	// a lease held by another owner is left untouched and false is returned.
	ReleaseLock(key string, ownerID []byte) (ok bool, err error)
}
