package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/lockmgr"
	"github.com/ValentinKolb/dTodo/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"time"
)

var log = logger.GetLogger("todo")

var emptyCollection = []byte(`{"todos":[]}`)

var _ ITodoStore = (*Store)(nil)

// Store is one named collection persisted in a single slot of a store.IStore.
type Store struct {
	slots store.IStore
	name  string
	ids   *idGenerator

	// mu serializes the read-modify-write cycles of this handle
	mu sync.Mutex

	lease     lockmgr.ILockManager
	leaseTTL  time.Duration
	leaseWait time.Duration
	clock     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLease makes every write hold the lease "<name>.lock" in the slot store.
// Use it when several processes write the same collection.
func WithLease(lm lockmgr.ILockManager) Option {
	return func(s *Store) {
		s.lease = lm
	}
}

// WithLeaseTimeout sets how long a lease lives (ttl) and how long a write waits for it.
func WithLeaseTimeout(ttl, wait time.Duration) Option {
	return func(s *Store) {
		s.leaseTTL = ttl
		s.leaseWait = wait
	}
}

// WithClock sets the clock the ids are derived from.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.clock = now
	}
}

// Open creates the collection if the slot does not exist yet and returns the
// handle together with the current records. Opening an existing collection
// leaves it untouched.
func Open(slots store.IStore, name string, opts ...Option) (*Store, []Todo, error) {
	s := &Store{
		slots:     slots,
		name:      name,
		leaseTTL:  10 * time.Second,
		leaseWait: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ids = newIDGenerator(s.clock)

	if err := slots.SetIfUnset(name, emptyCollection); err != nil {
		return nil, nil, fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	todos, err := s.load()
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("opened collection %q with %d records", name, len(todos))
	return s, todos, nil
}

func (s *Store) Name() string {
	return s.name
}

// --------------------------------------------------------------------------
// Reads
// --------------------------------------------------------------------------

// Find returns the records whose fields equal all query values.
func (s *Store) Find(query Query) ([]Todo, error) {
	q, err := query.compile()
	if err != nil {
		return nil, err
	}
	todos, err := s.load()
	if err != nil {
		return nil, err
	}
	matched := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if q.matches(t) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func (s *Store) FindAll() ([]Todo, error) {
	return s.load()
}

// --------------------------------------------------------------------------
// Writes
// --------------------------------------------------------------------------

// Save creates a record (id == NoID) or merges the patch into an existing one.
func (s *Store) Save(patch Patch, id ID) ([]Todo, error) {
	p, err := patch.compile()
	if err != nil {
		return nil, err
	}

	if id == NoID {
		var created Todo
		_, err := s.update(func(todos []Todo) ([]Todo, error) {
			for _, t := range todos {
				s.ids.observe(t.ID)
			}
			created = Todo{ID: s.ids.next()}
			p.apply(&created)
			return append(todos, created), nil
		})
		if err != nil {
			return nil, err
		}
		log.Debugf("created record %d in %q", created.ID, s.name)
		return []Todo{created.clone()}, nil
	}

	return s.update(func(todos []Todo) ([]Todo, error) {
		for i := range todos {
			if todos[i].ID == id {
				p.apply(&todos[i])
				break
			}
		}
		return todos, nil
	})
}

// Remove deletes every record with the id.
func (s *Store) Remove(id ID) ([]Todo, error) {
	return s.update(func(todos []Todo) ([]Todo, error) {
		kept := todos[:0]
		for _, t := range todos {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		return kept, nil
	})
}

// Drop replaces the collection with an empty one.
func (s *Store) Drop() ([]Todo, error) {
	return s.update(func([]Todo) ([]Todo, error) {
		return []Todo{}, nil
	})
}

// update runs one read-modify-write cycle and returns a copy of the persisted records
func (s *Store) update(fn func([]Todo) ([]Todo, error)) ([]Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lease != nil {
		release, err := s.acquireLease()
		if err != nil {
			return nil, err
		}
		defer release()
	}

	todos, err := s.load()
	if err != nil {
		return nil, err
	}
	todos, err = fn(todos)
	if err != nil {
		return nil, err
	}
	if err := s.persist(todos); err != nil {
		return nil, err
	}

	out := make([]Todo, len(todos))
	for i, t := range todos {
		out[i] = t.clone()
	}
	return out, nil
}

func (s *Store) acquireLease() (func(), error) {
	key := s.name + ".lock"
	ctx, cancel := context.WithTimeout(context.Background(), s.leaseWait)
	defer cancel()

	ownerID, err := lockmgr.Wait(ctx, s.lease, key, s.leaseTTL, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %q: %w", key, err)
	}
	return func() {
		if ok, err := s.lease.ReleaseLock(key, ownerID); err != nil || !ok {
			log.Warningf("failed to release lease %q (released=%v): %v", key, ok, err)
		}
	}, nil
}

// --------------------------------------------------------------------------
// Serialization
// --------------------------------------------------------------------------

// load reads and decodes the slot. A missing slot is an empty collection.
func (s *Store) load() ([]Todo, error) {
	value, ok, err := s.slots.Get(s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %q: %w", s.name, err)
	}
	if !ok || len(value) == 0 {
		return []Todo{}, nil
	}

	var c collection
	if err := json.Unmarshal(value, &c); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrCorruptCollection, s.name, err)
	}
	if c.Todos == nil {
		c.Todos = []Todo{}
	}
	return c.Todos, nil
}

func (s *Store) persist(todos []Todo) error {
	if todos == nil {
		todos = []Todo{}
	}
	value, err := json.Marshal(collection{Todos: todos})
	if err != nil {
		return fmt.Errorf("failed to encode collection %q: %w", s.name, err)
	}
	if err := s.slots.Set(s.name, value); err != nil {
		return fmt.Errorf("failed to write collection %q: %w", s.name, err)
	}
	return nil
}
