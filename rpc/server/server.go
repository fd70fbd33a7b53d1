package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/db/engines/maple"
	"github.com/ValentinKolb/dTodo/lib/db/engines/sqlite"
	"github.com/ValentinKolb/dTodo/lib/lockmgr"
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/ValentinKolb/dTodo/lib/store"
	"github.com/ValentinKolb/dTodo/lib/store/dstore"
	"github.com/ValentinKolb/dTodo/lib/store/lstore"
	"github.com/ValentinKolb/dTodo/lib/template"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/ValentinKolb/dTodo/rpc/common"
	"github.com/ValentinKolb/dTodo/rpc/serializer"
	"github.com/ValentinKolb/dTodo/rpc/transport"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"
)

var Logger = logger.GetLogger("rpc")

const shutdownTimeout = 10 * time.Second

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return &rpcServer{
		config:      config,
		transport:   transport,
		serializer:  serializer,
		adapter:     NewTodoServerAdapter(),
		collections: xsync.NewMapOf[string, *todo.Store](),
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter

	slots       store.IStore
	options     []todo.Option
	collections *xsync.MapOf[string, *todo.Store]

	// closeBackend releases the slot backend (snapshot, sqlite file, node host)
	closeBackend func() error
}

// --------------------------------------------------------------------------
// Collections
// --------------------------------------------------------------------------

// collection returns the store of the named collection, opening it on first use
func (s *rpcServer) collection(name string) (*todo.Store, error) {
	if st, ok := s.collections.Load(name); ok {
		return st, nil
	}
	if name == "" {
		return nil, fmt.Errorf("collection name must not be empty")
	}

	var openErr error
	st, ok := s.collections.Compute(name, func(old *todo.Store, loaded bool) (*todo.Store, bool) {
		if loaded {
			return old, false
		}
		st, todos, err := todo.Open(s.slots, name, s.options...)
		if err != nil {
			openErr = err
			return nil, true
		}
		Logger.Infof("opened collection %q (%d records)", name, len(todos))
		return st, false
	})
	if !ok {
		return nil, openErr
	}
	return st, nil
}

// handle is the transport handler: decode, dispatch to the adapter, encode
func (s *rpcServer) handle(storeName string, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else if st, err := s.collection(storeName); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to open collection: %s", err))
	} else {
		respMsg = s.adapter.Handle(&msg, st)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// view renders the read-only page of a collection
func (s *rpcServer) view(storeName string, w io.Writer) error {
	st, err := s.collection(storeName)
	if err != nil {
		return err
	}
	todos, err := st.FindAll()
	if err != nil {
		return err
	}
	return template.Page(w, storeName, todos, model.CountOf(todos))
}

// --------------------------------------------------------------------------
// Backends
// --------------------------------------------------------------------------

func (s *rpcServer) initBackend() error {
	switch s.config.Backend {
	case common.BackendMemory, "":
		kv := maple.NewMapleDB(&maple.DBOptions{NumShards: s.config.Shards})
		if err := loadSnapshot(kv, s.config.SnapshotFile); err != nil {
			return err
		}
		s.slots = lstore.NewLocalStore(func() db.KVDB { return kv })
		s.closeBackend = func() error {
			return errors.Join(saveSnapshot(kv, s.config.SnapshotFile), kv.Close())
		}

	case common.BackendSQLite:
		kv, err := sqlite.Open(s.config.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database %q: %w", s.config.DBPath, err)
		}
		s.slots = lstore.NewLocalStore(func() db.KVDB { return kv })
		s.closeBackend = kv.Close

	case common.BackendRaft:
		if _, ok := s.config.ClusterMembers[s.config.ReplicaID]; !ok {
			return fmt.Errorf("replica %d is not a cluster member", s.config.ReplicaID)
		}
		nodeHost, err := dragonboat.NewNodeHost(s.config.ToNodeHostConfig())
		if err != nil {
			return fmt.Errorf("failed to create node host: %w", err)
		}
		dbFactory := func() db.KVDB { return maple.NewMapleDB(&maple.DBOptions{NumShards: s.config.Shards}) }
		if err := nodeHost.StartConcurrentReplica(s.config.ClusterMembers, false, dstore.CreateStateMachineFactory(dbFactory), s.config.ToDragonboatConfig()); err != nil {
			nodeHost.Close()
			return fmt.Errorf("failed to start shard %d: %w", s.config.ShardID, err)
		}
		timeout := time.Duration(s.config.TimeoutSecond) * time.Second
		s.slots = dstore.NewDistributedStore(nodeHost, s.config.ShardID, timeout)
		s.closeBackend = func() error {
			nodeHost.Close()
			return nil
		}

	default:
		return fmt.Errorf("invalid backend: %q", s.config.Backend)
	}

	if s.config.Lease {
		ttl := time.Duration(s.config.LeaseTTLSecond) * time.Second
		wait := time.Duration(s.config.LeaseWaitSecond) * time.Second
		s.options = append(s.options,
			todo.WithLease(lockmgr.NewLockManager(s.slots)),
			todo.WithLeaseTimeout(ttl, wait),
		)
	}
	return nil
}

// loadSnapshot restores the maple database from path, a missing file is an empty database
func loadSnapshot(kv db.KVDB, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		Logger.Infof("no snapshot at %s, starting empty", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if err := kv.Load(f); err != nil {
		return fmt.Errorf("failed to load snapshot %s: %w", path, err)
	}
	Logger.Infof("loaded snapshot %s (%d slots)", path, kv.GetInfo().SlotCount)
	return nil
}

// saveSnapshot writes the maple database to path via a temporary file
func saveSnapshot(kv db.KVDB, path string) error {
	if path == "" {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := kv.Save(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	Logger.Infof("saved snapshot %s", path)
	return nil
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (s *rpcServer) init() error {
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}
	if err := s.initBackend(); err != nil {
		return err
	}
	Logger.Infof("dTodo setup completed successfully (backend %s)", s.config.Backend)

	s.transport.RegisterHandler(s.handle)
	s.transport.RegisterView(s.view)
	return nil
}

// close releases the backend, it is safe to call more than once
func (s *rpcServer) close() error {
	if s.closeBackend == nil {
		return nil
	}
	err := s.closeBackend()
	s.closeBackend = nil
	return err
}

// Serve starts the RPC server and blocks until SIGINT or SIGTERM.
// This function will also initialize the backend and start the transport layer
func (s *rpcServer) Serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.ServeContext(ctx)
}

// ServeContext is like Serve but stops when ctx is done
func (s *rpcServer) ServeContext(ctx context.Context) error {
	if err := s.init(); err != nil {
		return errors.Join(err, s.close())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.transport.Listen(s.config) }()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		Logger.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = s.transport.Shutdown(shutdownCtx)
		cancel()
		if listenErr := <-errCh; err == nil {
			err = listenErr
		}
	}
	return errors.Join(err, s.close())
}
