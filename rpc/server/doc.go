// Package server implements the dtodo RPC server.
//
// The server owns one slot backend and opens a todo.Store per collection name on
// first use. Every request is decoded by the serializer, handed to the
// IRPCServerAdapter together with the collection store and the response is
// encoded again. The transport also gets a view that renders the collection as a
// read-only HTML page.
//
// Backends (common.ServerConfig.Backend):
//
//   - memory: a maple database, loaded from SnapshotFile at start and written back at shutdown.
//   - sqlite: a durable sqlite file at DBPath.
//   - raft: a dragonboat shard replicated over ClusterMembers, all RAFT parameters
//     (RTTMillisecond, SnapshotEntries, CompactionOverhead, DataDir, ReplicaID) must be set.
//
// With Lease enabled every write of a collection holds a lockmgr lease stored
// next to the collection slot, which serializes writers across server processes
// sharing a backend.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Backend:  common.BackendSQLite,
//	  DBPath:   "dtodo.db",
//	  Endpoint: "0.0.0.0:8080",
//	  LogLevel: "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  http.NewHttpServerTransport(),
//	  serializer.NewJSONSerializer(),
//	)
//
//	// blocks until SIGINT or SIGTERM
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
package server
