package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/config"
	"sort"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// helper functions for to interface with Dragonboat (for the raft backend)
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the ServerConfig to Dragonboat Config
func (c *ServerConfig) ToDragonboatConfig() config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            c.ShardID,
		ElectionRTT:        electionRTTFactor,
		HeartbeatRTT:       heartbeatRTTFactor,
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
		MaxInMemLogSize:    0,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         c.DataDir,
		NodeHostDir:    c.DataDir,
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// Backend selects where the slots of the collections are kept
type Backend string

const (
	BackendMemory Backend = "memory" // maple, optionally persisted as snapshot file
	BackendSQLite Backend = "sqlite" // sqlite file
	BackendRaft   Backend = "raft"   // dragonboat shard replicated over ClusterMembers
)

// ParseBackend validates a backend name
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(s)); b {
	case BackendMemory, BackendSQLite, BackendRaft:
		return b, nil
	default:
		return "", fmt.Errorf("invalid backend %q, must be one of memory, sqlite, raft", s)
	}
}

// ServerConfig holds all configuration parameters of a dtodo server.
type ServerConfig struct {
	// Slot backend
	Backend      Backend
	SnapshotFile string // memory backend: loaded on start, written on shutdown ("" = off)
	DBPath       string // sqlite backend
	Shards       int    // memory backend: number of maple shards (0 = number of cpus)

	// Writer lease for every collection write
	Lease           bool
	LeaseTTLSecond  int64
	LeaseWaitSecond int64

	// Dragonboat parameters (raft backend)
	ShardID            uint64
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string
	ReplicaID          uint64
	ClusterMembers     map[uint64]string
	TimeoutSecond      int64

	// RPC api settings
	Transport      string // http, tcp or unix
	Endpoint       string // address, or socket path for unix
	Serializer     string
	WorkersPerConn int // tcp and unix: concurrent requests per connection (0 = default)

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Transport", orDefault(c.Transport, "http"))
	addField("Endpoint", c.Endpoint)
	addField("Serializer", c.Serializer)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Storage")
	addField("Backend", string(c.Backend))
	switch c.Backend {
	case BackendMemory:
		addField("Shards", strconv.Itoa(c.Shards))
		addField("Snapshot File", orNone(c.SnapshotFile))
	case BackendSQLite:
		addField("Database", c.DBPath)
	}
	addField("Writer Lease", fmt.Sprintf("%t (ttl %d sec, wait %d sec)", c.Lease, c.LeaseTTLSecond, c.LeaseWaitSecond))

	if c.Backend == BackendRaft {
		addSection("Node Identity")
		addField("RAFT Address", c.ClusterMembers[c.ReplicaID])
		addField("Node ID", strconv.FormatUint(c.ReplicaID, 10))
		addField("Shard ID", strconv.FormatUint(c.ShardID, 10))

		addSection("RAFT Parameters")
		addField("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.RTTMillisecond))
		addField("Election RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*electionRTTFactor))
		addField("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*heartbeatRTTFactor))
		addField("Snapshot Entries", fmt.Sprintf("%d", c.SnapshotEntries))
		addField("Compaction Overhead", fmt.Sprintf("%d", c.CompactionOverhead))
		addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
		addField("Data Directory", c.DataDir)

		addSection("Cluster")
		var keys []uint64
		for k := range c.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("    Node %d: %s\n", k, c.ClusterMembers[k]))
		}
	}
	return sb.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints     []string
	TimeoutSecond int
	RetryCount    int

	// tcp and unix: pooled connections per endpoint (0 = one)
	ConnectionsPerEndpoint int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	sb.WriteString("\nCLIENT CONFIGURATION\n")
	sb.WriteString(fmt.Sprintf("  %-22s: %d sec\n", "Timeout", c.TimeoutSecond))
	sb.WriteString(fmt.Sprintf("  %-22s: %d\n", "Retry Count", c.RetryCount))
	sb.WriteString(fmt.Sprintf("  %-22s: %d\n", "Connections/Endpoint", max(1, c.ConnectionsPerEndpoint)))

	sb.WriteString("\nENDPOINTS\n")
	for i, endpoint := range c.Endpoints {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", strconv.Itoa(i), endpoint))
	}
	return sb.String()
}
