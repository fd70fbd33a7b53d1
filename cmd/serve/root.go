package serve

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/dTodo/cmd/util"
	"github.com/ValentinKolb/dTodo/lib/db/util"
	"github.com/ValentinKolb/dTodo/rpc/common"
	"github.com/ValentinKolb/dTodo/rpc/serializer"
	"github.com/ValentinKolb/dTodo/rpc/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dtodo server",
		Long:    `Start the dtodo server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DTODO_<flag> (e.g. DTODO_DB_PATH=todos.db)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "backend"
	ServeCmd.PersistentFlags().String(key, "memory", cmdUtil.WrapString("Where the collections are stored: memory (optionally persisted with --snapshot-file), sqlite (--db-path) or raft (replicated over --cluster-members)"))

	key = "snapshot-file"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(memory backend) File the collections are loaded from at start and written to at shutdown"))

	key = "db-path"
	ServeCmd.PersistentFlags().String(key, "dtodo.db", cmdUtil.WrapString("(sqlite backend) Path of the sqlite database"))

	key = "shards"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("(memory and raft backend) Number of shards of the in-memory database, 0 uses the number of cpus"))

	key = "lease"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Hold a writer lease for every write of a collection. Needed when several servers share one backend"))

	key = "lease-ttl"
	ServeCmd.PersistentFlags().Int64(key, 10, cmdUtil.WrapString("Seconds after which an unreleased lease expires"))

	key = "lease-wait"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Seconds a write waits for the lease before it fails"))

	key = "shard-id"
	ServeCmd.PersistentFlags().Uint64(key, 100, cmdUtil.WrapString("(raft backend) ID of the raft shard holding the collections"))

	key = "rtt-millisecond"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("(raft backend) RTTMillisecond defines the average Round Trip Time (RTT) in milliseconds between two NodeHost instances. \nOther raft configuration parameters (ElectionRTT=value/10, HeartbeatRTT=value/100) are derived from this value"))

	key = "snapshot-entries"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("(raft backend) SnapshotEntries defines how often the state machine should be snapshotted automatically. It is defined in terms of the number of applied Raft log entries. SnapshotEntries can be set to 0 to disable such automatic snapshotting (not recommended)"))

	key = "compaction-overhead"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("(raft backend) CompactionOverhead defines the number of snapshots that should be retained in the system. Recommended value is about 1/2 of SnapshotEntries"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("(raft backend) DataDir is the directory used for storing the raft log and snapshots"))

	key = "replica-id"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(raft backend) ReplicaID is the unique identifier for this NodeHost instance (e.g. 'node-1')"))

	key = "cluster-members"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(raft backend) ClusterMembers is a comma-separated list of NodeHost addresses in the format 'node-1=localhost:63001,node-2=localhost:63002,...'"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("(raft backend) Timeout in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080), the socket path for the unix transport"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("(tcp and unix transport) Number of requests of one connection handled concurrently"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	backend, err := common.ParseBackend(viper.GetString("backend"))
	if err != nil {
		return err
	}
	serveCmdConfig.Backend = backend

	if _, err := common.ParseLogLevel(viper.GetString("log-level")); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.SnapshotFile = viper.GetString("snapshot-file")
	serveCmdConfig.DBPath = viper.GetString("db-path")
	serveCmdConfig.Shards = viper.GetInt("shards")
	serveCmdConfig.Lease = viper.GetBool("lease")
	serveCmdConfig.LeaseTTLSecond = viper.GetInt64("lease-ttl")
	serveCmdConfig.LeaseWaitSecond = viper.GetInt64("lease-wait")
	serveCmdConfig.ShardID = viper.GetUint64("shard-id")
	serveCmdConfig.RTTMillisecond = viper.GetUint64("rtt-millisecond")
	serveCmdConfig.SnapshotEntries = viper.GetUint64("snapshot-entries")
	serveCmdConfig.CompactionOverhead = viper.GetUint64("compaction-overhead")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Serializer = viper.GetString("serializer")
	serveCmdConfig.Transport = viper.GetString("transport")
	serveCmdConfig.WorkersPerConn = viper.GetInt("workers-per-conn")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.Lease && serveCmdConfig.LeaseTTLSecond <= 0 {
		return fmt.Errorf("lease-ttl must be positive")
	}

	isRaft := serveCmdConfig.Backend == common.BackendRaft

	// parse replica id
	if id := viper.GetString("replica-id"); id != "" {
		serveCmdConfig.ReplicaID = util.HashString(id, 0)
	} else if isRaft {
		// error only if cluster mode
		return fmt.Errorf("ReplicaId is required for the raft backend")
	}

	// parse cluster members
	if clusterMembers := viper.GetString("cluster-members"); clusterMembers != "" {
		serveCmdConfig.ClusterMembers = make(map[uint64]string)
		for _, member := range strings.Split(clusterMembers, ",") {
			parts := strings.Split(member, "=")
			if len(parts) != 2 {
				return fmt.Errorf("invalid cluster member format: %s (expected ID=address)", member)
			}
			serveCmdConfig.ClusterMembers[util.HashString(parts[0], 0)] = parts[1]
		}
	} else if isRaft {
		return fmt.Errorf("ClusterMembers is required for the raft backend")
	}

	// test if the replica id is in the cluster members (only for cluster mode)
	if _, ok := serveCmdConfig.ClusterMembers[serveCmdConfig.ReplicaID]; !ok && isRaft {
		return fmt.Errorf("no address found for replica ID %d in cluster members", serveCmdConfig.ReplicaID)
	}

	return nil
}

// run starts the dtodo server
func run(_ *cobra.Command, _ []string) error {
	s, err := serializer.ByName(serveCmdConfig.Serializer)
	if err != nil {
		return err
	}

	t, err := cmdUtil.NewServerTransport(serveCmdConfig.Transport)
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	return serv.Serve()
}

// initConfig reads in ENV variables and .env files if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dtodo")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
