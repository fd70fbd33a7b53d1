package util

import (
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/db/engines/sqlite"
	"github.com/ValentinKolb/dTodo/lib/lockmgr"
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/ValentinKolb/dTodo/lib/store/lstore"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/ValentinKolb/dTodo/rpc/client"
	"github.com/ValentinKolb/dTodo/rpc/common"
	"github.com/ValentinKolb/dTodo/rpc/serializer"
	"github.com/ValentinKolb/dTodo/rpc/transport"
	"github.com/ValentinKolb/dTodo/rpc/transport/http"
	"github.com/ValentinKolb/dTodo/rpc/transport/tcp"
	"github.com/ValentinKolb/dTodo/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds the connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, "http://localhost:8080", WrapString("The address of the dtodo server. Multiple endpoints can be specified as a comma-separated list, requests are balanced round robin"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry the request"))

	key = "connections"
	cmd.PersistentFlags().Int(key, 1, WrapString("(tcp and unix transport) Number of connections per endpoint"))

	key = "store"
	cmd.PersistentFlags().String(key, "todos", WrapString("Name of the collection"))

	key = "local"
	cmd.PersistentFlags().String(key, "", WrapString("Path of a sqlite database to use directly instead of a server (e.g. todos.db)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dtodo")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
		Endpoints:     strings.Split(viper.GetString("endpoints"), ","),

		ConnectionsPerEndpoint: viper.GetInt("connections"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.ByName(viper.GetString("serializer"))
}

// GetTransport creates the client transport selected by --transport
func GetTransport() (transport.IRPCClientTransport, error) {
	switch name := strings.ToLower(viper.GetString("transport")); name {
	case "http", "":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %q, must be one of http, tcp, unix", name)
	}
}

// NewServerTransport creates the server transport with the given name
func NewServerTransport(name string) (transport.IRPCServerTransport, error) {
	switch strings.ToLower(name) {
	case "http", "":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %q, must be one of http, tcp, unix", name)
	}
}

// GetStoreName retrieves the configured collection name
func GetStoreName() string {
	return viper.GetString("store")
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Collection access
// --------------------------------------------------------------------------

// Collection is a local or remote todo store that has to be closed after use
type Collection interface {
	todo.ITodoStore
	io.Closer
}

// localCollection is a todo.Store on a sqlite file owned by the command
type localCollection struct {
	*todo.Store
	kv db.KVDB
}

func (c *localCollection) Close() error {
	return c.kv.Close()
}

// OpenCollection opens the configured collection, either directly in the sqlite
// database given by --local or on the server given by --endpoints
func OpenCollection() (Collection, error) {
	name := GetStoreName()
	if name == "" {
		return nil, fmt.Errorf("the collection name must not be empty")
	}

	if path := viper.GetString("local"); path != "" {
		return OpenLocalCollection(path, name)
	}

	s, err := GetSerializer()
	if err != nil {
		return nil, err
	}
	t, err := GetTransport()
	if err != nil {
		return nil, err
	}
	return client.NewRPCTodoStore(name, *GetClientConfig(), t, s)
}

// OpenLocalCollection opens the named collection in a sqlite database.
// Writes hold a lease, other dtodo processes may use the same file.
func OpenLocalCollection(path, name string) (Collection, error) {
	kv, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	slots := lstore.NewLocalStore(func() db.KVDB { return kv })
	st, _, err := todo.Open(slots, name, todo.WithLease(lockmgr.NewLockManager(slots)))
	if err != nil {
		kv.Close()
		return nil, err
	}
	return &localCollection{Store: st, kv: kv}, nil
}

// Count returns the counters of a collection, remote stores ask the server
func Count(c todo.ITodoStore) (model.Count, error) {
	if counter, ok := c.(interface{ Count() (model.Count, error) }); ok {
		return counter.Count()
	}
	return model.New(c).GetCount()
}
