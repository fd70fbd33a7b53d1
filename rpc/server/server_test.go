package server

import (
	"bytes"
	"context"
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/ValentinKolb/dTodo/rpc/common"
	"github.com/ValentinKolb/dTodo/rpc/serializer"
	httpTransport "github.com/ValentinKolb/dTodo/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"sync"
	"testing"
)

func memoryConfig() common.ServerConfig {
	return common.ServerConfig{
		Backend:  common.BackendMemory,
		Shards:   2,
		Endpoint: "127.0.0.1:0",
		LogLevel: "error",
	}
}

func newTestServer(t *testing.T, config common.ServerConfig) *rpcServer {
	t.Helper()
	s := NewRPCServer(config, httpTransport.NewHttpServerTransport(), serializer.NewJSONSerializer())
	require.NoError(t, s.init())
	t.Cleanup(func() { _ = s.close() })
	return s
}

// call sends msg through the transport handler and decodes the response
func call(t *testing.T, s *rpcServer, name string, msg *common.Message) *common.Message {
	t.Helper()
	req, err := s.serializer.Serialize(*msg)
	require.NoError(t, err)
	var resp common.Message
	require.NoError(t, s.serializer.Deserialize(s.handle(name, req), &resp))
	return &resp
}

func todosOf(t *testing.T, resp *common.Message) []todo.Todo {
	t.Helper()
	require.Empty(t, resp.Err)
	todos, err := resp.Todos()
	require.NoError(t, err)
	return todos
}

func create(t *testing.T, s *rpcServer, name, title string) todo.Todo {
	t.Helper()
	req, err := common.NewSaveRequest(todo.Patch{"title": title, "completed": false}, todo.NoID)
	require.NoError(t, err)
	created := todosOf(t, call(t, s, name, req))
	require.Len(t, created, 1)
	return created[0]
}

func TestHandle_Operations(t *testing.T) {
	s := newTestServer(t, memoryConfig())

	milk := create(t, s, "todos", "buy milk")
	bread := create(t, s, "todos", "buy bread")
	assert.NotEqual(t, milk.ID, bread.ID)

	all := todosOf(t, call(t, s, "todos", common.NewFindAllRequest()))
	require.Len(t, all, 2)
	assert.Equal(t, "buy milk", all[0].Title)

	save, err := common.NewSaveRequest(todo.Patch{"completed": true}, milk.ID)
	require.NoError(t, err)
	updated := todosOf(t, call(t, s, "todos", save))
	require.Len(t, updated, 2)
	assert.True(t, updated[0].Completed)

	find, err := common.NewFindRequest(todo.Query{"completed": false})
	require.NoError(t, err)
	active := todosOf(t, call(t, s, "todos", find))
	require.Len(t, active, 1)
	assert.Equal(t, bread.ID, active[0].ID)

	resp := call(t, s, "todos", common.NewCountRequest())
	require.Empty(t, resp.Err)
	count, err := resp.Count()
	require.NoError(t, err)
	assert.Equal(t, model.Count{Active: 1, Completed: 1, Total: 2}, count)

	remaining := todosOf(t, call(t, s, "todos", common.NewRemoveRequest(milk.ID)))
	require.Len(t, remaining, 1)
	assert.Equal(t, bread.ID, remaining[0].ID)

	assert.Empty(t, todosOf(t, call(t, s, "todos", common.NewDropRequest())))
	assert.Empty(t, todosOf(t, call(t, s, "todos", common.NewFindAllRequest())))
}

func TestHandle_CollectionsAreIsolated(t *testing.T) {
	s := newTestServer(t, memoryConfig())

	create(t, s, "home", "water plants")
	assert.Len(t, todosOf(t, call(t, s, "home", common.NewFindAllRequest())), 1)
	assert.Empty(t, todosOf(t, call(t, s, "work", common.NewFindAllRequest())))
}

func TestHandle_Errors(t *testing.T) {
	s := newTestServer(t, memoryConfig())

	resp := call(t, s, "todos", &common.Message{MsgType: common.MsgTSuccess})
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Contains(t, resp.Err, "Unsupported message type")

	var msg common.Message
	require.NoError(t, s.serializer.Deserialize(s.handle("todos", []byte("{not json")), &msg))
	assert.Equal(t, common.MsgTError, msg.MsgType)
	assert.Contains(t, msg.Err, "failed to deserialize request")

	resp = call(t, s, "todos", &common.Message{MsgType: common.MsgTSave, Value: []byte(`{"title":42}`)})
	assert.Equal(t, common.MsgTSave, resp.MsgType)
	assert.NotEmpty(t, resp.Err)

	resp = call(t, s, "", common.NewFindAllRequest())
	assert.Equal(t, common.MsgTError, resp.MsgType)
}

func TestView(t *testing.T) {
	s := newTestServer(t, memoryConfig())
	create(t, s, "todos", "<b>bold</b>")

	var buf bytes.Buffer
	require.NoError(t, s.view("todos", &buf))
	assert.Contains(t, buf.String(), "&lt;b&gt;bold&lt;/b&gt;")
	assert.NotContains(t, buf.String(), "<b>bold</b>")
}

func TestMemoryBackend_Snapshot(t *testing.T) {
	config := memoryConfig()
	config.SnapshotFile = filepath.Join(t.TempDir(), "dtodo.snapshot")

	s := NewRPCServer(config, httpTransport.NewHttpServerTransport(), serializer.NewJSONSerializer())
	require.NoError(t, s.init())
	created := create(t, s, "todos", "survive restart")
	require.NoError(t, s.close())

	restarted := newTestServer(t, config)
	all := todosOf(t, call(t, restarted, "todos", common.NewFindAllRequest()))
	require.Len(t, all, 1)
	assert.Equal(t, created, all[0])

	// ids keep increasing after the restart
	next := create(t, restarted, "todos", "after restart")
	assert.Greater(t, next.ID, created.ID)
}

func TestSQLiteBackend(t *testing.T) {
	config := memoryConfig()
	config.Backend = common.BackendSQLite
	config.DBPath = filepath.Join(t.TempDir(), "dtodo.db")

	s := NewRPCServer(config, httpTransport.NewHttpServerTransport(), serializer.NewJSONSerializer())
	require.NoError(t, s.init())
	create(t, s, "todos", "durable")
	require.NoError(t, s.close())

	reopened := newTestServer(t, config)
	all := todosOf(t, call(t, reopened, "todos", common.NewFindAllRequest()))
	require.Len(t, all, 1)
	assert.Equal(t, "durable", all[0].Title)
}

func TestInvalidBackend(t *testing.T) {
	config := memoryConfig()
	config.Backend = "floppy"
	s := NewRPCServer(config, httpTransport.NewHttpServerTransport(), serializer.NewJSONSerializer())
	assert.Error(t, s.init())

	config.Backend = common.BackendRaft
	config.ClusterMembers = map[uint64]string{2: "localhost:63001"}
	config.ReplicaID = 1
	s = NewRPCServer(config, httpTransport.NewHttpServerTransport(), serializer.NewJSONSerializer())
	assert.Error(t, s.init())
}

func TestLease_ConcurrentCreates(t *testing.T) {
	config := memoryConfig()
	config.Lease = true
	config.LeaseTTLSecond = 5
	config.LeaseWaitSecond = 5
	s := newTestServer(t, config)

	save, err := common.NewSaveRequest(todo.Patch{"title": "task"}, todo.NoID)
	require.NoError(t, err)
	req, err := s.serializer.Serialize(*save)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var resp common.Message
			assert.NoError(t, s.serializer.Deserialize(s.handle("shared", req), &resp))
			assert.Empty(t, resp.Err)
		}()
	}
	wg.Wait()

	all := todosOf(t, call(t, s, "shared", common.NewFindAllRequest()))
	assert.Len(t, all, workers)
}

func TestServeContext_StopsOnCancel(t *testing.T) {
	s := NewRPCServer(memoryConfig(), httpTransport.NewHttpServerTransport(), serializer.NewJSONSerializer())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.ServeContext(ctx))
}
