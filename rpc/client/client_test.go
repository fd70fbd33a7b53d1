package client

import (
	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/db/engines/maple"
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/ValentinKolb/dTodo/lib/store/lstore"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/ValentinKolb/dTodo/rpc/common"
	"github.com/ValentinKolb/dTodo/rpc/serializer"
	"github.com/ValentinKolb/dTodo/rpc/server"
	httpTransport "github.com/ValentinKolb/dTodo/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http/httptest"
	"testing"
)

// newRemote starts an http server serving one local collection and returns a client for it
func newRemote(t *testing.T, s serializer.IRPCSerializer) *RPCTodoStore {
	t.Helper()

	slots := lstore.NewLocalStore(func() db.KVDB { return maple.NewMapleDB(nil) })
	local, _, err := todo.Open(slots, "todos")
	require.NoError(t, err)

	adapter := server.NewTodoServerAdapter()
	handler := func(storeName string, req []byte) []byte {
		var msg common.Message
		resp := common.NewErrorResponse("unknown collection " + storeName)
		if err := s.Deserialize(req, &msg); err != nil {
			resp = common.NewErrorResponse(err.Error())
		} else if storeName == local.Name() {
			resp = adapter.Handle(&msg, local)
		}
		out, _ := s.Serialize(*resp)
		return out
	}

	srv := httptest.NewServer(httpTransport.NewHandler(handler, nil, false))
	t.Cleanup(srv.Close)

	remote, err := NewRPCTodoStore("todos", common.ClientConfig{
		Endpoints:     []string{srv.URL},
		TimeoutSecond: 5,
		RetryCount:    1,
	}, httpTransport.NewHttpClientTransport(), s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = remote.Close() })
	return remote
}

func TestRPCTodoStore(t *testing.T) {
	for name, s := range map[string]serializer.IRPCSerializer{
		"JSON":   serializer.NewJSONSerializer(),
		"YAML":   serializer.NewYAMLSerializer(),
		"Binary": serializer.NewBinarySerializer(),
	} {
		t.Run(name, func(t *testing.T) {
			remote := newRemote(t, s)
			m := model.New(remote)
			assert.Equal(t, "todos", remote.Name())

			milk, err := m.Create("  buy milk ")
			require.NoError(t, err)
			assert.Equal(t, "buy milk", milk.Title)
			assert.False(t, milk.Completed)

			_, err = m.Create("buy bread")
			require.NoError(t, err)

			updated, err := m.Update(milk.ID, todo.Patch{"completed": true})
			require.NoError(t, err)
			require.Len(t, updated, 2)

			active, err := remote.Find(todo.Query{"completed": false})
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, "buy bread", active[0].Title)

			count, err := remote.Count()
			require.NoError(t, err)
			assert.Equal(t, model.Count{Active: 1, Completed: 1, Total: 2}, count)

			byID, err := m.Read(milk.ID.String())
			require.NoError(t, err)
			require.Len(t, byID, 1)
			assert.True(t, byID[0].Completed)

			remaining, err := remote.Remove(milk.ID)
			require.NoError(t, err)
			assert.Len(t, remaining, 1)

			dropped, err := remote.Drop()
			require.NoError(t, err)
			assert.Empty(t, dropped)
		})
	}
}

func TestRPCTodoStore_Errors(t *testing.T) {
	remote := newRemote(t, serializer.NewJSONSerializer())

	_, err := remote.Save(todo.Patch{"completed": "yes"}, todo.NoID)
	assert.ErrorContains(t, err, "RPC TodoStore - Error")

	_, err = remote.Find(todo.Query{"bad": func() {}})
	assert.ErrorIs(t, err, todo.ErrInvalidQuery)

	other := *remote
	other.storeName = "elsewhere"
	_, err = other.FindAll()
	assert.ErrorContains(t, err, "unknown collection elsewhere")
}

func TestNewRPCTodoStore_ConnectError(t *testing.T) {
	_, err := NewRPCTodoStore("todos", common.ClientConfig{}, httpTransport.NewHttpClientTransport(), serializer.NewJSONSerializer())
	assert.Error(t, err)
}
