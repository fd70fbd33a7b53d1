package client

import (
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/ValentinKolb/dTodo/rpc/common"
	"github.com/ValentinKolb/dTodo/rpc/serializer"
	"github.com/ValentinKolb/dTodo/rpc/transport"
)

var _ todo.ITodoStore = (*RPCTodoStore)(nil)

// NewRPCTodoStore creates a store for the named collection of a remote server.
// The transport is connected with the given config.
func NewRPCTodoStore(
	storeName string,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCTodoStore, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &RPCTodoStore{
		rpcClientAdapter{
			storeName:  storeName,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// RPCTodoStore implements todo.ITodoStore over the rpc transport
type RPCTodoStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the todo package in interface.go)
// --------------------------------------------------------------------------

func (s *RPCTodoStore) Name() string {
	return s.storeName
}

func (s *RPCTodoStore) Find(query todo.Query) ([]todo.Todo, error) {
	req, err := common.NewFindRequest(query)
	if err != nil {
		return nil, err
	}
	return s.invokeTodos(req)
}

func (s *RPCTodoStore) FindAll() ([]todo.Todo, error) {
	return s.invokeTodos(common.NewFindAllRequest())
}

func (s *RPCTodoStore) Save(patch todo.Patch, id todo.ID) ([]todo.Todo, error) {
	req, err := common.NewSaveRequest(patch, id)
	if err != nil {
		return nil, err
	}
	return s.invokeTodos(req)
}

func (s *RPCTodoStore) Remove(id todo.ID) ([]todo.Todo, error) {
	return s.invokeTodos(common.NewRemoveRequest(id))
}

func (s *RPCTodoStore) Drop() ([]todo.Todo, error) {
	return s.invokeTodos(common.NewDropRequest())
}

// --------------------------------------------------------------------------
// Additional Methods
// --------------------------------------------------------------------------

// Count asks the server for the counters, without transferring the records
func (s *RPCTodoStore) Count() (model.Count, error) {
	resp, err := s.invoke(common.NewCountRequest())
	if err != nil {
		return model.Count{}, err
	}
	return resp.Count()
}

// Close closes the transport
func (s *RPCTodoStore) Close() error {
	return s.transport.Close()
}
