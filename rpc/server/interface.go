package server

import (
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/ValentinKolb/dTodo/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request against the collection store and returns the response.
	// If an error occurs, it should be set in the response
	Handle(req *common.Message, store todo.ITodoStore) (resp *common.Message)
}
