package server

import (
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/ValentinKolb/dTodo/lib/todo"
	"github.com/ValentinKolb/dTodo/rpc/common"
)

// NewTodoServerAdapter creates the adapter translating messages to todo.ITodoStore calls
func NewTodoServerAdapter() IRPCServerAdapter {
	return &todoServerAdapterImpl{}
}

type todoServerAdapterImpl struct{}

func (adapter *todoServerAdapterImpl) Handle(req *common.Message, store todo.ITodoStore) *common.Message {
	if store == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	switch req.MsgType {
	case common.MsgTFind:
		query, err := req.Query()
		if err != nil {
			return common.NewTodosResponse(req.MsgType, nil, err)
		}
		todos, err := store.Find(query)
		return common.NewTodosResponse(req.MsgType, todos, err)
	case common.MsgTFindAll:
		todos, err := store.FindAll()
		return common.NewTodosResponse(req.MsgType, todos, err)
	case common.MsgTSave:
		patch, err := req.Patch()
		if err != nil {
			return common.NewTodosResponse(req.MsgType, nil, err)
		}
		todos, err := store.Save(patch, todo.ID(req.ID))
		return common.NewTodosResponse(req.MsgType, todos, err)
	case common.MsgTRemove:
		todos, err := store.Remove(todo.ID(req.ID))
		return common.NewTodosResponse(req.MsgType, todos, err)
	case common.MsgTDrop:
		todos, err := store.Drop()
		return common.NewTodosResponse(req.MsgType, todos, err)
	case common.MsgTCount:
		count, err := model.New(store).GetCount()
		return common.NewCountResponse(count, err)
	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC TodoAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
