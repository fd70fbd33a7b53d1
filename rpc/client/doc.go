// Package client implements the RPC client of a dtodo server.
//
// NewRPCTodoStore returns a todo.ITodoStore for one named collection that forwards
// every operation to a remote server through the configured transport and
// serializer. It can be used wherever a local todo.Store is used, for example
// as the store of a model.Model. Error responses of the server are returned as
// errors.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:     []string{"localhost:8080"},
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	store, err := client.NewRPCTodoStore(
//	  "todos",
//	  config,
//	  http.NewHttpClientTransport(),
//	  serializer.NewJSONSerializer(),
//	)
//	if err != nil {
//	  log.Fatal(err)
//	}
//	defer store.Close()
//
//	m := model.New(store)
//	created, err := m.Create("buy milk")
//
// The serializer must match the one of the server.
package client
