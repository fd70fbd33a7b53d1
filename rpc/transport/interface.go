package transport

import (
	"context"
	"github.com/ValentinKolb/dTodo/rpc/common"
	"io"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles a serialized request for the named collection
// and returns the serialized response.
type ServerHandleFunc func(storeName string, req []byte) (resp []byte)

// ServerViewFunc renders the read-only page of the named collection.
type ServerViewFunc func(storeName string, w io.Writer) error

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the handler called for every request.
	// The transport is responsible for extracting the collection name.
	RegisterHandler(handler ServerHandleFunc)
	// RegisterView registers the renderer of the collection page (optional).
	RegisterView(view ServerViewFunc)
	// Listen starts the transport layer and blocks until it is shut down
	Listen(config common.ServerConfig) error
	// Shutdown stops accepting requests and waits for running ones
	Shutdown(ctx context.Context) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request for the named collection and returns the response
	Send(storeName string, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
