// Package unix implements a transport of the dTodo rpc system over Unix domain
// sockets, for clients on the same machine as the server.
//
// The endpoint is the socket path. A stale socket file is removed before listening.
// Pooled request buffers are 64 KB.
package unix
