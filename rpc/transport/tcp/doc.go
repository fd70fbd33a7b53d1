// Package tcp implements the TCP transport of the dTodo rpc system on top of the
// base package. See the base package for the frame format and connection handling.
//
// Server connections disable Nagle's algorithm and enable keep-alive. Pooled
// request buffers are 512 KB.
package tcp
