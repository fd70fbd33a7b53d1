// Package transport defines the contract between the rpc server/client and the
// network. Requests are opaque serialized messages addressed to a collection name.
//
// Implementations:
//   - http: the collection name is the url path, also serves collection pages and metrics
//   - tcp, unix: framed sockets built on the base package, the collection name is
//     part of the frame header
package transport
