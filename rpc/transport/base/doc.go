// Package base provides the socket transports of the dTodo rpc system independent of
// the network protocol (TCP, Unix sockets). The tcp and unix packages only add a
// connector that dials and listens.
//
// Frames:
//
// Every request and response is one frame: an 8 byte request id, the length of the
// collection name (2 bytes), the payload length (4 bytes), the collection name and
// the payload. A response echoes the name and id of its request, so one connection
// carries many requests at a time and responses may arrive out of order.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: protocol-specific dial, listen and socket options.
//
//   - clientTransport: keeps ConnectionsPerEndpoint connections per endpoint and
//     balances requests round robin. A broken connection fails its waiting requests
//     and is dialed again by the next request. Failed requests are retried with
//     exponential backoff on the next connection.
//
//   - serverTransport: accepts connections and runs up to WorkersPerConn requests of
//     one connection concurrently. Payload buffers come from a sync.Pool.
//
// Shutdown closes the listener, stops reading new requests and waits until the
// requests already read are answered.
//
// Collection pages (RegisterView) are not served, use the http transport for them.
package base
