// Package rpc provides the communication layer between dtodo clients and servers.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions, implemented over HTTP.
//     The collection name is part of the request address.
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, YAML, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: the remote todo.ITodoStore, usable wherever a local store is.
//
//   - server: request handling, collection management and the slot backends.
package rpc
