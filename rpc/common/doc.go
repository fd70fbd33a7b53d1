// Package common holds the types shared by the dtodo rpc server, client and CLI.
//
//   - Message: the single request/response structure of the rpc protocol. Payloads
//     (queries, patches, collections, counts) travel as JSON in Message.Value, so every
//     serializer only has to carry bytes.
//
//   - ServerConfig / ClientConfig: configuration filled by the cobra/viper layer,
//     with helpers to derive the Dragonboat configs for the raft backend.
//
//   - Logger: a Dragonboat logger.Factory that prints "LEVEL | package | message".
package common
