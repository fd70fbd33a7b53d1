// Package serializer encodes common.Message values for the rpc transport.
//
// Implementations:
//
//   - binary: flag based format that only encodes present fields, the smallest and fastest
//   - json: readable, useful for debugging with curl
//   - yaml: readable, the JSON payload is kept as a string field
//   - gob: Go's self describing binary format
//
// json and gob share one implementation over the Message struct. Deserialize always
// replaces the whole message, and every serializer rejects message types without a name.
//
// All serializers are stateless and safe for concurrent use.
//
// Usage:
//
//	s, err := serializer.ByName("binary")
//	data, err := s.Serialize(msg)
//	var received common.Message
//	err = s.Deserialize(data, &received)
package serializer
