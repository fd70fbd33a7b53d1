package serializer

import (
	"fmt"
	"github.com/ValentinKolb/dTodo/rpc/common"
	"strings"
)

// IRPCSerializer is the interface for all Message Serializers
type IRPCSerializer interface {
	// Serialize serializes a Message into a byte array
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into the Message msg points to
	Deserialize(b []byte, msg *common.Message) error
}

// ByName returns the serializer for one of json, gob, yaml or binary.
func ByName(name string) (IRPCSerializer, error) {
	switch strings.ToLower(name) {
	case "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	case "yaml", "yml":
		return NewYAMLSerializer(), nil
	case "binary":
		return NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %q, must be one of json, gob, yaml, binary", name)
	}
}
