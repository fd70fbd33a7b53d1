package serializer

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dTodo/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &codecSerializerImpl{
		marshal: func(msg common.Message) ([]byte, error) {
			return json.Marshal(msg)
		},
		unmarshal: json.Unmarshal,
	}
}

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IRPCSerializer {
	return &codecSerializerImpl{
		marshal: func(msg common.Message) ([]byte, error) {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		unmarshal: func(b []byte, v any) error {
			return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
		},
	}
}

// codecSerializerImpl implements the IRPCSerializer interface with a generic
// encoding of the Message struct (json tags, gob fields).
//
// Both encodings skip empty fields, so Deserialize decodes into a fresh Message:
// a reused message never keeps the id, value or error of an earlier one.
type codecSerializerImpl struct {
	marshal   func(msg common.Message) ([]byte, error)
	unmarshal func(b []byte, v any) error
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (c codecSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	if err := checkMessageType(msg.MsgType); err != nil {
		return nil, err
	}
	return c.marshal(msg)
}

func (c codecSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	var decoded common.Message
	if err := c.unmarshal(b, &decoded); err != nil {
		return err
	}
	if err := checkMessageType(decoded.MsgType); err != nil {
		return err
	}
	*msg = decoded
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// checkMessageType rejects message types without a name.
// The text encodings cannot represent them, binary and gob would carry them silently.
func checkMessageType(t common.MessageType) error {
	if t != common.MsgTUnknown && t.String() == "unknown" {
		return fmt.Errorf("invalid message type %d", uint8(t))
	}
	return nil
}
