package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dTodo/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and size
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
// 1 byte message type, 1 byte flags, then only the fields set in flags:
// id (8 bytes), value (4 byte length + data), err (4 byte length + data)
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasID    byte = 1 << 0
	hasValue byte = 1 << 1
	hasErr   byte = 1 << 2
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	if err := checkMessageType(msg.MsgType); err != nil {
		return nil, err
	}
	result := make([]byte, 2, b.sizeBytes(msg))
	result[0] = byte(msg.MsgType)

	var flags byte
	if msg.ID != 0 {
		flags |= hasID
		result = binary.BigEndian.AppendUint64(result, uint64(msg.ID))
	}
	if msg.Value != nil {
		flags |= hasValue
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Value)))
		result = append(result, msg.Value...)
	}
	if msg.Err != "" {
		flags |= hasErr
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Err)))
		result = append(result, msg.Err...)
	}
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	if err := checkMessageType(common.MessageType(data[0])); err != nil {
		return err
	}
	msg.MsgType = common.MessageType(data[0])
	flags := data[1]
	pos := 2

	msg.ID = 0
	if flags&hasID != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for id")
		}
		msg.ID = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
	}

	msg.Value = nil
	if flags&hasValue != 0 {
		value, next, err := readChunk(data, pos, "value")
		if err != nil {
			return err
		}
		// create an empty slice (not nil) if length is 0
		msg.Value = append(make([]byte, 0, len(value)), value...)
		pos = next
	}

	msg.Err = ""
	if flags&hasErr != 0 {
		errBytes, next, err := readChunk(data, pos, "error")
		if err != nil {
			return err
		}
		msg.Err = string(errBytes)
		pos = next
	}

	if pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readChunk reads a length prefixed field starting at pos
func readChunk(data []byte, pos int, field string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, 0, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+n > len(data) {
		return nil, 0, fmt.Errorf("data too short for %s data", field)
	}
	return data[pos : pos+n], pos + n, nil
}

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := 2 // MsgType + flags
	if msg.ID != 0 {
		size += 8
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	return size
}
