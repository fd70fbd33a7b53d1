package internal

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTSet              CommandType = iota // Insert or replace a slot.
	CommandTSetIfUnset                          // Insert a slot if it does not exist.
	CommandTDelete                              // Delete a slot.
	CommandTCompareAndSwap                      // Replace a slot if it holds the expected value.
	CommandTCompareAndDelete                    // Delete a slot if it holds the expected value.
)

const (
	headerSize   = 1 + 4 // Type + KeyLen
	expectedSize = 4     // ExpectedLen, compare commands only
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTSet:
		return "Set"
	case CommandTSetIfUnset:
		return "SetIfUnset"
	case CommandTDelete:
		return "Delete"
	case CommandTCompareAndSwap:
		return "CompareAndSwap"
	case CommandTCompareAndDelete:
		return "CompareAndDelete"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// ToDBFeature converts a CommandType to the corresponding db.Feature.
// This can be used for checking if the database supports a certain operation.
func (ct CommandType) ToDBFeature() (db.Feature, error) {
	switch ct {
	case CommandTSet:
		return db.FeatureSet, nil
	case CommandTSetIfUnset:
		return db.FeatureSetIfUnset, nil
	case CommandTDelete:
		return db.FeatureDelete, nil
	case CommandTCompareAndSwap, CommandTCompareAndDelete:
		return db.FeatureCompareAndSwap, nil
	default:
		return 0, fmt.Errorf("unknown command type %d", ct)
	}
}

// Compares reports whether the command carries an expected value
func (ct CommandType) Compares() bool {
	return ct == CommandTCompareAndSwap || ct == CommandTCompareAndDelete
}

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type     CommandType
	Key      string
	Expected []byte // compare commands only
	Value    []byte
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	size := headerSize + len(command.Key) + len(command.Value)
	if command.Type.Compares() {
		size += expectedSize + len(command.Expected)
	}
	return size
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 4 bytes for key length (big endian),
// N bytes for key data,
// compare commands only: 4 bytes expected length (big endian) and the expected data,
// N bytes for value data (optional)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint32(result[1:headerSize], uint32(len(command.Key)))
	pos := headerSize + copy(result[headerSize:], command.Key)
	if command.Type.Compares() {
		binary.BigEndian.PutUint32(result[pos:pos+expectedSize], uint32(len(command.Expected)))
		pos += expectedSize
		pos += copy(result[pos:], command.Expected)
	}
	copy(result[pos:], command.Value)

	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	keyLen := int(binary.BigEndian.Uint32(data[1:headerSize]))

	if len(data) < headerSize+keyLen {
		return fmt.Errorf("data too short for key of length %d", keyLen)
	}
	command.Key = string(data[headerSize : headerSize+keyLen])
	rest := data[headerSize+keyLen:]

	command.Expected = nil
	if command.Type.Compares() {
		if len(rest) < expectedSize {
			return fmt.Errorf("data too short for expected value length")
		}
		expectedLen := int(binary.BigEndian.Uint32(rest[:expectedSize]))
		if len(rest) < expectedSize+expectedLen {
			return fmt.Errorf("data too short for expected value of length %d", expectedLen)
		}
		command.Expected = append([]byte{}, rest[expectedSize:expectedSize+expectedLen]...)
		rest = rest[expectedSize+expectedLen:]
	}

	// Extract value if present
	if len(rest) == 0 {
		command.Value = nil
		return nil
	}
	// Reuse existing buffer if possible to reduce allocations
	if cap(command.Value) < len(rest) {
		command.Value = make([]byte, len(rest))
	} else {
		command.Value = command.Value[:len(rest)]
	}
	copy(command.Value, rest)
	return nil
}

// EncodeHit is the result data of a compare command: 1 if the slot was swapped or deleted
func EncodeHit(hit bool) []byte {
	if hit {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeHit reverses EncodeHit
func DecodeHit(data []byte) bool {
	return len(data) == 1 && data[0] == 1
}
