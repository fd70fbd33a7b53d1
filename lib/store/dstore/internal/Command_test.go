package internal

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ValentinKolb/dTodo/lib/db"
)

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name:     "Command with key and value",
			command:  Command{Type: CommandTSet, Key: "todos-default", Value: []byte(`{"todos":[]}`)},
			expected: 1 + 4 + 13 + 12, // Type + KeyLen + Key + Value
		},
		{
			name:     "Command with empty key",
			command:  Command{Type: CommandTSet, Key: "", Value: []byte("testvalue")},
			expected: 1 + 4 + 0 + 9,
		},
		{
			name:     "Delete without value",
			command:  Command{Type: CommandTDelete, Key: "todos"},
			expected: 1 + 4 + 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := tt.command.SizeBytes()
			if size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{"Set with collection", Command{Type: CommandTSet, Key: "todos-default", Value: []byte(`{"todos":[{"id":1,"title":"a","completed":false}]}`)}},
		{"Delete without value", Command{Type: CommandTDelete, Key: "todos-default"}},
		{"SetIfUnset with empty key", Command{Type: CommandTSetIfUnset, Key: "", Value: []byte(`{"todos":[]}`)}},
		{"Set with empty value", Command{Type: CommandTSet, Key: "todos", Value: []byte{}}},
		{"Set with binary value", Command{Type: CommandTSet, Key: "binary", Value: []byte{0, 1, 2, 3, 254, 255}}},
		{"Set with Unicode key", Command{Type: CommandTSet, Key: "einkäufe-日本", Value: []byte("unicode test")}},
		{"CompareAndSwap lease", Command{Type: CommandTCompareAndSwap, Key: "todos.lock", Expected: []byte(`{"owner":"a"}`), Value: []byte(`{"owner":"b"}`)}},
		{"CompareAndSwap empty expected", Command{Type: CommandTCompareAndSwap, Key: "todos.lock", Value: []byte("b")}},
		{"CompareAndDelete lease", Command{Type: CommandTCompareAndDelete, Key: "todos.lock", Expected: []byte(`{"owner":"a"}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.command.Serialize()

			var newCommand Command
			if err := newCommand.Deserialize(data); err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}

			if newCommand.Type != tt.command.Type {
				t.Errorf("Type mismatch: got %v, want %v", newCommand.Type, tt.command.Type)
			}
			if newCommand.Key != tt.command.Key {
				t.Errorf("Key mismatch: got %q, want %q", newCommand.Key, tt.command.Key)
			}
			if !bytes.Equal(newCommand.Expected, tt.command.Expected) {
				t.Errorf("Expected mismatch: got %q, want %q", newCommand.Expected, tt.command.Expected)
			}
			if len(tt.command.Value) == 0 {
				if len(newCommand.Value) != 0 {
					t.Errorf("Value should be nil or empty, got %v", newCommand.Value)
				}
			} else if !bytes.Equal(newCommand.Value, tt.command.Value) {
				t.Errorf("Value mismatch: got %v, want %v", newCommand.Value, tt.command.Value)
			}

			if tt.command.SizeBytes() != len(data) {
				t.Errorf("SizeBytes() = %d, but serialized data length = %d", tt.command.SizeBytes(), len(data))
			}
		})
	}
}

// TestDeserializeErrors tests error cases in Deserialize
func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		expectedErr string
	}{
		{"Empty data", []byte{}, "data too short for command"},
		{"Data too short (less than header)", []byte{1, 2, 3}, "data too short for command"},
		{
			name: "Invalid key length",
			data: func() []byte {
				data := make([]byte, headerSize)
				data[0] = byte(CommandTSet)
				binary.BigEndian.PutUint32(data[1:5], 1000)
				return data
			}(),
			expectedErr: "data too short for key of length 1000",
		},
		{
			name: "Compare command without expected length",
			data: func() []byte {
				data := make([]byte, headerSize+1)
				data[0] = byte(CommandTCompareAndSwap)
				binary.BigEndian.PutUint32(data[1:5], 1)
				return data
			}(),
			expectedErr: "data too short for expected value length",
		},
		{
			name: "Compare command with truncated expected value",
			data: func() []byte {
				data := make([]byte, headerSize+1+expectedSize+2)
				data[0] = byte(CommandTCompareAndDelete)
				binary.BigEndian.PutUint32(data[1:5], 1)
				binary.BigEndian.PutUint32(data[6:10], 10)
				return data
			}(),
			expectedErr: "data too short for expected value of length 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := cmd.Deserialize(tt.data)
			if err == nil {
				t.Fatalf("Expected error but got nil")
			}
			if err.Error() != tt.expectedErr {
				t.Errorf("Expected error %q, got %q", tt.expectedErr, err.Error())
			}
		})
	}
}

// TestBinaryFormat tests the exact binary format of serialized commands
func TestBinaryFormat(t *testing.T) {
	cmd := Command{Type: CommandTSetIfUnset, Key: "testkey", Value: []byte("testvalue")}

	expected := make([]byte, cmd.SizeBytes())
	expected[0] = byte(CommandTSetIfUnset)
	binary.BigEndian.PutUint32(expected[1:5], 7)
	copy(expected[5:12], "testkey")
	copy(expected[12:], "testvalue")

	if serialized := cmd.Serialize(); !bytes.Equal(serialized, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", serialized, expected)
	}
}

func TestToDBFeature(t *testing.T) {
	want := map[CommandType]db.Feature{
		CommandTSet:              db.FeatureSet,
		CommandTSetIfUnset:       db.FeatureSetIfUnset,
		CommandTDelete:           db.FeatureDelete,
		CommandTCompareAndSwap:   db.FeatureCompareAndSwap,
		CommandTCompareAndDelete: db.FeatureCompareAndSwap,
	}
	for ct, feature := range want {
		got, err := ct.ToDBFeature()
		if err != nil || got != feature {
			t.Errorf("%s.ToDBFeature() = %v, %v; want %v", ct, got, err, feature)
		}
	}
	if _, err := CommandType(42).ToDBFeature(); err == nil {
		t.Errorf("expected error for unknown command type")
	}
}

func TestCompareBinaryFormat(t *testing.T) {
	cmd := Command{Type: CommandTCompareAndSwap, Key: "k", Expected: []byte("old"), Value: []byte("new")}

	expected := []byte{byte(CommandTCompareAndSwap), 0, 0, 0, 1, 'k', 0, 0, 0, 3, 'o', 'l', 'd', 'n', 'e', 'w'}
	if serialized := cmd.Serialize(); !bytes.Equal(serialized, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", serialized, expected)
	}
}

// TestBufferReuse tests that the Deserialize method reuses buffers when possible
func TestBufferReuse(t *testing.T) {
	cmd := Command{Type: CommandTSet, Key: "key", Value: []byte("original value")}

	cmd2 := Command{Type: CommandTSet, Key: "key", Value: []byte("changed value")}
	if err := cmd.Deserialize(cmd2.Serialize()); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if !bytes.Equal(cmd.Value, []byte("changed value")) {
		t.Errorf("Value not correctly deserialized: got %q, want %q", string(cmd.Value), "changed value")
	}

	cmd3 := Command{Type: CommandTSet, Key: "key", Value: []byte(`{"todos":[{"id":1,"title":"a much longer value","completed":true}]}`)}
	beforeCap := cap(cmd.Value)
	if err := cmd.Deserialize(cmd3.Serialize()); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if cap(cmd.Value) <= beforeCap {
		t.Errorf("Buffer capacity did not increase for larger value: still %d", cap(cmd.Value))
	}
	if !bytes.Equal(cmd.Value, cmd3.Value) {
		t.Errorf("Value not correctly deserialized")
	}
}
