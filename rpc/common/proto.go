package common

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/model"
	"github.com/ValentinKolb/dTodo/lib/todo"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// The collection a message refers to is part of the transport address.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Record id, used for: Save, Remove
	ID int64 `json:"id,omitempty"`

	// JSON payload:
	// Find (request): the query object, Save (request): the patch object,
	// Find, FindAll, Save, Remove, Drop (response): the {"todos":[...]} collection,
	// Count (response): the count object
	Value []byte `json:"value,omitempty"`

	// Empty if no error, otherwise contains the error message
	Err string `json:"err,omitempty"`
}

// collection mirrors the slot layout for responses
type collection struct {
	Todos []todo.Todo `json:"todos"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewFindRequest creates a new Find request
func NewFindRequest(query todo.Query) (*Message, error) {
	value, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", todo.ErrInvalidQuery, err)
	}
	return &Message{MsgType: MsgTFind, Value: value}, nil
}

// NewFindAllRequest creates a new FindAll request
func NewFindAllRequest() *Message {
	return &Message{MsgType: MsgTFindAll}
}

// NewSaveRequest creates a new Save request
func NewSaveRequest(patch todo.Patch, id todo.ID) (*Message, error) {
	value, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", todo.ErrInvalidPatch, err)
	}
	return &Message{MsgType: MsgTSave, ID: int64(id), Value: value}, nil
}

// NewRemoveRequest creates a new Remove request
func NewRemoveRequest(id todo.ID) *Message {
	return &Message{MsgType: MsgTRemove, ID: int64(id)}
}

// NewDropRequest creates a new Drop request
func NewDropRequest() *Message {
	return &Message{MsgType: MsgTDrop}
}

// NewCountRequest creates a new Count request
func NewCountRequest() *Message {
	return &Message{MsgType: MsgTCount}
}

// NewTodosResponse creates the response of any operation returning records
func NewTodosResponse(msgType MessageType, todos []todo.Todo, err error) *Message {
	msg := &Message{MsgType: msgType}
	if err != nil {
		msg.Err = err.Error()
		return msg
	}
	if todos == nil {
		todos = []todo.Todo{}
	}
	value, err := json.Marshal(collection{Todos: todos})
	if err != nil {
		msg.Err = err.Error()
		return msg
	}
	msg.Value = value
	return msg
}

// NewCountResponse creates a new Count response
func NewCountResponse(count model.Count, err error) *Message {
	msg := &Message{MsgType: MsgTCount}
	if err != nil {
		msg.Err = err.Error()
		return msg
	}
	msg.Value, _ = json.Marshal(count)
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Payload accessors
// --------------------------------------------------------------------------

// Query decodes the query of a Find request. An empty payload is the empty query.
func (m *Message) Query() (todo.Query, error) {
	q := todo.Query{}
	if len(m.Value) == 0 {
		return q, nil
	}
	if err := json.Unmarshal(m.Value, &q); err != nil {
		return nil, fmt.Errorf("%w: %v", todo.ErrInvalidQuery, err)
	}
	return q, nil
}

// Patch decodes the patch of a Save request.
func (m *Message) Patch() (todo.Patch, error) {
	p := todo.Patch{}
	if len(m.Value) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(m.Value, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", todo.ErrInvalidPatch, err)
	}
	return p, nil
}

// Todos decodes the records of a response.
func (m *Message) Todos() ([]todo.Todo, error) {
	var c collection
	if err := json.Unmarshal(m.Value, &c); err != nil {
		return nil, fmt.Errorf("invalid %s response: %w", m.MsgType, err)
	}
	if c.Todos == nil {
		c.Todos = []todo.Todo{}
	}
	return c.Todos, nil
}

// Count decodes the payload of a Count response.
func (m *Message) Count() (model.Count, error) {
	var c model.Count
	if err := json.Unmarshal(m.Value, &c); err != nil {
		return c, fmt.Errorf("invalid %s response: %w", m.MsgType, err)
	}
	return c, nil
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess: "success",
	MsgTError:   "error",
	MsgTFind:    "find",
	MsgTFindAll: "findAll",
	MsgTSave:    "save",
	MsgTRemove:  "remove",
	MsgTDrop:    "drop",
	MsgTCount:   "count",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseMessageType is the inverse of MessageType.String.
func ParseMessageType(s string) (MessageType, error) {
	if s == "unknown" {
		return MsgTUnknown, nil
	}
	for t, name := range messageTypeNames {
		if name == s {
			return t, nil
		}
	}
	return MsgTUnknown, fmt.Errorf("unknown message type: %s", s)
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMessageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// ITodoStore operations

	MsgTFind    // Records matching a query
	MsgTFindAll // All records
	MsgTSave    // Create or update a record
	MsgTRemove  // Remove records by id
	MsgTDrop    // Empty the collection

	// Model operations

	MsgTCount // Active, completed and total count
)
