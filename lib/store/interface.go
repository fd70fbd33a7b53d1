package store

import (
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.KVDB

// IStore is the slot handle the todo collections are persisted through.
// All write operations return only an error (nil on success),
// while read operations return the requested data along with an error (nil on success).
// Implementation errors are of type *Error.
type IStore interface {
	// Set inserts or replaces the slot.
	Set(key string, value []byte) (err error)
	// SetIfUnset inserts the slot if the key does not exist.
	// If the key already exists, the old value is not updated and no error is returned.
	SetIfUnset(key string, value []byte) (err error)
	// Delete deletes a slot. Deleting a missing slot is not an error.
	Delete(key string) (err error)
	// CompareAndSwap replaces the slot with value only if it currently holds expected.
	// A missing slot is never swapped.
	CompareAndSwap(key string, expected, value []byte) (swapped bool, err error)
	// CompareAndDelete deletes the slot only if it currently holds expected.
	CompareAndDelete(key string, expected []byte) (deleted bool, err error)
	// Get returns the value of a slot. The boolean return value indicates whether the slot was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Has returns whether a slot exists in the store.
	Has(key string) (loaded bool, err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("SlotStoreError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
