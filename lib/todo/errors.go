package todo

import "errors"

var (
	// ErrCorruptCollection is returned when a slot does not hold a valid collection.
	ErrCorruptCollection = errors.New("corrupt todo collection")
	// ErrInvalidPatch is returned for patches with a non-string title or a non-bool completed flag.
	ErrInvalidPatch = errors.New("invalid todo patch")
	// ErrInvalidID is returned when an identifier is not an integer.
	ErrInvalidID = errors.New("invalid todo id")
	// ErrInvalidQuery is returned when a query value cannot be represented as JSON.
	ErrInvalidQuery = errors.New("invalid todo query")
)
