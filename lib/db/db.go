package db

import "io"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple  Implementation = "maple"
	ImplSQLite Implementation = "sqlite"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet        Feature = 1 << iota // Support for Set operations
	FeatureSetIfUnset                     // Support for SetIfUnset operations
	FeatureGet                            // Support for Get operations
	FeatureDelete                         // Support for Delete operations
	FeatureHas                            // Support for Has operations
	FeatureSave                           // Support for Save operations
	FeatureLoad                           // Support for Load operations
	FeatureDurable                        // Slots survive a process restart without Save/Load
	FeatureCompareAndSwap                 // Support for CompareAndSwap and CompareAndDelete operations
	FeatureOrderedWrites                  // Writes with an index below the index of the stored slot are ignored
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureSetIfUnset:
		return "SetIfUnset"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	case FeatureDurable:
		return "Durable"
	case FeatureCompareAndSwap:
		return "CompareAndSwap"
	case FeatureOrderedWrites:
		return "OrderedWrites"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SlotCount         int            `json:"slot_count"`
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines the interface for slot databases.
// A slot is a named byte blob. The todo collections are stored one per slot, but the
// database itself knows nothing about their content and always reads and writes a slot
// as a whole.
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or replaces the slot with the given key.
	// The writeIndex parameter is used as a logical timestamp for the slot.
	Set(key string, value []byte, writeIndex uint64) (err error)

	// SetIfUnset inserts the slot only if the key does not exist yet.
	// If the key already exists, the old value is kept and no error is returned.
	SetIfUnset(key string, value []byte, writeIndex uint64) (err error)

	// Delete removes the slot with the specified key.
	// Deleting a missing key is not an error.
	Delete(key string, writeIndex uint64) (err error)

	// CompareAndSwap replaces the slot with value only if it exists and its current value
	// equals expected. The comparison and the write are one atomic step.
	CompareAndSwap(key string, expected, value []byte, writeIndex uint64) (swapped bool, err error)

	// CompareAndDelete removes the slot only if its current value equals expected.
	CompareAndDelete(key string, expected []byte, writeIndex uint64) (deleted bool, err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value of a slot. The returned slice is a copy.
	// The boolean return value indicates whether the slot was found.
	Get(key string) (value []byte, loaded bool, err error)

	// Has checks whether a slot exists in the database.
	Has(key string) (loaded bool, err error)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the database to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load replaces the database state with the data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// --------------------------------------------------------------------------
	// Write Index Operations
	// --------------------------------------------------------------------------

	// SetWriteIdx sets the current index of the database only if the provided index is greater than the current index.
	SetWriteIdx(index uint64)

	// WriteIdx returns the current index of the database.
	WriteIdx() (index uint64)

	// Close closes the database.
	Close() (err error)
}
