package maple

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/ValentinKolb/dTodo/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/dTodo/lib/db/util"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum     = "MAPLEDB\x00" // File format identifier
	mapleVersion = 4             // Snapshot format version (4 = string keys, no ttl)
	maxKeyLen    = 64 * 1024
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements an in-memory slot database with sharded data
type mapleImpl struct {
	seed      uint64            // Seed for the shard hash
	shards    []*internal.Shard // Array of shards
	currIndex atomic.Uint64     // Current logical timestamp

	// Load replaces the shards, all other operations only read the slice header
	loadMu sync.RWMutex
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = auto)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}

	return &mapleImpl{
		seed:   util.GenerateSeed(),
		shards: internal.NewShards(opts.NumShards),
	}
}

// shardFor returns the shard responsible for the key
//
// Thread-safety: the caller must hold loadMu (read).
func (maple *mapleImpl) shardFor(key string) *internal.Shard {
	return maple.shards[util.ShardIndex(key, maple.seed, len(maple.shards))]
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or replaces the slot. Writes with an index lower than the index of the
// stored entry are stale and ignored.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(key string, value []byte, writeIdx uint64) error {
	maple.compute(key, value, writeIdx, func(new, old internal.Entry, loaded bool) internal.Entry {
		return new
	})
	return nil
}

// SetIfUnset inserts the slot only if the key does not exist yet.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) SetIfUnset(key string, value []byte, writeIdx uint64) error {
	maple.compute(key, value, writeIdx, func(new, old internal.Entry, loaded bool) internal.Entry {
		if loaded {
			return old
		}
		return new
	})
	return nil
}

// compute is the shared implementation of Set and SetIfUnset.
// It copies the value, advances the write index and ignores stale writes.
func (maple *mapleImpl) compute(key string, value []byte, writeIdx uint64, fn func(new, old internal.Entry, loaded bool) internal.Entry) {
	maple.SetWriteIdx(writeIdx)

	// Copy value to prevent memory corruption
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	newEntry := internal.Entry{Value: valueCopy, Index: writeIdx}

	maple.loadMu.RLock()
	defer maple.loadMu.RUnlock()

	maple.shardFor(key).Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if loaded && old.Index > writeIdx {
			return old, false
		}
		return fn(newEntry, old, loaded), false
	})
}

// Delete removes the slot with the specified key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string, writeIdx uint64) error {
	maple.SetWriteIdx(writeIdx)

	maple.loadMu.RLock()
	defer maple.loadMu.RUnlock()

	maple.shardFor(key).Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if loaded && old.Index > writeIdx {
			return old, false
		}
		return old, true
	})
	return nil
}

// CompareAndSwap replaces the slot only if it holds expected.
// A stale write index never swaps.
//
// Thread-safety: the compare and the swap run inside one xsync Compute.
func (maple *mapleImpl) CompareAndSwap(key string, expected, value []byte, writeIdx uint64) (bool, error) {
	maple.SetWriteIdx(writeIdx)

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	maple.loadMu.RLock()
	defer maple.loadMu.RUnlock()

	swapped := false
	maple.shardFor(key).Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return old, true
		}
		if old.Index > writeIdx || !bytes.Equal(old.Value, expected) {
			return old, false
		}
		swapped = true
		return internal.Entry{Value: valueCopy, Index: writeIdx}, false
	})
	return swapped, nil
}

// CompareAndDelete removes the slot only if it holds expected.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) CompareAndDelete(key string, expected []byte, writeIdx uint64) (bool, error) {
	maple.SetWriteIdx(writeIdx)

	maple.loadMu.RLock()
	defer maple.loadMu.RUnlock()

	deleted := false
	maple.shardFor(key).Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return old, true
		}
		if old.Index > writeIdx || !bytes.Equal(old.Value, expected) {
			return old, false
		}
		deleted = true
		return old, true
	})
	return deleted, nil
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves the value of a slot.
// The returned value is a copy of the stored data and therefore safe to use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) ([]byte, bool, error) {
	maple.loadMu.RLock()
	defer maple.loadMu.RUnlock()

	entry, ok := maple.shardFor(key).Data.Load(key)
	if !ok {
		return nil, false, nil
	}
	data := make([]byte, len(entry.Value))
	copy(data, entry.Value)
	return data, true, nil
}

// Has checks whether a slot exists.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Has(key string) (bool, error) {
	maple.loadMu.RLock()
	defer maple.loadMu.RUnlock()

	_, ok := maple.shardFor(key).Data.Load(key)
	return ok, nil
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save persists the database to the writer.
// Concurrent writes are allowed during Save, the snapshot is fuzzy per shard.
//
// Format (little endian):
// magic, version (uint8), seed (uint64), write index (uint64), count (uint64),
// then per slot: key length (uint32), key, index (uint64), value length (uint32), value
func (maple *mapleImpl) Save(w io.Writer) error {
	type slotToSave struct {
		key   string
		entry internal.Entry
	}

	maple.loadMu.RLock()
	var slots []slotToSave
	for _, shard := range maple.shards {
		shard.Data.Range(func(key string, entry internal.Entry) bool {
			valueCopy := make([]byte, len(entry.Value))
			copy(valueCopy, entry.Value)
			slots = append(slots, slotToSave{key, internal.Entry{Value: valueCopy, Index: entry.Index}})
			return true
		})
	}
	seed := maple.seed
	maple.loadMu.RUnlock()

	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	header := []any{uint8(mapleVersion), seed, maple.currIndex.Load(), uint64(len(slots))}
	for _, field := range header {
		if err := binary.Write(bw, binary.LittleEndian, field); err != nil {
			return err
		}
	}

	for _, slot := range slots {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(slot.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(slot.key); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, slot.entry.Index); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(slot.entry.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(slot.entry.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load restores a database from the reader, replacing all slots.
// The current state is only replaced if the whole snapshot could be read.
func (maple *mapleImpl) Load(r io.Reader) error {
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != mapleVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, mapleVersion)
	}

	var seed, writeIdx, count uint64
	for _, field := range []*uint64{&seed, &writeIdx, &count} {
		if err := binary.Read(br, binary.LittleEndian, field); err != nil {
			return err
		}
	}

	maple.loadMu.RLock()
	numShards := len(maple.shards)
	maple.loadMu.RUnlock()

	shards := internal.NewShards(numShards)
	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		if keyLen > maxKeyLen {
			return fmt.Errorf("invalid key length %d", keyLen)
		}
		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(br, keyBytes); err != nil {
			return err
		}

		var index uint64
		if err := binary.Read(br, binary.LittleEndian, &index); err != nil {
			return err
		}
		if index > writeIdx {
			writeIdx = index
		}

		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}

		key := string(keyBytes)
		shards[util.ShardIndex(key, seed, numShards)].Data.Store(key, internal.Entry{Value: value, Index: index})
	}

	maple.loadMu.Lock()
	maple.shards = shards
	maple.seed = seed
	maple.loadMu.Unlock()

	maple.SetWriteIdx(writeIdx)
	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	maple.loadMu.RLock()
	defer maple.loadMu.RUnlock()

	slotCount := 0
	sizeBytes := 0
	shardSizes := make([]int, len(maple.shards))
	for i, shard := range maple.shards {
		shard.Data.Range(func(key string, entry internal.Entry) bool {
			sizeBytes += len(key) + len(entry.Value) + 8
			return true
		})
		shardSizes[i] = shard.Data.Size()
		slotCount += shardSizes[i]
	}

	meta := &struct {
		CurrentWriteIndex uint64 `json:"current_write_index"`
		ShardCount        int    `json:"shard_count"`
		ShardSizes        []int  `json:"shard_sizes"`
	}{
		CurrentWriteIndex: maple.currIndex.Load(),
		ShardCount:        len(maple.shards),
		ShardSizes:        shardSizes,
	}

	return db.DatabaseInfo{
		SlotCount: slotCount,
		SizeBytes: sizeBytes,
		DbType:    db.ImplMaple,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetIfUnset,
			db.FeatureGet, db.FeatureHas, db.FeatureDelete,
			db.FeatureSave, db.FeatureLoad,
			db.FeatureCompareAndSwap, db.FeatureOrderedWrites,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureSetIfUnset |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureSave |
		db.FeatureLoad |
		db.FeatureCompareAndSwap |
		db.FeatureOrderedWrites
	return supportedFeatures&feature == feature
}

// Close is a no-op, the data lives only in memory
func (maple *mapleImpl) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Index Management
// --------------------------------------------------------------------------

// SetWriteIdx safely updates the current index
// It only updates if the new index is greater than the current one
func (maple *mapleImpl) SetWriteIdx(newIdx uint64) {
	for {
		currIdx := maple.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if maple.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

// WriteIdx returns the current index of the database
func (maple *mapleImpl) WriteIdx() uint64 {
	return maple.currIndex.Load()
}
