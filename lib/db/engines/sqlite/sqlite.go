package sqlite

import (
	"bufio"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

var log = logger.GetLogger("db")

//go:embed schema.sql
var schemaSQL string

const (
	snapshotMagic   = "dtodo-sqlite"
	snapshotVersion = 1
)

// sqliteImpl implements db.KVDB on a sqlite file
type sqliteImpl struct {
	db   *sql.DB
	path string

	// lastIdx is the last write index read from or written to the file
	lastIdx atomic.Uint64
}

// Open creates or opens a sqlite slot database at the given path.
// Applies the required pragmas and the schema. Safe to call on an existing file.
// The path ":memory:" opens a private in-memory database.
func Open(path string) (db.KVDB, error) {
	// immediate transactions take the write lock up front, so two processes on one
	// file queue on busy_timeout instead of failing the lock upgrade
	conn, err := sql.Open("sqlite3", path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := applyPragmas(conn, path); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	impl := &sqliteImpl{db: conn, path: path}

	var idx uint64
	if err := conn.QueryRow("SELECT write_idx FROM meta WHERE id = 1").Scan(&idx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read write index: %w", err)
	}
	impl.lastIdx.Store(idx)

	return impl, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(conn *sql.DB, path string) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	if path != ":memory:" {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set inserts or replaces the slot.
func (s *sqliteImpl) Set(key string, value []byte, writeIdx uint64) error {
	_, err := s.write(key, writeIdx, func(tx *sql.Tx, idx uint64) (sql.Result, error) {
		return tx.Exec(`
			INSERT INTO slots (key, value, write_idx) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, write_idx = excluded.write_idx`,
			key, nonNil(value), idx)
	})
	return err
}

// SetIfUnset inserts the slot only if the key does not exist yet.
func (s *sqliteImpl) SetIfUnset(key string, value []byte, writeIdx uint64) error {
	_, err := s.write(key, writeIdx, func(tx *sql.Tx, idx uint64) (sql.Result, error) {
		return tx.Exec(`INSERT OR IGNORE INTO slots (key, value, write_idx) VALUES (?, ?, ?)`, key, nonNil(value), idx)
	})
	return err
}

// Delete removes the slot. Deleting a missing slot is not an error.
func (s *sqliteImpl) Delete(key string, writeIdx uint64) error {
	_, err := s.write(key, writeIdx, func(tx *sql.Tx, _ uint64) (sql.Result, error) {
		return tx.Exec(`DELETE FROM slots WHERE key = ?`, key)
	})
	return err
}

// CompareAndSwap replaces the slot only if its stored value equals expected.
func (s *sqliteImpl) CompareAndSwap(key string, expected, value []byte, writeIdx uint64) (bool, error) {
	n, err := s.write(key, writeIdx, func(tx *sql.Tx, idx uint64) (sql.Result, error) {
		return tx.Exec(`UPDATE slots SET value = ?, write_idx = ? WHERE key = ? AND value = ?`,
			nonNil(value), idx, key, nonNil(expected))
	})
	return n == 1, err
}

// CompareAndDelete removes the slot only if its stored value equals expected.
func (s *sqliteImpl) CompareAndDelete(key string, expected []byte, writeIdx uint64) (bool, error) {
	n, err := s.write(key, writeIdx, func(tx *sql.Tx, _ uint64) (sql.Result, error) {
		return tx.Exec(`DELETE FROM slots WHERE key = ? AND value = ?`, key, nonNil(expected))
	})
	return n == 1, err
}

// write runs stmt in one immediate transaction and returns the affected rows.
// The slot is written with the next index of the file: at least writeIdx and above
// every index stored so far, also those written by other handles on the same file.
func (s *sqliteImpl) write(key string, writeIdx uint64, stmt func(tx *sql.Tx, idx uint64) (sql.Result, error)) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var idx uint64
	if err := tx.QueryRow(`UPDATE meta SET write_idx = MAX(write_idx + 1, ?) WHERE id = 1 RETURNING write_idx`, writeIdx).Scan(&idx); err != nil {
		return 0, fmt.Errorf("failed to advance write index: %w", err)
	}

	res, err := stmt(tx, idx)
	if err != nil {
		return 0, fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit slot %q: %w", key, err)
	}

	s.cacheIdx(idx)
	return n, nil
}

// nonNil maps a nil value to an empty blob (the column is NOT NULL)
func nonNil(value []byte) []byte {
	if value == nil {
		return []byte{}
	}
	return value
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

func (s *sqliteImpl) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (s *sqliteImpl) Has(key string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM slots WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// snapshotHeader is the first line of a snapshot
type snapshotHeader struct {
	Magic    string `json:"magic"`
	Version  int    `json:"version"`
	WriteIdx uint64 `json:"write_idx"`
	Count    int    `json:"count"`
}

// snapshotSlot is one line per slot following the header
type snapshotSlot struct {
	Key      string `json:"key"`
	Value    []byte `json:"value"`
	WriteIdx uint64 `json:"write_idx"`
}

// Save writes all slots as newline delimited JSON.
func (s *sqliteImpl) Save(w io.Writer) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var header snapshotHeader
	if err := tx.QueryRow(`SELECT COUNT(*) FROM slots`).Scan(&header.Count); err != nil {
		return fmt.Errorf("failed to count slots: %w", err)
	}
	if err := tx.QueryRow(`SELECT write_idx FROM meta WHERE id = 1`).Scan(&header.WriteIdx); err != nil {
		return fmt.Errorf("failed to read write index: %w", err)
	}
	header.Magic = snapshotMagic
	header.Version = snapshotVersion

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	if err := enc.Encode(header); err != nil {
		return err
	}

	rows, err := tx.Query(`SELECT key, value, write_idx FROM slots ORDER BY key`)
	if err != nil {
		return fmt.Errorf("failed to read slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slot snapshotSlot
		if err := rows.Scan(&slot.Key, &slot.Value, &slot.WriteIdx); err != nil {
			return fmt.Errorf("failed to scan slot: %w", err)
		}
		if err := enc.Encode(slot); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return bw.Flush()
}

// Load replaces all slots with the snapshot content in a single transaction.
func (s *sqliteImpl) Load(r io.Reader) error {
	dec := json.NewDecoder(bufio.NewReader(r))

	var header snapshotHeader
	if err := dec.Decode(&header); err != nil {
		return fmt.Errorf("invalid snapshot header: %w", err)
	}
	if header.Magic != snapshotMagic {
		return fmt.Errorf("invalid file format: magic mismatch")
	}
	if header.Version != snapshotVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", header.Version, snapshotVersion)
	}

	slots := make([]snapshotSlot, 0, header.Count)
	for i := 0; i < header.Count; i++ {
		var slot snapshotSlot
		if err := dec.Decode(&slot); err != nil {
			return fmt.Errorf("invalid snapshot slot %d of %d: %w", i+1, header.Count, err)
		}
		slots = append(slots, slot)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM slots`); err != nil {
		return fmt.Errorf("failed to clear slots: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO slots (key, value, write_idx) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	writeIdx := header.WriteIdx
	for _, slot := range slots {
		if _, err := stmt.Exec(slot.Key, nonNil(slot.Value), slot.WriteIdx); err != nil {
			return fmt.Errorf("failed to restore slot %q: %w", slot.Key, err)
		}
		if slot.WriteIdx > writeIdx {
			writeIdx = slot.WriteIdx
		}
	}
	if _, err := tx.Exec(`UPDATE meta SET write_idx = MAX(write_idx, ?) WHERE id = 1`, writeIdx); err != nil {
		return fmt.Errorf("failed to update write index: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.cacheIdx(writeIdx)
	return nil
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

func (s *sqliteImpl) GetInfo() db.DatabaseInfo {
	var count, size int
	if err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM slots`).Scan(&count, &size); err != nil {
		log.Errorf("failed to read slot statistics of %s: %v", s.path, err)
	}

	meta := &struct {
		Path              string `json:"path"`
		CurrentWriteIndex uint64 `json:"current_write_index"`
	}{
		Path:              s.path,
		CurrentWriteIndex: s.WriteIdx(),
	}

	return db.DatabaseInfo{
		SlotCount: count,
		SizeBytes: size,
		DbType:    db.ImplSQLite,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureSetIfUnset,
			db.FeatureGet, db.FeatureHas, db.FeatureDelete,
			db.FeatureSave, db.FeatureLoad, db.FeatureDurable,
			db.FeatureCompareAndSwap,
		},
		Metadata: meta,
	}
}

func (s *sqliteImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureSetIfUnset |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureSave |
		db.FeatureLoad |
		db.FeatureDurable |
		db.FeatureCompareAndSwap
	return supportedFeatures&feature == feature
}

// SetWriteIdx raises the index stored in the file
func (s *sqliteImpl) SetWriteIdx(newIdx uint64) {
	if _, err := s.db.Exec(`UPDATE meta SET write_idx = MAX(write_idx, ?) WHERE id = 1`, newIdx); err != nil {
		log.Errorf("failed to set write index of %s: %v", s.path, err)
		return
	}
	s.cacheIdx(newIdx)
}

// WriteIdx reads the index stored in the file, so writes of other handles are seen.
// The last known index is returned if the file cannot be read.
func (s *sqliteImpl) WriteIdx() uint64 {
	var idx uint64
	if err := s.db.QueryRow(`SELECT write_idx FROM meta WHERE id = 1`).Scan(&idx); err != nil {
		log.Errorf("failed to read write index of %s: %v", s.path, err)
		return s.lastIdx.Load()
	}
	s.cacheIdx(idx)
	return idx
}

// cacheIdx raises the last known index
func (s *sqliteImpl) cacheIdx(idx uint64) {
	for {
		curr := s.lastIdx.Load()
		if idx <= curr || s.lastIdx.CompareAndSwap(curr, idx) {
			return
		}
	}
}

// Close closes the database connection.
func (s *sqliteImpl) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
