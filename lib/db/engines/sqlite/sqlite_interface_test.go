package sqlite

import (
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
	dbtesting "github.com/ValentinKolb/dTodo/lib/db/testing"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// fileFactory opens a fresh database file per call inside the test's temp dir
func fileFactory(tb testing.TB) dbtesting.DBFactory {
	dir := tb.TempDir()
	var n atomic.Int64
	return func() db.KVDB {
		database, err := Open(filepath.Join(dir, fmt.Sprintf("slots-%d.db", n.Add(1))))
		if err != nil {
			tb.Fatalf("Open() failed: %v", err)
		}
		return database
	}
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "SQLite", fileFactory(t))
}

func TestInMemory(t *testing.T) {
	dbtesting.RunKVDBTests(t, "SQLite(:memory:)", func() db.KVDB {
		database, err := Open(":memory:")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		return database
	})
}

func TestOpen_ReopenKeepsSlots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := first.Set("todos", []byte(`{"todos":[]}`), 7); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer second.Close()

	value, ok, err := second.Get("todos")
	if err != nil || !ok {
		t.Fatalf("expected slot after reopen, found=%v err=%v", ok, err)
	}
	if string(value) != `{"todos":[]}` {
		t.Errorf("unexpected value %s", value)
	}
	if idx := second.WriteIdx(); idx != 7 {
		t.Errorf("expected persisted write index 7, got %d", idx)
	}
	if !second.SupportsFeature(db.FeatureDurable) {
		t.Errorf("sqlite must report FeatureDurable")
	}
}

func TestSharedFile_LaggingHandleStillWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open(a) failed: %v", err)
	}
	defer a.Close()
	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open(b) failed: %v", err)
	}
	defer b.Close()

	for i := uint64(1); i <= 50; i++ {
		if err := b.Set("todos", []byte(fmt.Sprintf("b-%d", i)), i); err != nil {
			t.Fatalf("b.Set failed: %v", err)
		}
	}

	// a still counts from its own, much lower index
	if err := a.Set("todos", []byte("from a"), 1); err != nil {
		t.Fatalf("a.Set failed: %v", err)
	}

	value, ok, err := b.Get("todos")
	if err != nil || !ok {
		t.Fatalf("b.Get failed: found=%v err=%v", ok, err)
	}
	if string(value) != "from a" {
		t.Errorf("write of the lagging handle was dropped, b sees %s", value)
	}

	if idx := a.WriteIdx(); idx <= 50 {
		t.Errorf("a must see the index written by b, got %d", idx)
	}
	if a.WriteIdx() != b.WriteIdx() {
		t.Errorf("handles disagree on the write index: %d vs %d", a.WriteIdx(), b.WriteIdx())
	}
}

func TestSharedFile_CompareAndSwapAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lease.db")

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open(a) failed: %v", err)
	}
	defer a.Close()
	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open(b) failed: %v", err)
	}
	defer b.Close()

	if err := a.Set("todos.lock", []byte("expired"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	swappedA, err := a.CompareAndSwap("todos.lock", []byte("expired"), []byte("owner-a"), 2)
	if err != nil {
		t.Fatalf("a.CompareAndSwap failed: %v", err)
	}
	swappedB, err := b.CompareAndSwap("todos.lock", []byte("expired"), []byte("owner-b"), 2)
	if err != nil {
		t.Fatalf("b.CompareAndSwap failed: %v", err)
	}
	if !swappedA || swappedB {
		t.Errorf("exactly the first handle must win: a=%v b=%v", swappedA, swappedB)
	}
}

func TestGetInfo_ClosedDatabase(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Set("todos", []byte("x"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	idx := s.WriteIdx()
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info := s.GetInfo()
	if info.SlotCount != 0 || info.SizeBytes != 0 {
		t.Errorf("closed database reported %d slots (%d bytes)", info.SlotCount, info.SizeBytes)
	}
	if info.DbType != db.ImplSQLite {
		t.Errorf("DbType = %v", info.DbType)
	}
	if got := s.WriteIdx(); got != idx {
		t.Errorf("WriteIdx after Close = %d, want the last known %d", got, idx)
	}
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "SQLite", fileFactory(b))
}
