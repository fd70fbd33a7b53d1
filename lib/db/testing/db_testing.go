package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/dTodo/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs the conformance test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("SetIfUnset", func(t *testing.T) {
			testSetIfUnset(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("WriteIdx", func(t *testing.T) {
			testWriteIdx(t, factory())
		})

		t.Run("StaleWrite", func(t *testing.T) {
			testStaleWrite(t, factory())
		})

		t.Run("UnorderedWrite", func(t *testing.T) {
			testUnorderedWrite(t, factory())
		})

		t.Run("CompareAndSwap", func(t *testing.T) {
			testCompareAndSwap(t, factory())
		})

		t.Run("CompareAndDelete", func(t *testing.T) {
			testCompareAndDelete(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("ConcurrentSlots", func(t *testing.T) {
			testConcurrentSlots(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustGet(t testing.TB, database db.KVDB, key string) ([]byte, bool) {
	t.Helper()
	value, ok, err := database.Get(key)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", key, err)
	}
	return value, ok
}

func mustHas(t testing.TB, database db.KVDB, key string) bool {
	t.Helper()
	ok, err := database.Has(key)
	if err != nil {
		t.Fatalf("Has(%s) failed: %v", key, err)
	}
	return ok
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "todos-test"
	testValue1 := []byte(`{"todos":[]}`)
	testValue2 := []byte(`{"todos":[{"id":1,"title":"a","completed":false}]}`)

	if err := database.Set(testKey, testValue1, 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, exists := mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	if err := database.Set(testKey, testValue2, 2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, exists = mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, exists = mustGet(t, database, "nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _ := mustGet(t, database, testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := mustGet(t, database, testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}
}

func testSetIfUnset(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetIfUnset|db.FeatureGet)

	testKey := "todos-unset"
	testValue1 := []byte("first")
	testValue2 := []byte("second")

	if err := database.SetIfUnset(testKey, testValue1, 1); err != nil {
		t.Fatalf("SetIfUnset failed: %v", err)
	}

	result, exists := mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after SetIfUnset", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	if err := database.SetIfUnset(testKey, testValue2, 2); err != nil {
		t.Fatalf("SetIfUnset failed: %v", err)
	}

	result, _ = mustGet(t, database, testKey)
	if !bytes.Equal(result, testValue1) {
		t.Errorf("SetIfUnset must not overwrite: expected %s, got %s", testValue1, result)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	testKey := "delete-test-key"
	testValue := []byte("delete-test-value")

	if err := database.Set(testKey, testValue, 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, exists := mustGet(t, database, testKey); !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if err := database.Delete(testKey, 2); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, exists := mustGet(t, database, testKey); exists {
		t.Errorf("Expected key %s to not exist after Delete", testKey)
	}

	if err := database.Delete("nonexistent-key", 3); err != nil {
		t.Errorf("Deleting a missing key must not fail: %v", err)
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureDelete|db.FeatureHas)

	testKey := "has-test-key"

	if mustHas(t, database, testKey) {
		t.Errorf("Expected Has to return false for nonexistent key")
	}

	_ = database.Set(testKey, []byte("v"), 1)
	if !mustHas(t, database, testKey) {
		t.Errorf("Expected Has to return true after Set")
	}

	_ = database.Set("empty-slot", []byte{}, 2)
	if !mustHas(t, database, "empty-slot") {
		t.Errorf("Expected Has to return true for an empty value")
	}

	_ = database.Delete(testKey, 3)
	if mustHas(t, database, testKey) {
		t.Errorf("Expected Has to return false after Delete")
	}
}

func testWriteIdx(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	_ = database.Set("a", []byte("a"), 10)
	if idx := database.WriteIdx(); idx != 10 {
		t.Errorf("Expected write index 10, got %d", idx)
	}

	database.SetWriteIdx(5)
	if idx := database.WriteIdx(); idx != 10 {
		t.Errorf("Write index must not decrease, got %d", idx)
	}

	database.SetWriteIdx(42)
	if idx := database.WriteIdx(); idx != 42 {
		t.Errorf("Expected write index 42, got %d", idx)
	}
}

func testStaleWrite(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete|db.FeatureOrderedWrites)

	_ = database.Set("slot", []byte("new"), 10)
	_ = database.Set("slot", []byte("old"), 5)

	if value, _ := mustGet(t, database, "slot"); string(value) != "new" {
		t.Errorf("Stale Set must be ignored, got %s", value)
	}

	_ = database.Delete("slot", 7)
	if !mustHas(t, database, "slot") {
		t.Errorf("Stale Delete must be ignored")
	}
}

// Engines without ordered writes must apply a write even if its index is behind
func testUnorderedWrite(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)
	if database.SupportsFeature(db.FeatureOrderedWrites) {
		t.Skip()
	}

	_ = database.Set("slot", []byte("first"), 10)
	if err := database.Set("slot", []byte("second"), 5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if value, _ := mustGet(t, database, "slot"); string(value) != "second" {
		t.Errorf("Set with a lower index must be applied, got %s", value)
	}
	if idx := database.WriteIdx(); idx <= 10 {
		t.Errorf("Expected write index above 10, got %d", idx)
	}

	_ = database.Delete("slot", 7)
	if mustHas(t, database, "slot") {
		t.Errorf("Delete with a lower index must be applied")
	}
}

func testCompareAndSwap(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureCompareAndSwap)

	swapped, err := database.CompareAndSwap("lease", []byte("a"), []byte("b"), 1)
	if err != nil {
		t.Fatalf("CompareAndSwap failed: %v", err)
	}
	if swapped || mustHas(t, database, "lease") {
		t.Errorf("CompareAndSwap must not create a missing slot")
	}

	_ = database.Set("lease", []byte("a"), 2)

	if swapped, _ = database.CompareAndSwap("lease", []byte("x"), []byte("b"), 3); swapped {
		t.Errorf("CompareAndSwap with a wrong expected value must not swap")
	}
	if value, _ := mustGet(t, database, "lease"); string(value) != "a" {
		t.Errorf("Expected value a, got %s", value)
	}

	if swapped, _ = database.CompareAndSwap("lease", []byte("a"), []byte("b"), 4); !swapped {
		t.Errorf("CompareAndSwap with the stored value must swap")
	}
	if value, _ := mustGet(t, database, "lease"); string(value) != "b" {
		t.Errorf("Expected value b, got %s", value)
	}

	// the second of two contenders expecting the same value loses
	if swapped, _ = database.CompareAndSwap("lease", []byte("a"), []byte("c"), 5); swapped {
		t.Errorf("CompareAndSwap must fail once the value changed")
	}
}

func testCompareAndDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas|db.FeatureCompareAndSwap)

	if deleted, err := database.CompareAndDelete("lease", []byte("a"), 1); err != nil || deleted {
		t.Errorf("CompareAndDelete of a missing slot: deleted=%v err=%v", deleted, err)
	}

	_ = database.Set("lease", []byte("a"), 2)
	if deleted, _ := database.CompareAndDelete("lease", []byte("b"), 3); deleted {
		t.Errorf("CompareAndDelete with a wrong expected value must not delete")
	}
	if !mustHas(t, database, "lease") {
		t.Errorf("Slot must survive a failed CompareAndDelete")
	}
	if deleted, _ := database.CompareAndDelete("lease", []byte("a"), 4); !deleted {
		t.Errorf("CompareAndDelete with the stored value must delete")
	}
	if mustHas(t, database, "lease") {
		t.Errorf("Slot must be gone after CompareAndDelete")
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	defer database.Close()

	requireFeature(t, database, db.FeatureSave|db.FeatureLoad)

	slots := map[string][]byte{}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("todos-%d", i)
		value := []byte(fmt.Sprintf(`{"todos":[{"id":%d,"title":"t","completed":false}]}`, i))
		slots[key] = value
		if err := database.Set(key, value, uint64(i+1)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := factory()
	defer loaded.Close()

	// state before Load must be replaced
	_ = loaded.Set("stale", []byte("stale"), 1)

	if err := loaded.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for key, expected := range slots {
		value, ok := mustGet(t, loaded, key)
		if !ok {
			t.Errorf("Expected key %s to exist after Load", key)
			continue
		}
		if !bytes.Equal(value, expected) {
			t.Errorf("Key %s: expected %s, got %s", key, expected, value)
		}
	}

	if mustHas(t, loaded, "stale") {
		t.Errorf("Load must replace the previous state")
	}

	if idx := loaded.WriteIdx(); idx < 100 {
		t.Errorf("Expected write index >= 100 after Load, got %d", idx)
	}

	// truncated snapshots must be rejected
	if err := factory().Load(bytes.NewReader(buf.Bytes()[:buf.Len()/2])); err == nil {
		t.Errorf("Expected Load of a truncated snapshot to fail")
	}
	if err := factory().Load(bytes.NewReader([]byte("garbage"))); err == nil {
		t.Errorf("Expected Load of garbage to fail")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	cases := map[string][]byte{
		"":                 []byte("empty key"),
		"unicode-ключ-🌟":   []byte("unicode"),
		"nil-value":        nil,
		"large-value":      bytes.Repeat([]byte("x"), 1024*1024),
		"key with spaces":  []byte("spaces"),
		`key"with'quotes`:  []byte("quotes"),
		"binary-value":     {0, 1, 2, 255, 0},
		"todos-escaped<&>": []byte(`{"todos":[{"title":"<script>"}]}`),
	}

	idx := uint64(1)
	for key, value := range cases {
		if err := database.Set(key, value, idx); err != nil {
			t.Fatalf("Set(%q) failed: %v", key, err)
		}
		idx++
	}

	for key, expected := range cases {
		value, ok := mustGet(t, database, key)
		if !ok {
			t.Errorf("Expected key %q to exist", key)
			continue
		}
		if !bytes.Equal(value, expected) {
			t.Errorf("Key %q: value mismatch (len %d vs %d)", key, len(value), len(expected))
		}
	}
}

func testConcurrentSlots(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	const workers = 8
	const writes = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := fmt.Sprintf("worker-%d", w)
			for i := 1; i <= writes; i++ {
				if err := database.Set(key, []byte(fmt.Sprintf("%d", i)), uint64(w*writes+i)); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
				if _, _, err := database.Get(key); err != nil {
					t.Errorf("Get failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		value, ok := mustGet(t, database, fmt.Sprintf("worker-%d", w))
		if !ok || string(value) != fmt.Sprintf("%d", writes) {
			t.Errorf("worker-%d: expected %d, got %s (found=%v)", w, writes, value, ok)
		}
	}
}

func testInfo(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	_ = database.Set("a", []byte("1"), 1)
	_ = database.Set("b", []byte("2"), 2)

	info := database.GetInfo()
	if info.SlotCount != 2 {
		t.Errorf("Expected 2 slots, got %d", info.SlotCount)
	}
	if info.DbType == "" {
		t.Errorf("Expected db type to be set")
	}
	for _, feature := range info.SupportedFeatures {
		if !database.SupportsFeature(feature) {
			t.Errorf("GetInfo reports %s but SupportsFeature disagrees", feature)
		}
	}
}
