package testing

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/dTodo/lib/db"
	"sync/atomic"
	"testing"
)

// RunKVDBBenchmarks runs all benchmarks for a slot database implementation
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run(name+"/Set", func(b *testing.B) {
		benchmarkSet(b, factory())
	})

	b.Run(name+"/SetCollection", func(b *testing.B) {
		benchmarkSetCollection(b, factory())
	})

	b.Run(name+"/Get", func(b *testing.B) {
		benchmarkGet(b, factory())
	})

	b.Run(name+"/SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// collectionBlob builds a serialized collection with n records
func collectionBlob(n int) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"todos":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `{"id":%d,"title":"task %d","completed":%t}`, i+1, i, i%2 == 0)
	}
	buf.WriteString(`]}`)
	return buf.Bytes()
}

func benchmarkSet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	var idx atomic.Uint64
	value := collectionBlob(1)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			i := idx.Add(1)
			_ = database.Set(fmt.Sprintf("slot-%d", counter%100), value, i)
			counter++
		}
	})
}

// benchmarkSetCollection rewrites one slot with a 100 record collection, like the todo store does on every write
func benchmarkSetCollection(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	value := collectionBlob(100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Set("todos", value, uint64(i+1))
	}
}

func benchmarkGet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	value := collectionBlob(100)
	for i := 0; i < 100; i++ {
		_ = database.Set(fmt.Sprintf("slot-%d", i), value, uint64(i+1))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			_, _, _ = database.Get(fmt.Sprintf("slot-%d", counter%100))
			counter++
		}
	})
}

func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	database := factory()
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSave|db.FeatureLoad)

	value := collectionBlob(100)
	for i := 0; i < 1000; i++ {
		_ = database.Set(fmt.Sprintf("slot-%d", i), value, uint64(i+1))
	}

	var buf bytes.Buffer
	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf.Reset()
			if err := database.Save(&buf); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Load", func(b *testing.B) {
		target := factory()
		defer target.Close()
		for i := 0; i < b.N; i++ {
			if err := target.Load(bytes.NewReader(buf.Bytes())); err != nil {
				b.Fatal(err)
			}
		}
	})
}
