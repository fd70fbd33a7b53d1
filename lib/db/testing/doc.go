// Package testing provides the standardised conformance tests and benchmarks for
// slot databases that satisfy the db.KVDB interface.
//
// Example usage:
//
//	factory := func() db.KVDB {
//		return NewMyDatabase()
//	}
//
//	dbtesting.RunKVDBTests(t, "MyDatabase", factory)
//	dbtesting.RunKVDBBenchmarks(b, "MyDatabase", factory)
//
// Tests for features a database does not advertise via SupportsFeature are skipped.
package testing
