// Package util provides small helpers shared by the db engines.
//
// The package contains:
//   - functions: seed generation and the FNV-1a string hash used for shard selection
package util
