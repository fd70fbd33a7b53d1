// Package cmd implements the command-line interface of dTodo. It provides a
// hierarchical command structure for running the server and for working with
// a collection as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the dtodo server
//   - tasks: The todo command group (add, list, find, done, undo, edit, rm, clear, drop, count, show, perf),
//     working on a server or directly on a sqlite file with --local
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dtodo -help for a list of all commands.
package cmd
