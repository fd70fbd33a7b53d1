// Package model is the application facade over a todo store.
package model
