// Package engine provides the ordered key-value storage the row store is
// built on.
package engine

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned when a key doesn't exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrEngineClosed is returned by every operation after Close.
	ErrEngineClosed = errors.New("engine closed")
)

// Engine defines the interface for storage backends
type Engine interface {
	// Get retrieves a value by key
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Put stores a key-value pair
	Put(ctx context.Context, key, value []byte) error

	// Delete removes a key
	Delete(ctx context.Context, key []byte) error

	// Scan returns an iterator over keys in [start, end) in key order.
	// A nil bound is unbounded.
	Scan(ctx context.Context, start, end []byte) (Iterator, error)

	// Close closes the engine
	Close() error
}

// Iterator provides iteration over key-value pairs
type Iterator interface {
	// Next moves to the next key-value pair
	Next() bool

	// Key returns the current key
	Key() []byte

	// Value returns the current value
	Value() []byte

	// Error returns any error that occurred during iteration
	Error() error

	// Close closes the iterator
	Close() error
}

// PrefixEnd returns the smallest key greater than every key starting with
// prefix, or nil if there is none.
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
