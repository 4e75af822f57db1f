// Package store persists characteristic search plans, so that a repeated
// attack on the same cipher shape can skip the search. Plans live in a small
// key/value database (in memory or badger on disk), compressed and keyed by
// a fingerprint of the cipher shape and the search parameters.
package store

import (
	"errors"
	"io"
)

var (
	// ErrNoSuchKey is returned when Get() was passed a non-existent key
	ErrNoSuchKey = errors.New("This key does not exist")
)

// Batch is an API object used to model a transaction.
type Batch interface {
	// Put sets `val` at `key`.
	Put(val []byte, key ...string)

	// Erase a key from the database.
	Erase(key ...string)

	// Flush the batch to the database.
	// Only now, all changes will be written to disk.
	Flush() error

	// Rollback will forget all changes without executing them.
	Rollback()
}

// Database is a key/value store. Keys are lists of strings,
// values are arbitrary untyped data.
type Database interface {
	// Get retrieves `key`. If no such key exists, it returns
	// (nil, ErrNoSuchKey). Values written by an open batch are visible.
	Get(key ...string) ([]byte, error)

	// Keys returns all keys starting with `prefix` in lexical order.
	Keys(prefix ...string) ([][]string, error)

	// Batch returns a new Batch object. Batch() can be called recursively:
	// changes are only written when Flush() was called as often as Batch().
	Batch() Batch

	// Export writes all database content to `w` in an implementation
	// specific format that can be read by Import.
	Export(w io.Writer) error

	// Import reads a dump previously written by Export.
	// Existing keys are overwritten if the dump also contains them.
	Import(r io.Reader) error

	// Close closes the database. Since I/O may happen, an error is returned.
	Close() error
}

// Open returns a badger database at `path` or,
// if `path` is empty, a fresh in-memory one.
func Open(path string) (Database, error) {
	if path == "" {
		return NewMemoryDatabase(), nil
	}

	return NewBadgerDatabase(path)
}
