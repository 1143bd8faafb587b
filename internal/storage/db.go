// Package storage provides database abstractions.
package storage

import "errors"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// KV is the key-value surface shared by databases and the transactions they
// hand out from Update.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix in ascending key
	// order. The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	// fn must not start another ForEach on the same KV.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
}

// DB is the interface for key-value storage.
type DB interface {
	KV

	// Update runs fn in a read-write transaction. Writes made through the
	// KV passed to fn are committed atomically when fn returns nil and
	// discarded when it returns an error, which Update returns unchanged.
	// fn may be invoked again if a concurrent transaction touched the same
	// keys, so it must not have side effects outside the KV.
	Update(fn func(KV) error) error

	Close() error
}
