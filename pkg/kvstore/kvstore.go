// Package kvstore is the persistent key/value layer behind the replay guard
// and the sequence allocator.
package kvstore

import "errors"

var (
	ErrNotFound             = errors.New("kvstore: key not found")
	ErrInvalidEncryptionKey = errors.New("kvstore: encryption key must be 16, 24 or 32 bytes")
)

// KVStore is a flat string keyed byte store.
type KVStore interface {
	Put(key string, value []byte) error
	// Get returns ErrNotFound for missing keys.
	Get(key string) ([]byte, error)
	Keys() ([]string, error)
	Delete(key string) error
	Close() error
}
