package kvstore

import (
	"errors"
	"io"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/luxfi/srup/pkg/logger"
)

const (
	indexCacheSize   = 64 << 20
	maxPendingWrites = 256
)

// Config configures a BadgerKVStore.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// EncryptionKey enables at-rest encryption when non-empty.
	EncryptionKey []byte
	InMemory      bool
}

// BadgerKVStore is an implementation of the KVStore interface using Badger.
type BadgerKVStore struct {
	db *badger.DB
}

var _ KVStore = (*BadgerKVStore)(nil)

// NewBadgerKVStore opens or creates a Badger database.
func NewBadgerKVStore(config Config) (*BadgerKVStore, error) {
	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Path)
	}
	opts = opts.WithLogger(nil)

	if len(config.EncryptionKey) > 0 {
		switch len(config.EncryptionKey) {
		case 16, 24, 32:
		default:
			return nil, ErrInvalidEncryptionKey
		}
		opts = opts.WithEncryptionKey(config.EncryptionKey).WithIndexCacheSize(indexCacheSize)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to badger successfully!",
		"path", config.Path,
		"in_memory", config.InMemory,
		"encrypted", len(config.EncryptionKey) > 0,
	)
	return &BadgerKVStore{db: db}, nil
}

// Put stores a key-value pair in Badger.
func (b *BadgerKVStore) Put(key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Get retrieves the value associated with a key from Badger.
func (b *BadgerKVStore) Get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (b *BadgerKVStore) Keys() ([]string, error) {
	return b.KeysWithPrefix("")
}

// KeysWithPrefix lists keys starting with prefix in lexical order.
func (b *BadgerKVStore) KeysWithPrefix(prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Delete removes a key-value pair from Badger.
func (b *BadgerKVStore) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Backup streams every version newer than since to w and returns the
// watermark for the next incremental backup.
func (b *BadgerKVStore) Backup(w io.Writer, since uint64) (uint64, error) {
	return b.db.Backup(w, since)
}

// Load replays a stream written by Backup.
func (b *BadgerKVStore) Load(r io.Reader) error {
	return b.db.Load(r, maxPendingWrites)
}

// Close closes the Badger database.
func (b *BadgerKVStore) Close() error {
	return b.db.Close()
}

// PrefixedKey joins key parts with '/'.
func PrefixedKey(parts ...string) string {
	return strings.Join(parts, "/")
}
