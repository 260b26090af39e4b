package kvstore

import (
	"bytes"
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateRandomKey(size int) []byte {
	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}

func newMemoryStore(t *testing.T) *BadgerKVStore {
	t.Helper()
	store, err := NewBadgerKVStore(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerKVStore_CRUD(t *testing.T) {
	store := newMemoryStore(t)

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put("replay/1", []byte("a")))
	require.NoError(t, store.Put("replay/2", []byte("b")))
	require.NoError(t, store.Put("sequence/1", []byte("c")))

	v, err := store.Get("replay/1")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), v)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"replay/1", "replay/2", "sequence/1"}, keys)

	keys, err = store.KeysWithPrefix("replay/")
	require.NoError(t, err)
	assert.Equal(t, []string{"replay/1", "replay/2"}, keys)

	require.NoError(t, store.Put("replay/1", []byte("z")))
	v, err = store.Get("replay/1")
	require.NoError(t, err)
	assert.Equal(t, []byte("z"), v)

	require.NoError(t, store.Delete("replay/1"))
	_, err = store.Get("replay/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerKVStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	key := generateRandomKey(32)

	store, err := NewBadgerKVStore(Config{Path: path, EncryptionKey: key})
	require.NoError(t, err)
	require.NoError(t, store.Put("k", []byte("v")))
	require.NoError(t, store.Close())

	store, err = NewBadgerKVStore(Config{Path: path, EncryptionKey: key})
	require.NoError(t, err)
	defer store.Close()

	v, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestBadgerKVStore_InvalidEncryptionKey(t *testing.T) {
	_, err := NewBadgerKVStore(Config{InMemory: true, EncryptionKey: []byte("short")})
	assert.ErrorIs(t, err, ErrInvalidEncryptionKey)
}

func TestBadgerKVStore_BackupAndLoad(t *testing.T) {
	src := newMemoryStore(t)
	require.NoError(t, src.Put("replay/42", []byte("state")))

	var buf bytes.Buffer
	since, err := src.Backup(&buf, 0)
	require.NoError(t, err)
	assert.Greater(t, since, uint64(0))

	dst := newMemoryStore(t)
	require.NoError(t, dst.Load(&buf))

	v, err := dst.Get("replay/42")
	require.NoError(t, err)
	assert.Equal(t, []byte("state"), v)
}

func TestPrefixedKey(t *testing.T) {
	assert.Equal(t, "replay/0x10", PrefixedKey("replay", "0x10"))
}
