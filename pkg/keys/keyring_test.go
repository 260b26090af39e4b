package keys

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyring(t *testing.T) {
	dir := t.TempDir()
	a, err := Generate(Ed25519)
	require.NoError(t, err)
	b, err := Generate(Secp256k1)
	require.NoError(t, err)

	pathA := filepath.Join(dir, "a.pub")
	pathB := filepath.Join(dir, "b.pub")
	require.NoError(t, WritePublicKey(pathA, a.Public()))
	require.NoError(t, WritePublicKey(pathB, b.Public()))

	ring, err := LoadKeyring(map[string]string{
		"0x5F5F5F5F5F5F5F5F": pathA,
		"7":                  pathB,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 0x5F5F5F5F5F5F5F5F}, ring.Senders())

	msg := activate(t)
	require.NoError(t, msg.Sign(a))
	v, err := ring.Verifier(0x5F5F5F5F5F5F5F5F)
	require.NoError(t, err)
	assert.True(t, msg.Verify(v))

	v, err = ring.Verifier(7)
	require.NoError(t, err)
	assert.False(t, msg.Verify(v))

	_, err = ring.Verifier(8)
	assert.ErrorIs(t, err, ErrUnknownSender)
}

func TestLoadKeyringErrors(t *testing.T) {
	_, err := LoadKeyring(map[string]string{"not-a-number": "x.pub"})
	assert.Error(t, err)

	_, err = LoadKeyring(map[string]string{"1": filepath.Join(t.TempDir(), "missing.pub")})
	assert.Error(t, err)
}
