package encryption

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESGCMRoundTrip(t *testing.T) {
	for _, size := range []int{16, 24, 32} {
		key := make([]byte, size)
		_, err := rand.Read(key)
		require.NoError(t, err)

		ct, nonce, err := EncryptAESGCM([]byte("replay state"), key)
		require.NoError(t, err)

		plain, err := DecryptAESGCM(ct, key, nonce)
		require.NoError(t, err)
		assert.Equal(t, []byte("replay state"), plain)

		ct[0] ^= 0xFF
		_, err = DecryptAESGCM(ct, key, nonce)
		assert.Error(t, err)
	}
}

func TestAESGCMInvalidKey(t *testing.T) {
	_, _, err := EncryptAESGCM([]byte("x"), []byte("short"))
	assert.Error(t, err)

	_, err = DecryptAESGCM([]byte("x"), []byte("short"), make([]byte, 12))
	assert.Error(t, err)

	_, err = DecryptAESGCM([]byte("x"), make([]byte, 32), []byte{1})
	assert.Error(t, err)
}

func TestKeyID(t *testing.T) {
	a := KeyID([]byte("0123456789abcdef"))
	assert.Len(t, a, 16)
	assert.Equal(t, a, KeyID([]byte("0123456789abcdef")))
	assert.NotEqual(t, a, KeyID([]byte("fedcba9876543210")))
}
