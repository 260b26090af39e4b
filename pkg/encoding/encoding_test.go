package encoding

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeECDSAPubKey(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	pubKey := &privateKey.PublicKey

	encoded, err := EncodeECDSAPubKey(pubKey)
	require.NoError(t, err)

	// Always 64 bytes regardless of the byte length of X and Y
	assert.Equal(t, 64, len(encoded))

	xBytes := pubKey.X.Bytes()
	expectedX := make([]byte, 32)
	copy(expectedX[32-len(xBytes):], xBytes)
	assert.Equal(t, expectedX, encoded[:32])

	yBytes := pubKey.Y.Bytes()
	expectedY := make([]byte, 32)
	copy(expectedY[32-len(yBytes):], yBytes)
	assert.Equal(t, expectedY, encoded[32:])
}

func TestEncodeECDSAPubKey_SpecificValues(t *testing.T) {
	pubKey := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     big.NewInt(12345),
		Y:     big.NewInt(67890),
	}

	encoded, err := EncodeECDSAPubKey(pubKey)
	require.NoError(t, err)
	assert.Equal(t, 64, len(encoded))

	// 12345 = 0x3039, 67890 = 0x010932
	assert.Equal(t, []byte{0x30, 0x39}, encoded[30:32])
	assert.Equal(t, []byte{0x01, 0x09, 0x32}, encoded[61:64])
	assert.Equal(t, make([]byte, 30), encoded[:30])
}

func TestEncodeECDSAPubKey_ZeroCoordinates(t *testing.T) {
	pubKey := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     big.NewInt(0),
		Y:     big.NewInt(0),
	}

	encoded, err := EncodeECDSAPubKey(pubKey)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 64), encoded)
}

func TestEncodeECDSAPubKey_NilPublicKey(t *testing.T) {
	_, err := EncodeECDSAPubKey(nil)
	assert.ErrorIs(t, err, ErrNilPublicKey)
}

func TestEncodeECDSAPubKey_P384(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	encoded, err := EncodeECDSAPubKey(&privateKey.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, 96, len(encoded))
}

func TestSecp256k1PubKey_RoundTrip(t *testing.T) {
	for i := 0; i < 10; i++ {
		privateKey, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		originalPubKey := privateKey.PubKey()

		encoded, err := EncodeSecp256k1PubKey(originalPubKey)
		require.NoError(t, err)
		assert.Equal(t, 33, len(encoded))

		decodedPubKey, err := DecodeSecp256k1PubKey(encoded)
		require.NoError(t, err)
		assert.True(t, originalPubKey.IsEqual(decodedPubKey), "Round trip %d failed", i)
	}
}

func TestDecodeSecp256k1PubKey_InvalidData(t *testing.T) {
	_, err := DecodeSecp256k1PubKey([]byte("invalid key data"))
	assert.Error(t, err)

	_, err = DecodeSecp256k1PubKey([]byte{})
	assert.Error(t, err)
}

func TestEncodeEd25519PubKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	encoded, err := EncodeEd25519PubKey(pub)
	require.NoError(t, err)
	assert.Equal(t, []byte(pub), encoded)

	// The result must not alias the key.
	encoded[0] ^= 0xFF
	assert.NotEqual(t, pub[0], encoded[0])

	_, err = EncodeEd25519PubKey(pub[:31])
	assert.Error(t, err)
}

func TestEncodeRSAPubKey(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	encoded, err := EncodeRSAPubKey(&privateKey.PublicKey)
	require.NoError(t, err)

	parsed, err := x509.ParsePKIXPublicKey(encoded)
	require.NoError(t, err)
	assert.True(t, privateKey.PublicKey.Equal(parsed))

	_, err = EncodeRSAPubKey(nil)
	assert.ErrorIs(t, err, ErrNilPublicKey)
}

func TestJsonHelpers(t *testing.T) {
	type sample struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	data, err := StructToJsonBytes(sample{Name: "activate", Count: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"activate","count":3}`, string(data))

	var out sample
	require.NoError(t, JsonBytesToStruct(data, &out))
	assert.Equal(t, "activate", out.Name)

	indented, err := StructToIndentedJson(out)
	require.NoError(t, err)
	assert.Contains(t, string(indented), "\n  \"name\"")
}
