package encoding

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var ErrNilPublicKey = errors.New("encoding: nil public key")

// EncodeECDSAPubKey encodes an ECDSA public key as X || Y, each coordinate
// padded to the curve's byte size. Fixed-size encoding avoids ambiguity when
// X or Y have leading zeros.
func EncodeECDSAPubKey(pubKey *ecdsa.PublicKey) ([]byte, error) {
	if pubKey == nil || pubKey.Curve == nil || pubKey.X == nil || pubKey.Y == nil {
		return nil, ErrNilPublicKey
	}
	coordSize := (pubKey.Curve.Params().BitSize + 7) / 8

	xBytes := pubKey.X.Bytes()
	yBytes := pubKey.Y.Bytes()
	if len(xBytes) > coordSize || len(yBytes) > coordSize {
		return nil, fmt.Errorf("encoding: coordinate exceeds %d bytes", coordSize)
	}

	publicKeyBytes := make([]byte, coordSize*2)
	// Right-align both coordinates.
	copy(publicKeyBytes[coordSize-len(xBytes):coordSize], xBytes)
	copy(publicKeyBytes[coordSize*2-len(yBytes):], yBytes)

	return publicKeyBytes, nil
}

// EncodeSecp256k1PubKey returns the 33 byte compressed form.
func EncodeSecp256k1PubKey(pubKey *secp256k1.PublicKey) ([]byte, error) {
	if pubKey == nil {
		return nil, ErrNilPublicKey
	}
	return pubKey.SerializeCompressed(), nil
}

// DecodeSecp256k1PubKey parses a compressed or uncompressed secp256k1 key.
func DecodeSecp256k1PubKey(data []byte) (*secp256k1.PublicKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("encoding: empty secp256k1 public key")
	}
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("encoding: invalid secp256k1 public key: %w", err)
	}
	return pub, nil
}

// EncodeEd25519PubKey returns the raw 32 byte key.
func EncodeEd25519PubKey(pubKey ed25519.PublicKey) ([]byte, error) {
	if len(pubKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("encoding: ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pubKey))
	}
	out := make([]byte, ed25519.PublicKeySize)
	copy(out, pubKey)
	return out, nil
}

// EncodeRSAPubKey returns the PKIX DER encoding.
func EncodeRSAPubKey(pubKey *rsa.PublicKey) ([]byte, error) {
	if pubKey == nil || pubKey.N == nil {
		return nil, ErrNilPublicKey
	}
	return x509.MarshalPKIXPublicKey(pubKey)
}
