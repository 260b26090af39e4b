// Package keys loads, generates and stores the key handles that sign and
// verify SRUP messages. Handles are immutable once built and safe for
// concurrent use.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/luxfi/srup/pkg/encoding"
	"github.com/luxfi/srup/pkg/srup"
	"github.com/luxfi/srup/pkg/utils"
)

// Algorithm names a signature scheme.
type Algorithm string

const (
	RSA       Algorithm = "rsa"
	ECDSAP256 Algorithm = "ecdsa-p256"
	Ed25519   Algorithm = "ed25519"
	Secp256k1 Algorithm = "secp256k1"
)

// RSABits is the modulus size used by Generate.
const RSABits = 2048

var (
	ErrEmptyPath          = errors.New("keys: empty key path")
	ErrUnsupportedKey     = errors.New("keys: unsupported key type")
	ErrUnknownAlgorithm   = errors.New("keys: unknown algorithm")
	ErrNoPEMData          = errors.New("keys: no key data found")
	ErrPassphraseRequired = errors.New("keys: key is encrypted and no passphrase provider is configured")
	ErrBadDigest          = errors.New("keys: digest must be 32 bytes")
)

// Algorithms lists every supported scheme.
func Algorithms() []Algorithm {
	return []Algorithm{RSA, ECDSAP256, Ed25519, Secp256k1}
}

// ParseAlgorithm accepts an algorithm name, case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	alg := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range Algorithms() {
		if a == alg {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// PublicKey verifies SRUP signatures.
type PublicKey interface {
	srup.Verifier
	Algorithm() Algorithm
	// Bytes is the canonical public key encoding used for fingerprints.
	Bytes() ([]byte, error)
	Fingerprint() string
	pemBlock() (*pem.Block, error)
}

// PrivateKey signs SRUP messages.
type PrivateKey interface {
	srup.Signer
	Algorithm() Algorithm
	Public() PublicKey
	pemBlock() (*pem.Block, error)
}

// Generate creates a new private key for alg.
func Generate(alg Algorithm) (PrivateKey, error) {
	switch alg {
	case RSA:
		k, err := rsa.GenerateKey(rand.Reader, RSABits)
		if err != nil {
			return nil, err
		}
		return &rsaPrivateKey{key: k}, nil
	case ECDSAP256:
		k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, err
		}
		return &ecdsaPrivateKey{key: k}, nil
	case Ed25519:
		_, k, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return &ed25519PrivateKey{key: k}, nil
	case Secp256k1:
		k, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		return &secp256k1PrivateKey{key: k}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(alg))
	}
}

// wrapPrivate turns a parsed crypto key into a handle.
func wrapPrivate(k any) (PrivateKey, error) {
	switch key := k.(type) {
	case *rsa.PrivateKey:
		if err := key.Validate(); err != nil {
			return nil, fmt.Errorf("keys: invalid rsa key: %w", err)
		}
		return &rsaPrivateKey{key: key}, nil
	case *ecdsa.PrivateKey:
		if key.Curve != elliptic.P256() {
			return nil, fmt.Errorf("%w: ecdsa curve %s", ErrUnsupportedKey, key.Curve.Params().Name)
		}
		return &ecdsaPrivateKey{key: key}, nil
	case ed25519.PrivateKey:
		return &ed25519PrivateKey{key: key}, nil
	case *ed25519.PrivateKey:
		return &ed25519PrivateKey{key: *key}, nil
	case *secp256k1.PrivateKey:
		return &secp256k1PrivateKey{key: key}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, k)
	}
}

// wrapPublic turns a parsed crypto public key into a handle.
func wrapPublic(k any) (PublicKey, error) {
	switch key := k.(type) {
	case *rsa.PublicKey:
		return &rsaPublicKey{key: key}, nil
	case *ecdsa.PublicKey:
		if key.Curve != elliptic.P256() {
			return nil, fmt.Errorf("%w: ecdsa curve %s", ErrUnsupportedKey, key.Curve.Params().Name)
		}
		return &ecdsaPublicKey{key: key}, nil
	case ed25519.PublicKey:
		if len(key) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: ed25519 key of %d bytes", ErrUnsupportedKey, len(key))
		}
		return &ed25519PublicKey{key: key}, nil
	case *secp256k1.PublicKey:
		return &secp256k1PublicKey{key: key}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, k)
	}
}

func fingerprint(pub PublicKey) string {
	b, err := pub.Bytes()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(utils.GetMessageHash(b)[:16])
}

func checkDigest(digest []byte) error {
	if len(digest) != sha256.Size {
		return ErrBadDigest
	}
	return nil
}

// RSA PKCS#1 v1.5 over SHA-256.

type rsaPrivateKey struct{ key *rsa.PrivateKey }

func (k *rsaPrivateKey) Algorithm() Algorithm { return RSA }
func (k *rsaPrivateKey) Public() PublicKey    { return &rsaPublicKey{key: &k.key.PublicKey} }

func (k *rsaPrivateKey) SignDigest(digest []byte) ([]byte, error) {
	if err := checkDigest(digest); err != nil {
		return nil, err
	}
	return rsa.SignPKCS1v15(rand.Reader, k.key, crypto.SHA256, digest)
}

type rsaPublicKey struct{ key *rsa.PublicKey }

func (k *rsaPublicKey) Algorithm() Algorithm   { return RSA }
func (k *rsaPublicKey) Bytes() ([]byte, error) { return encoding.EncodeRSAPubKey(k.key) }
func (k *rsaPublicKey) Fingerprint() string    { return fingerprint(k) }

func (k *rsaPublicKey) VerifyDigest(digest, sig []byte) bool {
	if checkDigest(digest) != nil {
		return false
	}
	return rsa.VerifyPKCS1v15(k.key, crypto.SHA256, digest, sig) == nil
}

// ECDSA P-256 with ASN.1 signatures.

type ecdsaPrivateKey struct{ key *ecdsa.PrivateKey }

func (k *ecdsaPrivateKey) Algorithm() Algorithm { return ECDSAP256 }
func (k *ecdsaPrivateKey) Public() PublicKey    { return &ecdsaPublicKey{key: &k.key.PublicKey} }

func (k *ecdsaPrivateKey) SignDigest(digest []byte) ([]byte, error) {
	if err := checkDigest(digest); err != nil {
		return nil, err
	}
	return ecdsa.SignASN1(rand.Reader, k.key, digest)
}

type ecdsaPublicKey struct{ key *ecdsa.PublicKey }

func (k *ecdsaPublicKey) Algorithm() Algorithm   { return ECDSAP256 }
func (k *ecdsaPublicKey) Bytes() ([]byte, error) { return encoding.EncodeECDSAPubKey(k.key) }
func (k *ecdsaPublicKey) Fingerprint() string    { return fingerprint(k) }

func (k *ecdsaPublicKey) VerifyDigest(digest, sig []byte) bool {
	if checkDigest(digest) != nil {
		return false
	}
	return ecdsa.VerifyASN1(k.key, digest, sig)
}

// Ed25519 signs the digest as its message.

type ed25519PrivateKey struct{ key ed25519.PrivateKey }

func (k *ed25519PrivateKey) Algorithm() Algorithm { return Ed25519 }

func (k *ed25519PrivateKey) Public() PublicKey {
	return &ed25519PublicKey{key: k.key.Public().(ed25519.PublicKey)}
}

func (k *ed25519PrivateKey) SignDigest(digest []byte) ([]byte, error) {
	if err := checkDigest(digest); err != nil {
		return nil, err
	}
	return ed25519.Sign(k.key, digest), nil
}

type ed25519PublicKey struct{ key ed25519.PublicKey }

func (k *ed25519PublicKey) Algorithm() Algorithm   { return Ed25519 }
func (k *ed25519PublicKey) Bytes() ([]byte, error) { return encoding.EncodeEd25519PubKey(k.key) }
func (k *ed25519PublicKey) Fingerprint() string    { return fingerprint(k) }

func (k *ed25519PublicKey) VerifyDigest(digest, sig []byte) bool {
	if checkDigest(digest) != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(k.key, digest, sig)
}

// secp256k1 ECDSA with DER signatures (RFC 6979 nonces).

type secp256k1PrivateKey struct{ key *secp256k1.PrivateKey }

func (k *secp256k1PrivateKey) Algorithm() Algorithm { return Secp256k1 }
func (k *secp256k1PrivateKey) Public() PublicKey    { return &secp256k1PublicKey{key: k.key.PubKey()} }

func (k *secp256k1PrivateKey) SignDigest(digest []byte) ([]byte, error) {
	if err := checkDigest(digest); err != nil {
		return nil, err
	}
	return secpecdsa.Sign(k.key, digest).Serialize(), nil
}

type secp256k1PublicKey struct{ key *secp256k1.PublicKey }

func (k *secp256k1PublicKey) Algorithm() Algorithm   { return Secp256k1 }
func (k *secp256k1PublicKey) Bytes() ([]byte, error) { return encoding.EncodeSecp256k1PubKey(k.key) }
func (k *secp256k1PublicKey) Fingerprint() string    { return fingerprint(k) }

func (k *secp256k1PublicKey) VerifyDigest(digest, sig []byte) bool {
	if checkDigest(digest) != nil {
		return false
	}
	s, err := secpecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return s.Verify(digest, k.key)
}
