package keys

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ssh"

	"github.com/luxfi/srup/pkg/encoding"
)

// PEM block types beyond the x509 ones.
const (
	blockSecp256k1Private = "SECP256K1 PRIVATE KEY"
	blockSecp256k1Public  = "SECP256K1 PUBLIC KEY"
	blockOpenSSHPrivate   = "OPENSSH PRIVATE KEY"
)

// ParsePrivateKey parses a PEM or OpenSSH private key. Encrypted OpenSSH
// keys need passphrase; pass nil otherwise.
func ParsePrivateKey(data, passphrase []byte) (PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMData
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: parse pkcs1 key: %w", err)
		}
		return wrapPrivate(k)
	case "EC PRIVATE KEY":
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: parse ec key: %w", err)
		}
		return wrapPrivate(k)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: parse pkcs8 key: %w", err)
		}
		return wrapPrivate(k)
	case blockSecp256k1Private:
		if len(block.Bytes) != secp256k1.PrivKeyBytesLen {
			return nil, fmt.Errorf("keys: secp256k1 key must be %d bytes, got %d", secp256k1.PrivKeyBytesLen, len(block.Bytes))
		}
		return wrapPrivate(secp256k1.PrivKeyFromBytes(block.Bytes))
	case blockOpenSSHPrivate:
		return parseOpenSSHPrivateKey(data, passphrase)
	default:
		return nil, fmt.Errorf("%w: pem block %q", ErrUnsupportedKey, block.Type)
	}
}

func parseOpenSSHPrivateKey(data, passphrase []byte) (PrivateKey, error) {
	var (
		k   interface{}
		err error
	)
	if len(passphrase) > 0 {
		k, err = ssh.ParseRawPrivateKeyWithPassphrase(data, passphrase)
	} else {
		k, err = ssh.ParseRawPrivateKey(data)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, ErrPassphraseRequired
		}
		return nil, fmt.Errorf("keys: parse openssh key: %w", err)
	}
	return wrapPrivate(k)
}

// ParsePublicKey parses a PEM public key, a certificate, or a single
// authorized_keys line.
func ParsePublicKey(data []byte) (PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return parseAuthorizedKey(data)
	}

	switch block.Type {
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: parse pkix key: %w", err)
		}
		return wrapPublic(k)
	case "RSA PUBLIC KEY":
		k, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: parse pkcs1 public key: %w", err)
		}
		return wrapPublic(k)
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: parse certificate: %w", err)
		}
		return wrapPublic(cert.PublicKey)
	case blockSecp256k1Public:
		k, err := encoding.DecodeSecp256k1PubKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: %w", err)
		}
		return wrapPublic(k)
	default:
		return nil, fmt.Errorf("%w: pem block %q", ErrUnsupportedKey, block.Type)
	}
}

func parseAuthorizedKey(data []byte) (PublicKey, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoPEMData
	}
	pk, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, fmt.Errorf("keys: parse authorized key: %w", err)
	}
	cpk, ok := pk.(ssh.CryptoPublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: ssh key type %s", ErrUnsupportedKey, pk.Type())
	}
	return wrapPublic(cpk.CryptoPublicKey())
}

// MarshalPrivateKeyPEM encodes key as PEM. Standard algorithms use PKCS#8.
func MarshalPrivateKeyPEM(key PrivateKey) ([]byte, error) {
	block, err := key.pemBlock()
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(block), nil
}

// MarshalPublicKeyPEM encodes key as PEM. Standard algorithms use PKIX.
func MarshalPublicKeyPEM(key PublicKey) ([]byte, error) {
	block, err := key.pemBlock()
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(block), nil
}

func pkcs8Block(k interface{}) (*pem.Block, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k)
	if err != nil {
		return nil, err
	}
	return &pem.Block{Type: "PRIVATE KEY", Bytes: der}, nil
}

func pkixBlock(k interface{}) (*pem.Block, error) {
	der, err := x509.MarshalPKIXPublicKey(k)
	if err != nil {
		return nil, err
	}
	return &pem.Block{Type: "PUBLIC KEY", Bytes: der}, nil
}

func (k *rsaPrivateKey) pemBlock() (*pem.Block, error)     { return pkcs8Block(k.key) }
func (k *ecdsaPrivateKey) pemBlock() (*pem.Block, error)   { return pkcs8Block(k.key) }
func (k *ed25519PrivateKey) pemBlock() (*pem.Block, error) { return pkcs8Block(k.key) }

func (k *secp256k1PrivateKey) pemBlock() (*pem.Block, error) {
	return &pem.Block{Type: blockSecp256k1Private, Bytes: k.key.Serialize()}, nil
}

func (k *rsaPublicKey) pemBlock() (*pem.Block, error)     { return pkixBlock(k.key) }
func (k *ecdsaPublicKey) pemBlock() (*pem.Block, error)   { return pkixBlock(k.key) }
func (k *ed25519PublicKey) pemBlock() (*pem.Block, error) { return pkixBlock(k.key) }

func (k *secp256k1PublicKey) pemBlock() (*pem.Block, error) {
	return &pem.Block{Type: blockSecp256k1Public, Bytes: k.key.SerializeCompressed()}, nil
}
