package keys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/luxfi/srup/pkg/logger"
)

const ageHeader = "age-encryption.org/v1"

// DefaultWorkFactor is the scrypt log2 work factor for encrypted key files.
const DefaultWorkFactor = 18

type loadOptions struct {
	passphrase PassphraseProvider
	keyID      string
}

// LoadOption configures LoadPrivateKey.
type LoadOption func(*loadOptions)

// WithPassphrase sets the provider used to unlock encrypted key files.
func WithPassphrase(p PassphraseProvider) LoadOption {
	return func(o *loadOptions) { o.passphrase = p }
}

// WithKeyID overrides the id handed to the passphrase provider. It defaults
// to the key path.
func WithKeyID(id string) LoadOption {
	return func(o *loadOptions) { o.keyID = id }
}

// LoadPrivateKey reads a private key file. age encrypted files (binary or
// armored) and encrypted OpenSSH keys are unlocked through the configured
// passphrase provider.
func LoadPrivateKey(ctx context.Context, path string, opts ...LoadOption) (PrivateKey, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	o := loadOptions{keyID: path}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: read %s: %w", path, err)
	}

	passphrase := func() (string, error) {
		if o.passphrase == nil {
			return "", ErrPassphraseRequired
		}
		return o.passphrase.GetPassphrase(ctx, o.keyID)
	}

	if isAgeEncrypted(data) {
		pass, err := passphrase()
		if err != nil {
			return nil, err
		}
		if data, err = decrypt(data, pass); err != nil {
			return nil, fmt.Errorf("keys: decrypt %s: %w", path, err)
		}
	}

	key, err := ParsePrivateKey(data, nil)
	if errors.Is(err, ErrPassphraseRequired) {
		pass, perr := passphrase()
		if perr != nil {
			return nil, perr
		}
		key, err = ParsePrivateKey(data, []byte(pass))
	}
	if err != nil {
		return nil, fmt.Errorf("keys: %s: %w", path, err)
	}

	logger.Debug("Loaded private key",
		"path", path,
		"algorithm", key.Algorithm(),
		"fingerprint", key.Public().Fingerprint(),
	)
	return key, nil
}

// LoadPublicKey reads a public key file.
func LoadPublicKey(path string) (PublicKey, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: read %s: %w", path, err)
	}
	key, err := ParsePublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("keys: %s: %w", path, err)
	}
	logger.Debug("Loaded public key", "path", path, "algorithm", key.Algorithm(), "fingerprint", key.Fingerprint())
	return key, nil
}

// WriteOptions controls how a private key is written.
type WriteOptions struct {
	// Passphrase enables age scrypt encryption when non-empty.
	Passphrase string
	// WorkFactor is the scrypt log2 work factor. Zero means DefaultWorkFactor.
	WorkFactor int
	// Armor writes the encrypted file as ASCII armor.
	Armor bool
}

// WritePrivateKey writes key to path with 0600 permissions.
func WritePrivateKey(path string, key PrivateKey, opts WriteOptions) error {
	if path == "" {
		return ErrEmptyPath
	}
	data, err := MarshalPrivateKeyPEM(key)
	if err != nil {
		return err
	}
	if opts.Passphrase != "" {
		if data, err = encrypt(data, opts); err != nil {
			return fmt.Errorf("keys: encrypt: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// WritePublicKey writes key to path as PEM.
func WritePublicKey(path string, key PublicKey) error {
	if path == "" {
		return ErrEmptyPath
	}
	data, err := MarshalPublicKeyPEM(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isAgeEncrypted(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return bytes.HasPrefix(trimmed, []byte(ageHeader)) || bytes.HasPrefix(trimmed, []byte(armor.Header))
}

func encrypt(plain []byte, opts WriteOptions) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(opts.Passphrase)
	if err != nil {
		return nil, err
	}
	if opts.WorkFactor > 0 {
		recipient.SetWorkFactor(opts.WorkFactor)
	} else {
		recipient.SetWorkFactor(DefaultWorkFactor)
	}

	var buf bytes.Buffer
	var out io.Writer = &buf
	var armorWriter io.WriteCloser
	if opts.Armor {
		armorWriter = armor.NewWriter(&buf)
		out = armorWriter
	}

	w, err := age.Encrypt(out, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if armorWriter != nil {
		if err := armorWriter.Close(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decrypt(data []byte, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	var in io.Reader = bytes.NewReader(data)
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(armor.Header)) {
		in = armor.NewReader(bytes.NewReader(bytes.TrimSpace(data)))
	}
	r, err := age.Decrypt(in, identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
