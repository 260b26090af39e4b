// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup

import (
	"fmt"

	"github.com/luxfi/srup/pkg/utils"
)

// Signer is a private key handle. It signs a SHA-256 digest.
// Implementations must not retain digest.
type Signer interface {
	SignDigest(digest []byte) ([]byte, error)
}

// Verifier is a public key handle. It reports whether sig is a valid
// signature over digest and must not panic on malformed input.
type Verifier interface {
	VerifyDigest(digest, sig []byte) bool
}

// Digest returns the SHA-256 digest of the canonical encoding.
func (m *Message) Digest() ([]byte, error) {
	msg, err := m.Canonical()
	if err != nil {
		return nil, err
	}
	return utils.GetMessageHash(msg), nil
}

// Sign signs the canonical encoding with key and stores the signature,
// replacing any earlier one. It fails if key is nil or any signable field is
// unset; on failure the previous signature is kept.
func (m *Message) Sign(key Signer) error {
	if key == nil {
		return ErrNoKey
	}
	digest, err := m.Digest()
	if err != nil {
		return err
	}
	sig, err := key.SignDigest(digest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignFailed, err)
	}
	if len(sig) == 0 || len(sig) > MaxFieldLength {
		return fmt.Errorf("%w: signature length %d", ErrSignFailed, len(sig))
	}
	m.signature = sig
	return nil
}

// Verify reports whether the stored signature is valid for the current
// field values under key. It never modifies m.
func (m *Message) Verify(key Verifier) bool {
	if key == nil || len(m.signature) == 0 {
		return false
	}
	digest, err := m.Digest()
	if err != nil {
		return false
	}
	return key.VerifyDigest(digest, m.signature)
}
