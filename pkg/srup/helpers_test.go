// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/srup/pkg/keys"
	"github.com/luxfi/srup/pkg/srup"
)

const (
	exampleToken    = "TOKEN12345"
	exampleSequence = 0x1234567890ABCDEF
	exampleSender   = 0x5F5F5F5F5F5F5F5F
)

func exampleActivate() *srup.Message {
	msg := srup.NewActivate()
	msg.SetToken(exampleToken)
	msg.SetSequenceID(exampleSequence)
	msg.SetSenderID(exampleSender)
	return msg
}

func newKey(t *testing.T, alg keys.Algorithm) keys.PrivateKey {
	t.Helper()
	k, err := keys.Generate(alg)
	require.NoError(t, err)
	return k
}

func signedExample(t *testing.T, key keys.PrivateKey) *srup.Message {
	t.Helper()
	msg := exampleActivate()
	require.NoError(t, msg.Sign(key))
	return msg
}

type failingSigner struct{}

func (failingSigner) SignDigest([]byte) ([]byte, error) { return nil, errors.New("hsm offline") }

type emptySigner struct{}

func (emptySigner) SignDigest([]byte) ([]byte, error) { return nil, nil }

// fixedSigner returns the same bytes for any digest.
type fixedSigner []byte

func (s fixedSigner) SignDigest([]byte) ([]byte, error) { return s, nil }

// panickyVerifier fails the test if it is ever consulted.
type panickyVerifier struct{ t *testing.T }

func (v panickyVerifier) VerifyDigest([]byte, []byte) bool {
	v.t.Fatal("verifier should not be called")
	return false
}
