// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/srup/pkg/keys"
	"github.com/luxfi/srup/pkg/srup"
)

func assertUnset(t *testing.T, msg *srup.Message) {
	t.Helper()
	for _, f := range msg.Schema().Fields {
		assert.False(t, msg.IsSet(f.Name), f.Name)
	}
	assert.False(t, msg.Signed())
}

func TestSerializeWorkedExample(t *testing.T) {
	key := newKey(t, keys.Ed25519)
	b, err := signedExample(t, key).Serialize()
	require.NoError(t, err)

	canonical, err := exampleActivate().Canonical()
	require.NoError(t, err)
	require.Greater(t, len(b), len(canonical)+2)
	assert.Equal(t, canonical, b[:len(canonical)])

	sigLen := binary.BigEndian.Uint16(b[len(canonical):])
	assert.Equal(t, 64, int(sigLen))
	assert.Len(t, b, len(canonical)+2+64)

	fresh := srup.NewActivate()
	require.NoError(t, fresh.Deserialize(b))
	assert.True(t, fresh.Verify(key.Public()))

	seq, ok := fresh.SequenceID()
	require.True(t, ok)
	assert.Equal(t, uint64(exampleSequence), seq)
	sender, ok := fresh.SenderID()
	require.True(t, ok)
	assert.Equal(t, uint64(exampleSender), sender)
	token, ok := fresh.Token()
	require.True(t, ok)
	assert.Equal(t, exampleToken, token)
}

func TestSerializeRoundTripAllAlgorithms(t *testing.T) {
	for _, alg := range keys.Algorithms() {
		t.Run(string(alg), func(t *testing.T) {
			key := newKey(t, alg)
			orig := signedExample(t, key)
			b, err := orig.Serialize()
			require.NoError(t, err)

			fresh := srup.NewActivate()
			require.NoError(t, fresh.UnmarshalBinary(b))
			assert.True(t, fresh.Verify(key.Public()))

			again, err := fresh.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, b, again)
		})
	}
}

func TestSerializeUnsigned(t *testing.T) {
	_, err := exampleActivate().Serialize()
	assert.ErrorIs(t, err, srup.ErrUnsigned)
}

func TestSerializeAfterTamperFails(t *testing.T) {
	msg := signedExample(t, newKey(t, keys.Ed25519))
	msg.SetToken(string(make([]byte, srup.MaxFieldLength+1)))
	_, err := msg.Serialize()
	assert.ErrorIs(t, err, srup.ErrFieldTooLong)
}

func TestDeserializeTruncated(t *testing.T) {
	b, err := signedExample(t, newKey(t, keys.Ed25519)).Serialize()
	require.NoError(t, err)

	for n := 0; n < len(b); n++ {
		msg := srup.NewActivate()
		err := msg.Deserialize(b[:n])
		require.Error(t, err, "prefix of %d bytes", n)
		assertUnset(t, msg)
	}
}

func TestDeserializeCorrupted(t *testing.T) {
	key := newKey(t, keys.Ed25519)
	b, err := signedExample(t, key).Serialize()
	require.NoError(t, err)
	tokenLenAt := 1 + 8 + 8
	sigLenAt := tokenLenAt + 2 + len(exampleToken)

	mutate := func(f func([]byte) []byte) []byte {
		c := append([]byte(nil), b...)
		return f(c)
	}

	cases := map[string]struct {
		data []byte
		err  error
	}{
		"wrong type": {
			data: mutate(func(c []byte) []byte { c[0] = byte(srup.TypeGeneric); return c }),
			err:  srup.ErrTypeMismatch,
		},
		"token length past end": {
			data: mutate(func(c []byte) []byte { binary.BigEndian.PutUint16(c[tokenLenAt:], 0xFFFF); return c }),
			err:  srup.ErrTruncated,
		},
		"signature length past end": {
			data: mutate(func(c []byte) []byte { binary.BigEndian.PutUint16(c[sigLenAt:], 65); return c }),
			err:  srup.ErrTruncated,
		},
		"zero length signature": {
			data: mutate(func(c []byte) []byte {
				binary.BigEndian.PutUint16(c[sigLenAt:], 0)
				return c[:sigLenAt+2]
			}),
			err: srup.ErrMissingSignature,
		},
		"one byte of signature length": {
			data: mutate(func(c []byte) []byte { return c[:sigLenAt+1] }),
			err:  srup.ErrTruncated,
		},
		"no signature": {
			data: mutate(func(c []byte) []byte { return c[:sigLenAt] }),
			err:  srup.ErrMissingSignature,
		},
		"trailing data": {
			data: mutate(func(c []byte) []byte { return append(c, 0x00) }),
			err:  srup.ErrTrailingData,
		},
		"empty": {
			data: nil,
			err:  srup.ErrTruncated,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			msg := srup.NewActivate()
			err := msg.Deserialize(tc.data)
			assert.ErrorIs(t, err, tc.err)
			assertUnset(t, msg)
		})
	}

	t.Run("flipped signature bit parses but fails verify", func(t *testing.T) {
		c := mutate(func(c []byte) []byte { c[len(c)-1] ^= 0x01; return c })
		msg := srup.NewActivate()
		require.NoError(t, msg.Deserialize(c))
		assert.False(t, msg.Verify(key.Public()))
	})
}

func TestDeserializeFailureLeavesPopulatedMessage(t *testing.T) {
	key := newKey(t, keys.Ed25519)
	msg := signedExample(t, key)
	before, err := msg.Serialize()
	require.NoError(t, err)

	require.Error(t, msg.Deserialize(before[:10]))
	after, err := msg.Serialize()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, msg.Verify(key.Public()))
}

func TestDeserializeDoesNotAliasInput(t *testing.T) {
	key := newKey(t, keys.Ed25519)
	b, err := signedExample(t, key).Serialize()
	require.NoError(t, err)

	msg := srup.NewActivate()
	require.NoError(t, msg.Deserialize(b))
	for i := range b {
		b[i] = 0
	}
	token, _ := msg.Token()
	assert.Equal(t, exampleToken, token)
	assert.True(t, msg.Verify(key.Public()))
}

func TestDeserializeEmptyToken(t *testing.T) {
	key := newKey(t, keys.Ed25519)
	msg := exampleActivate()
	msg.SetToken("")
	require.NoError(t, msg.Sign(key))
	b, err := msg.Serialize()
	require.NoError(t, err)

	fresh := srup.NewActivate()
	require.NoError(t, fresh.Deserialize(b))
	token, ok := fresh.Token()
	assert.True(t, ok)
	assert.Empty(t, token)
	assert.True(t, fresh.Verify(key.Public()))
}

func TestDecode(t *testing.T) {
	key := newKey(t, keys.Ed25519)
	b, err := signedExample(t, key).Serialize()
	require.NoError(t, err)

	msg, err := srup.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, srup.TypeActivate, msg.Type())
	assert.True(t, msg.Verify(key.Public()))

	_, err = srup.Decode(nil)
	assert.ErrorIs(t, err, srup.ErrTruncated)

	_, err = srup.Decode([]byte{0xEE, 0x00})
	assert.ErrorIs(t, err, srup.ErrUnknownType)

	_, err = srup.Decode(b[:len(b)-1])
	assert.Error(t, err)
}

func FuzzDeserialize(f *testing.F) {
	msg := exampleActivate()
	if err := msg.Sign(fixedSigner{0xAA, 0xBB}); err != nil {
		f.Fatal(err)
	}
	seed, err := msg.Serialize()
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{0x03})

	f.Fuzz(func(t *testing.T, data []byte) {
		m := srup.NewActivate()
		if err := m.Deserialize(data); err != nil {
			assertUnset(t, m)
			return
		}
		out, err := m.Serialize()
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})
}
