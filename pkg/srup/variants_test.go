// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/srup/pkg/keys"
	"github.com/luxfi/srup/pkg/srup"
)

func fillHeader(m *srup.Message) {
	m.SetToken(exampleToken)
	m.SetSequenceID(exampleSequence)
	m.SetSenderID(exampleSender)
}

func TestRegisteredTypes(t *testing.T) {
	assert.Equal(t, []srup.MessageType{
		srup.TypeGeneric, srup.TypeInitiate, srup.TypeResponse, srup.TypeActivate, srup.TypeAction,
	}, srup.Types())
	assert.Equal(t, "activate", srup.TypeActivate.String())
	assert.Equal(t, "unknown(0xee)", srup.MessageType(0xEE).String())
	assert.Equal(t, uint8(0x01), srup.Version)

	err := srup.Register(srup.ActivateSchema)
	assert.ErrorIs(t, err, srup.ErrDuplicateType)
	assert.Error(t, srup.Register(nil))
}

func TestNewSchemaValidation(t *testing.T) {
	_, err := srup.NewSchema(0x70, "dup", srup.FieldSpec{Name: srup.FieldToken, Kind: srup.KindBytes})
	assert.Error(t, err)

	_, err = srup.NewSchema(0x70, "empty", srup.FieldSpec{Kind: srup.KindUint8})
	assert.Error(t, err)

	_, err = srup.NewSchema(0x70, "kind", srup.FieldSpec{Name: "x", Kind: 9})
	assert.Error(t, err)

	s, err := srup.NewSchema(0x70, "custom", srup.FieldSpec{Name: "x", Kind: srup.KindUint8})
	require.NoError(t, err)
	assert.True(t, s.Has(srup.FieldSenderID))
	assert.True(t, s.Has("x"))
	assert.Len(t, s.Fields, 4)
}

func TestInitiateRoundTrip(t *testing.T) {
	key := newKey(t, keys.ECDSAP256)
	msg := srup.NewInitiate()
	fillHeader(msg.Message)

	assert.ErrorIs(t, msg.Sign(key), srup.ErrFieldUnset)

	msg.SetTarget(0xDEADBEEF)
	msg.SetURL("https://updates.example/fw.bin")
	msg.SetUpdateDigest("9f86d081884c7d659a2feaa0c55ad015")
	require.NoError(t, msg.Sign(key))

	b, err := msg.Serialize()
	require.NoError(t, err)
	assert.Equal(t, byte(srup.TypeInitiate), b[0])

	decoded, err := srup.Decode(b)
	require.NoError(t, err)
	assert.True(t, decoded.Verify(key.Public()))

	got := &srup.Initiate{Message: decoded}
	target, ok := got.Target()
	require.True(t, ok)
	assert.Equal(t, uint64(0xDEADBEEF), target)
	url, _ := got.URL()
	assert.Equal(t, "https://updates.example/fw.bin", url)
	digest, _ := got.UpdateDigest()
	assert.Equal(t, "9f86d081884c7d659a2feaa0c55ad015", digest)

	got.SetURL("https://evil.example/fw.bin")
	assert.False(t, got.Verify(key.Public()))

	// An Initiate payload is not an Activate.
	assert.ErrorIs(t, srup.NewActivate().Deserialize(b), srup.ErrTypeMismatch)
}

func TestResponseStatus(t *testing.T) {
	key := newKey(t, keys.Ed25519)
	msg := srup.NewResponse()
	fillHeader(msg.Message)
	msg.SetStatus(srup.StatusActivateSuccess)
	require.NoError(t, msg.Sign(key))

	b, err := msg.Serialize()
	require.NoError(t, err)

	fresh := srup.NewResponse()
	require.NoError(t, fresh.Deserialize(b))
	status, ok := fresh.Status()
	require.True(t, ok)
	assert.Equal(t, srup.StatusActivateSuccess, status)
	assert.True(t, fresh.Verify(key.Public()))

	// uint8 fields are range checked.
	assert.ErrorIs(t, fresh.Set(srup.FieldStatus, 0x100), srup.ErrOverflow)
	assert.ErrorIs(t, fresh.SetUint(srup.FieldStatus, 0x100), srup.ErrOverflow)
	require.NoError(t, fresh.Set(srup.FieldStatus, 0xFF))
}

func TestActionID(t *testing.T) {
	key := newKey(t, keys.Secp256k1)
	msg := srup.NewAction()
	fillHeader(msg.Message)
	_, ok := msg.ActionID()
	assert.False(t, ok)

	msg.SetActionID(0x07)
	require.NoError(t, msg.Sign(key))
	b, err := msg.Serialize()
	require.NoError(t, err)

	decoded, err := srup.Decode(b)
	require.NoError(t, err)
	id, ok := (&srup.Action{Message: decoded}).ActionID()
	require.True(t, ok)
	assert.Equal(t, uint8(0x07), id)
	assert.True(t, decoded.Verify(key.Public()))
}

func TestStatusNames(t *testing.T) {
	assert.Equal(t, "group_delete_invalid", srup.StatusGroupDeleteInvalid.String())
	assert.Equal(t, "observed_join_fail", srup.StatusObservedJoinFail.String())
	assert.Equal(t, "status(0xee)", srup.Status(0xEE).String())

	assert.True(t, srup.StatusDeregisterSuccess.Succeeded())
	assert.True(t, srup.StatusObservedJoinValid.Succeeded())
	assert.False(t, srup.StatusJoinRefused.Succeeded())
	assert.False(t, srup.StatusDataTypeUnknown.Succeeded())
	assert.False(t, srup.Status(0xEE).Succeeded())
}

func TestTypedSettersRoundTrip(t *testing.T) {
	key := newKey(t, keys.Ed25519)

	resp := srup.NewResponse()
	resp.SetSequenceID(3)
	resp.SetSenderID(4)
	resp.SetToken("t")
	resp.SetStatus(srup.StatusGroupAddFailLimit)
	require.NoError(t, resp.Sign(key))
	wire, err := resp.Serialize()
	require.NoError(t, err)

	got, err := srup.Decode(wire)
	require.NoError(t, err)
	assert.True(t, got.Verify(key.Public()))
	status, ok := (&srup.Response{Message: got}).Status()
	require.True(t, ok)
	assert.Equal(t, srup.StatusGroupAddFailLimit, status)

	act := srup.NewAction()
	act.SetActionID(0xFF)
	id, ok := act.ActionID()
	require.True(t, ok)
	assert.Equal(t, uint8(0xFF), id)
}
