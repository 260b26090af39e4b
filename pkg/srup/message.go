// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package srup implements the Secure Remote Update Protocol message core:
// typed fields with explicit unset state, a canonical signable encoding,
// digest signing and verification, and a strict wire codec.
//
// A sender builds a message, sets its fields, signs it and serializes it.
// A receiver deserializes into a fresh message of the same variant (or uses
// Decode), verifies it, and only then trusts the fields.
//
// A Message is not safe for concurrent mutation; independent messages may be
// signed and verified in parallel.
//
// The zero Message, and one built from a nil or incomplete schema, has no
// fields. Its getters report unset and Verify is false. Sign and Deserialize
// fail with ErrNoSchema.
package srup

import (
	"fmt"
	"strings"
)

// Message is one SRUP message of the variant described by its schema.
type Message struct {
	schema    *Schema
	values    []value
	signature []byte
}

// New returns an empty message of a registered variant.
func New(t MessageType) (*Message, error) {
	s, ok := Lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownType, uint8(t))
	}
	return NewWithSchema(s), nil
}

// NewWithSchema returns an empty message for s. s must not be modified
// afterwards. A schema that does not start with the common fields yields a
// message without a schema.
func NewWithSchema(s *Schema) *Message {
	if !s.complete() {
		return &Message{}
	}
	return &Message{
		schema: s,
		values: make([]value, len(s.Fields)),
	}
}

// Type is the variant identifier. It never changes. A message without a
// schema reports TypeGeneric.
func (m *Message) Type() MessageType {
	if m.schema == nil {
		return TypeGeneric
	}
	return m.schema.Type
}

// Schema returns the variant schema.
func (m *Message) Schema() *Schema { return m.schema }

func (m *Message) field(name string, want ...Kind) (int, error) {
	if m.schema == nil {
		return -1, ErrNoSchema
	}
	i := m.schema.index(name)
	if i < 0 {
		return -1, &FieldError{Field: name, Err: ErrUnknownField}
	}
	for _, k := range want {
		if m.schema.Fields[i].Kind == k {
			return i, nil
		}
	}
	return -1, &FieldError{Field: name, Err: ErrKindMismatch}
}

// IsSet reports whether the named field has been assigned.
func (m *Message) IsSet(name string) bool {
	i := m.schema.index(name)
	return i >= 0 && m.values[i].set
}

// Uint returns an integer field. ok is false when the field is unset or not
// an integer field.
func (m *Message) Uint(name string) (v uint64, ok bool) {
	i, err := m.field(name, KindUint8, KindUint64)
	if err != nil || !m.values[i].set {
		return 0, false
	}
	return m.values[i].num, true
}

// Bytes returns a copy of a byte field. ok is false when the field is unset.
func (m *Message) Bytes(name string) (b []byte, ok bool) {
	i, err := m.field(name, KindBytes)
	if err != nil || !m.values[i].set {
		return nil, false
	}
	out := make([]byte, len(m.values[i].raw))
	copy(out, m.values[i].raw)
	return out, true
}

// Set assigns a field from a loosely typed value. Integer fields accept any
// Go integer kind or *big.Int and reject values outside the field's range
// with a *RangeError; byte fields accept []byte or string. On error the
// field keeps its previous value.
func (m *Message) Set(name string, v any) error {
	i, err := m.field(name, KindUint8, KindUint64, KindBytes)
	if err != nil {
		return err
	}
	spec := m.schema.Fields[i]
	if spec.Kind == KindBytes {
		b, err := toBytes(name, v)
		if err != nil {
			return err
		}
		m.values[i] = bytesValue(b)
		return nil
	}
	n, err := toUint(name, v, spec.Kind.max())
	if err != nil {
		return err
	}
	m.values[i] = uintValue(n)
	return nil
}

// SetUint assigns an integer field, range checked against the field width.
func (m *Message) SetUint(name string, v uint64) error {
	i, err := m.field(name, KindUint8, KindUint64)
	if err != nil {
		return err
	}
	if v > m.schema.Fields[i].Kind.max() {
		return &RangeError{Field: name, Value: fmt.Sprint(v)}
	}
	m.values[i] = uintValue(v)
	return nil
}

// SetBytes assigns a byte field. Empty input still marks the field set.
func (m *Message) SetBytes(name string, b []byte) error {
	i, err := m.field(name, KindBytes)
	if err != nil {
		return err
	}
	m.values[i] = bytesValue(b)
	return nil
}

// SequenceID is the anti-replay nonce.
func (m *Message) SequenceID() (uint64, bool) { return m.Uint(FieldSequenceID) }

// put assigns a slot whose kind and range the caller has already
// guaranteed. It does nothing on a message without a schema.
func (m *Message) put(name string, v value) {
	if i := m.schema.index(name); i >= 0 {
		m.values[i] = v
	}
}

// SetSequenceID assigns the anti-replay nonce. Every uint64 is valid.
func (m *Message) SetSequenceID(v uint64) { m.put(FieldSequenceID, uintValue(v)) }

// SenderID identifies the originating device or party.
func (m *Message) SenderID() (uint64, bool) { return m.Uint(FieldSenderID) }

func (m *Message) SetSenderID(v uint64) { m.put(FieldSenderID, uintValue(v)) }

// Token returns the token as a string.
func (m *Message) Token() (string, bool) {
	b, ok := m.Bytes(FieldToken)
	return string(b), ok
}

func (m *Message) SetToken(token string) { m.put(FieldToken, bytesValue([]byte(token))) }

// Signature returns a copy of the stored signature, if any.
func (m *Message) Signature() ([]byte, bool) {
	if len(m.signature) == 0 {
		return nil, false
	}
	out := make([]byte, len(m.signature))
	copy(out, m.signature)
	return out, true
}

// Signed reports whether a signature is present. It says nothing about
// whether the signature is valid.
func (m *Message) Signed() bool { return len(m.signature) > 0 }

// String renders the message for logs. Byte fields are shown by length only.
func (m *Message) String() string {
	if m.schema == nil {
		return "<no schema>"
	}
	var sb strings.Builder
	sb.WriteString(m.schema.Name)
	for i, f := range m.schema.Fields {
		sb.WriteByte(' ')
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		v := m.values[i]
		switch {
		case !v.set:
			sb.WriteString("<unset>")
		case f.Kind == KindBytes:
			fmt.Fprintf(&sb, "[%d bytes]", len(v.raw))
		default:
			fmt.Fprintf(&sb, "%#x", v.num)
		}
	}
	fmt.Fprintf(&sb, " signed=%t", m.Signed())
	return sb.String()
}
