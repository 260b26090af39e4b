// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup

import (
	"encoding/binary"

	"github.com/tchajed/marshal"
)

// Serialize returns the wire form: the canonical encoding followed by a
// 2 byte big-endian signature length and the signature. Unsigned messages
// are rejected with ErrUnsigned.
func (m *Message) Serialize() ([]byte, error) {
	if len(m.signature) == 0 {
		return nil, ErrUnsigned
	}
	buf, err := m.Canonical()
	if err != nil {
		return nil, err
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(m.signature)))
	return marshal.WriteBytes(buf, m.signature), nil
}

// Deserialize replaces every field and the signature with the contents of
// b. The buffer must hold exactly one message of m's variant. On error m is
// left untouched. A successful Deserialize establishes structure only; call
// Verify before trusting the fields.
func (m *Message) Deserialize(b []byte) error {
	if m.schema == nil {
		return ErrNoSchema
	}
	values, sig, err := decode(m.schema, b)
	if err != nil {
		return err
	}
	m.values = values
	m.signature = sig
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Message) MarshalBinary() ([]byte, error) { return m.Serialize() }

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *Message) UnmarshalBinary(b []byte) error { return m.Deserialize(b) }

// Decode builds a message of whichever registered variant b carries.
func Decode(b []byte) (*Message, error) {
	if len(b) == 0 {
		return nil, ErrTruncated
	}
	m, err := New(MessageType(b[0]))
	if err != nil {
		return nil, err
	}
	if err := m.Deserialize(b); err != nil {
		return nil, err
	}
	return m, nil
}

func decode(s *Schema, b []byte) ([]value, []byte, error) {
	r := reader{buf: b}
	t, err := r.byte()
	if err != nil {
		return nil, nil, err
	}
	if MessageType(t) != s.Type {
		return nil, nil, ErrTypeMismatch
	}

	values := make([]value, len(s.Fields))
	for i, f := range s.Fields {
		switch f.Kind {
		case KindUint8:
			n, err := r.byte()
			if err != nil {
				return nil, nil, &FieldError{Field: f.Name, Err: err}
			}
			values[i] = uintValue(uint64(n))
		case KindUint64:
			n, err := r.uint64()
			if err != nil {
				return nil, nil, &FieldError{Field: f.Name, Err: err}
			}
			values[i] = uintValue(n)
		case KindBytes:
			raw, err := r.bytes()
			if err != nil {
				return nil, nil, &FieldError{Field: f.Name, Err: err}
			}
			values[i] = bytesValue(raw)
		}
	}

	if len(r.buf) == 0 {
		return nil, nil, ErrMissingSignature
	}
	sig, err := r.bytes()
	if err != nil {
		return nil, nil, err
	}
	if len(sig) == 0 {
		return nil, nil, ErrMissingSignature
	}
	if len(r.buf) != 0 {
		return nil, nil, ErrTrailingData
	}
	out := make([]byte, len(sig))
	copy(out, sig)
	return values, out, nil
}

// reader consumes an untrusted buffer. Every read checks the remaining
// length first, so short input yields ErrTruncated instead of a panic.
type reader struct {
	buf []byte
}

func (r *reader) take(n uint64) ([]byte, error) {
	if uint64(len(r.buf)) < n {
		return nil, ErrTruncated
	}
	var out []byte
	out, r.buf = marshal.ReadBytes(r.buf, n)
	return out, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *reader) bytes() ([]byte, error) {
	b, err := r.take(lengthPrefixSize)
	if err != nil {
		return nil, err
	}
	return r.take(uint64(binary.BigEndian.Uint16(b)))
}
