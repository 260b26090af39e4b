// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup

import (
	"encoding/binary"

	"github.com/tchajed/marshal"
)

// Canonical returns the signable encoding of m:
//
//	msg_type    1 byte
//	field ...   in schema order
//
// uint64 fields are 8 bytes big-endian, uint8 fields 1 byte, byte fields a
// 2 byte big-endian length followed by the bytes. Every field must be set.
// The wire form starts with exactly these bytes.
func (m *Message) Canonical() ([]byte, error) {
	if m.schema == nil {
		return nil, ErrNoSchema
	}
	size := 1
	for i, f := range m.schema.Fields {
		v := m.values[i]
		if !v.set {
			return nil, &FieldError{Field: f.Name, Err: ErrFieldUnset}
		}
		switch f.Kind {
		case KindUint8:
			size++
		case KindUint64:
			size += 8
		case KindBytes:
			if len(v.raw) > MaxFieldLength {
				return nil, &FieldError{Field: f.Name, Err: ErrFieldTooLong}
			}
			size += lengthPrefixSize + len(v.raw)
		}
	}

	buf := make([]byte, 0, size)
	buf = append(buf, byte(m.schema.Type))
	for i, f := range m.schema.Fields {
		v := m.values[i]
		switch f.Kind {
		case KindUint8:
			buf = append(buf, byte(v.num))
		case KindUint64:
			buf = binary.BigEndian.AppendUint64(buf, v.num)
		case KindBytes:
			buf = binary.BigEndian.AppendUint16(buf, uint16(len(v.raw)))
			buf = marshal.WriteBytes(buf, v.raw)
		}
	}
	return buf, nil
}
