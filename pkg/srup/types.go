// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup

import "fmt"

// Version is the SRUP library protocol version.
const Version uint8 = 0x01

// MessageType identifies a message variant. It is the first byte of both the
// canonical encoding and the wire form.
type MessageType uint8

const (
	TypeGeneric  MessageType = 0x00
	TypeInitiate MessageType = 0x01
	TypeResponse MessageType = 0x02
	TypeActivate MessageType = 0x03
	TypeAction   MessageType = 0x04
)

func (t MessageType) String() string {
	if s, ok := Lookup(t); ok {
		return s.Name
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(t))
}

// Kind is the encoding class of a message field.
type Kind uint8

const (
	// KindUint8 is a single byte.
	KindUint8 Kind = iota + 1
	// KindUint64 is an 8 byte big-endian integer.
	KindUint64
	// KindBytes is a uint16 length prefixed byte string.
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindUint8:
		return "uint8"
	case KindUint64:
		return "uint64"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// max returns the largest value an integer kind can hold.
func (k Kind) max() uint64 {
	switch k {
	case KindUint8:
		return 0xFF
	default:
		return ^uint64(0)
	}
}

const (
	lengthPrefixSize = 2
	// MaxFieldLength bounds byte fields and signatures by their uint16 prefix.
	MaxFieldLength = 0xFFFF
)
