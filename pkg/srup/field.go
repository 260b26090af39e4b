// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup

import (
	"fmt"
	"math/big"
)

// value is one field slot. set distinguishes "never assigned" from zero.
type value struct {
	set bool
	num uint64
	raw []byte
}

func uintValue(n uint64) value { return value{set: true, num: n} }

func bytesValue(b []byte) value {
	// A set empty token must stay distinguishable from unset, so keep a
	// non-nil slice.
	raw := make([]byte, len(b))
	copy(raw, b)
	return value{set: true, raw: raw}
}

// toUint converts an integer of any Go kind (or *big.Int) to uint64 and
// checks it against limit.
func toUint(field string, v any, limit uint64) (uint64, error) {
	var (
		n        uint64
		negative bool
	)
	switch x := v.(type) {
	case uint:
		n = uint64(x)
	case uint8:
		n = uint64(x)
	case uint16:
		n = uint64(x)
	case uint32:
		n = uint64(x)
	case uint64:
		n = x
	case int:
		n, negative = uint64(x), x < 0
	case int8:
		n, negative = uint64(x), x < 0
	case int16:
		n, negative = uint64(x), x < 0
	case int32:
		n, negative = uint64(x), x < 0
	case int64:
		n, negative = uint64(x), x < 0
	case *big.Int:
		if x == nil {
			return 0, &FieldError{Field: field, Err: ErrKindMismatch}
		}
		if x.Sign() < 0 || !x.IsUint64() {
			return 0, &RangeError{Field: field, Value: x.String()}
		}
		n = x.Uint64()
	default:
		return 0, &FieldError{Field: field, Err: fmt.Errorf("%w: %T", ErrKindMismatch, v)}
	}
	if negative {
		return 0, &RangeError{Field: field, Value: fmt.Sprint(v)}
	}
	if n > limit {
		return 0, &RangeError{Field: field, Value: fmt.Sprint(v)}
	}
	return n, nil
}

func toBytes(field string, v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, &FieldError{Field: field, Err: fmt.Errorf("%w: %T", ErrKindMismatch, v)}
	}
}
