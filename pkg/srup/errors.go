// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup

import (
	"errors"
	"fmt"
)

var (
	ErrOverflow         = errors.New("srup: value out of range")
	ErrUnknownField     = errors.New("srup: unknown field")
	ErrKindMismatch     = errors.New("srup: field kind mismatch")
	ErrFieldUnset       = errors.New("srup: field not set")
	ErrFieldTooLong     = errors.New("srup: field too long")
	ErrNoKey            = errors.New("srup: no key")
	ErrSignFailed       = errors.New("srup: signing failed")
	ErrUnsigned         = errors.New("srup: message not signed")
	ErrTruncated        = errors.New("srup: truncated data")
	ErrTrailingData     = errors.New("srup: trailing data")
	ErrTypeMismatch     = errors.New("srup: message type mismatch")
	ErrUnknownType      = errors.New("srup: unknown message type")
	ErrMissingSignature = errors.New("srup: missing signature")
	ErrDuplicateType    = errors.New("srup: message type already registered")
	ErrNoSchema         = errors.New("srup: message has no schema")
)

// RangeError reports an integer assignment outside the field's range.
type RangeError struct {
	Field string
	Value string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("srup: value %s out of range for field %q", e.Value, e.Field)
}

func (e *RangeError) Unwrap() error { return ErrOverflow }

// FieldError ties a failure to the field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error { return e.Err }
