// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package srup

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Field names shared by every variant.
const (
	FieldSequenceID = "sequence_id"
	FieldSenderID   = "sender_id"
	FieldToken      = "token"
)

// FieldSpec declares one signable field.
type FieldSpec struct {
	Name string
	Kind Kind
}

// Schema is the field set of a message variant. Fields are listed in
// canonical order; the common sequence_id, sender_id and token fields always
// come first.
type Schema struct {
	Type   MessageType
	Name   string
	Fields []FieldSpec
}

var baseFields = []FieldSpec{
	{Name: FieldSequenceID, Kind: KindUint64},
	{Name: FieldSenderID, Kind: KindUint64},
	{Name: FieldToken, Kind: KindBytes},
}

// NewSchema builds a schema with the common fields followed by extra.
func NewSchema(t MessageType, name string, extra ...FieldSpec) (*Schema, error) {
	fields := append(slices.Clone(baseFields), extra...)
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("srup: schema %s: empty field name", name)
		}
		if f.Kind < KindUint8 || f.Kind > KindBytes {
			return nil, fmt.Errorf("srup: schema %s: field %q has invalid kind %s", name, f.Name, f.Kind)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("srup: schema %s: duplicate field %q", name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return &Schema{Type: t, Name: name, Fields: fields}, nil
}

func mustSchema(t MessageType, name string, extra ...FieldSpec) *Schema {
	s, err := NewSchema(t, name, extra...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) index(name string) int {
	if s == nil {
		return -1
	}
	return slices.IndexFunc(s.Fields, func(f FieldSpec) bool { return f.Name == name })
}

// complete reports whether s starts with the common fields, which the
// canonical encoding and the typed accessors rely on.
func (s *Schema) complete() bool {
	return s != nil && len(s.Fields) >= len(baseFields) && slices.Equal(s.Fields[:len(baseFields)], baseFields)
}

// Has reports whether the schema declares a field called name.
func (s *Schema) Has(name string) bool {
	return s.index(name) >= 0
}

var registry = struct {
	sync.RWMutex
	schemas map[MessageType]*Schema
}{schemas: make(map[MessageType]*Schema)}

// Register makes a variant known to Decode and New.
func Register(s *Schema) error {
	if !s.complete() {
		return fmt.Errorf("%w: cannot register", ErrNoSchema)
	}
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.schemas[s.Type]; ok {
		return fmt.Errorf("%w: 0x%02x", ErrDuplicateType, uint8(s.Type))
	}
	registry.schemas[s.Type] = s
	return nil
}

func mustRegister(s *Schema) *Schema {
	if err := Register(s); err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the schema registered for t.
func Lookup(t MessageType) (*Schema, bool) {
	registry.RLock()
	defer registry.RUnlock()
	s, ok := registry.schemas[t]
	return s, ok
}

// Types lists registered message types in ascending order.
func Types() []MessageType {
	registry.RLock()
	types := lo.Keys(registry.schemas)
	registry.RUnlock()
	slices.Sort(types)
	return types
}
