// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config holds persisted shader preferences.
//
// A [Store] is a flat string-keyed map. Keys have the form
// "<shaderName>.<fieldName>" (see [Key]); values are one of the closed set
// [Bool], [Int], [Float] and [Color]. The store is assumed to be always
// available: Get and Set do not fail.
package config

import (
	"fmt"
	"maps"
	"sync"
)

// Key returns the persistence key of a shader field.
func Key(shader, field string) string {
	return shader + "." + field
}

// Value is a persisted preference value.
type Value interface {
	isValue()
}

// Persisted value kinds.
type (
	Bool  bool
	Int   int64
	Float float64
	Color [4]float32
)

func (Bool) isValue()  {}
func (Int) isValue()   {}
func (Float) isValue() {}
func (Color) isValue() {}

// Store is a string-keyed preference store.
type Store interface {
	// Get returns the value stored under key.
	Get(key string) (Value, bool)

	// Set stores v under key, replacing any previous value.
	Set(key string, v Value)
}

// MemoryStore is a Store backed by a map. It is safe for concurrent use.
// The zero value is an empty store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]Value
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store holding a copy of initial.
func NewMemoryStore(initial map[string]Value) *MemoryStore {
	s := &MemoryStore{values: make(map[string]Value, len(initial))}
	maps.Copy(s.values, initial)
	return s
}

func (s *MemoryStore) Get(key string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key string, v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]Value)
	}
	s.values[key] = v
}

// Delete removes key from the store.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Snapshot returns a copy of every stored value.
func (s *MemoryStore) Snapshot() map[string]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// BoolValue returns the value under key as a bool. Missing keys read as
// false; numeric values are true when non-zero.
func BoolValue(s Store, key string) bool {
	v, _ := s.Get(key)
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Int:
		return v != 0
	case Float:
		return v != 0
	}
	return false
}

// IntValue returns the value under key as an integer. Missing keys read as
// 0; floats are truncated and bools read as 0 or 1.
func IntValue(s Store, key string) int {
	v, _ := s.Get(key)
	switch v := v.(type) {
	case Int:
		return int(v)
	case Float:
		return int(v)
	case Bool:
		if v {
			return 1
		}
	}
	return 0
}

// FloatValue returns the value under key as a float. Missing keys read as 0.
func FloatValue(s Store, key string) float32 {
	v, _ := s.Get(key)
	switch v := v.(type) {
	case Float:
		return float32(v)
	case Int:
		return float32(v)
	case Bool:
		if v {
			return 1
		}
	}
	return 0
}

// ColorValue returns the color under key. ok is false unless a Color is
// stored there.
func ColorValue(s Store, key string) (c Color, ok bool) {
	v, _ := s.Get(key)
	c, ok = v.(Color)
	return c, ok
}

// String formats v for diagnostics.
func String(v Value) string {
	switch v := v.(type) {
	case Bool:
		return fmt.Sprintf("%t", bool(v))
	case Int:
		return fmt.Sprintf("%d", int64(v))
	case Float:
		return fmt.Sprintf("%g", float64(v))
	case Color:
		return fmt.Sprintf("rgba(%g, %g, %g, %g)", v[0], v[1], v[2], v[3])
	}
	return "<nil>"
}
