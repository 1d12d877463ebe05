// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrFormat is returned by Load when the preference file is malformed.
var ErrFormat = errors.New("config: malformed preference file")

// FileStore is a MemoryStore persisted as a JSON document.
//
// Get and Set only touch memory; Load and Save move the whole document
// to and from disk. Save replaces the file atomically.
type FileStore struct {
	MemoryStore
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns an empty store bound to path. Call Load to read it.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store is bound to.
func (s *FileStore) Path() string { return s.path }

type entry struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Load replaces the in-memory contents with the file's. A missing file
// leaves the store empty and is not an error.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: load %s: %w", s.path, err)
	}

	var doc map[string]entry
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFormat, s.path, err)
	}
	values := make(map[string]Value, len(doc))
	for k, e := range doc {
		v, err := e.decode()
		if err != nil {
			return fmt.Errorf("%w: %s: key %q: %w", ErrFormat, s.path, k, err)
		}
		values[k] = v
	}
	s.replace(values)
	return nil
}

// Save writes the store to its file.
func (s *FileStore) Save() error {
	snap := s.Snapshot()
	doc := make(map[string]entry, len(snap))
	for k, v := range snap {
		e, err := encodeEntry(v)
		if err != nil {
			return fmt.Errorf("config: save %s: key %q: %w", s.path, k, err)
		}
		doc[k] = e
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("config: save %s: %w", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: save %s: %w", s.path, err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("config: save %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("config: save %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: save %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("config: save %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) replace(values map[string]Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if values == nil {
		values = make(map[string]Value)
	}
	s.values = values
}

func encodeEntry(v Value) (entry, error) {
	var (
		typ string
		raw any
	)
	switch v := v.(type) {
	case Bool:
		typ, raw = "bool", bool(v)
	case Int:
		typ, raw = "int", int64(v)
	case Float:
		typ, raw = "float", float64(v)
	case Color:
		typ, raw = "color", [4]float32(v)
	default:
		return entry{}, fmt.Errorf("unsupported value %T", v)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return entry{}, err
	}
	return entry{Type: typ, Value: b}, nil
}

func (e entry) decode() (Value, error) {
	switch e.Type {
	case "bool":
		var b bool
		err := json.Unmarshal(e.Value, &b)
		return Bool(b), err
	case "int":
		var n int64
		err := json.Unmarshal(e.Value, &n)
		return Int(n), err
	case "float":
		var f float64
		err := json.Unmarshal(e.Value, &f)
		return Float(f), err
	case "color":
		var c [4]float32
		err := json.Unmarshal(e.Value, &c)
		return Color(c), err
	}
	return nil, fmt.Errorf("unknown type %q", e.Type)
}
