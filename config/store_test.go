// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestKey(t *testing.T) {
	if got := Key("lichen", "speed"); got != "lichen.speed" {
		t.Errorf("Key() = %q, want %q", got, "lichen.speed")
	}
}

func TestMemoryStoreZeroValue(t *testing.T) {
	var s MemoryStore
	if _, ok := s.Get("a"); ok {
		t.Error("Get on empty store found a value")
	}
	s.Set("a", Int(3))
	if v, ok := s.Get("a"); !ok || v != Int(3) {
		t.Errorf("Get(a) = %v, %v, want 3, true", v, ok)
	}
	s.Delete("a")
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestTypedGetters(t *testing.T) {
	s := NewMemoryStore(map[string]Value{
		"b": Bool(true),
		"i": Int(7),
		"f": Float(2.5),
		"c": Color{1, 0, 0, 1},
	})

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"BoolValue(b)", BoolValue(s, "b"), true},
		{"BoolValue(i)", BoolValue(s, "i"), true},
		{"BoolValue(missing)", BoolValue(s, "x"), false},
		{"IntValue(i)", IntValue(s, "i"), 7},
		{"IntValue(f)", IntValue(s, "f"), 2},
		{"IntValue(b)", IntValue(s, "b"), 1},
		{"IntValue(missing)", IntValue(s, "x"), 0},
		{"FloatValue(f)", FloatValue(s, "f"), float32(2.5)},
		{"FloatValue(i)", FloatValue(s, "i"), float32(7)},
		{"FloatValue(missing)", FloatValue(s, "x"), float32(0)},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if c, ok := ColorValue(s, "c"); !ok || c != (Color{1, 0, 0, 1}) {
		t.Errorf("ColorValue(c) = %v, %v", c, ok)
	}
	if _, ok := ColorValue(s, "f"); ok {
		t.Error("ColorValue on a float succeeded")
	}
}

func TestMemoryStoreConcurrent(t *testing.T) {
	s := NewMemoryStore(nil)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set(Key("shader", "k"), Int(i))
		}()
		go func() {
			defer wg.Done()
			_ = IntValue(s, Key("shader", "k"))
		}()
	}
	wg.Wait()
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "tinker.json")

	s := NewFileStore(path)
	if err := s.Load(); err != nil {
		t.Fatalf("Load() on missing file = %v, want nil", err)
	}
	s.Set("a.glow", Bool(true))
	s.Set("a.mode", Int(2))
	s.Set("a.speed", Float(0.75))
	s.Set("a.tint", Color{0.1, 0.2, 0.3, 1})
	if err := s.Save(); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	r := NewFileStore(path)
	if err := r.Load(); err != nil {
		t.Fatalf("Load() = %v", err)
	}
	want := s.Snapshot()
	got := r.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("loaded %d keys, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, String(got[k]), String(v))
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d files, want 1 (temp file left behind?)", len(entries))
	}
}

func TestFileStoreSaveOrdersKeys(t *testing.T) {
	dir := t.TempDir()
	values := map[string]Value{"b.speed": Float(1), "a.glow": Bool(true), "c.mode": Int(3)}
	var files [2][]byte
	for i := range files {
		path := filepath.Join(dir, fmt.Sprintf("prefs%d.json", i))
		s := NewFileStore(path)
		for k, v := range values {
			s.Set(k, v)
		}
		if err := s.Save(); err != nil {
			t.Fatalf("Save() = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		files[i] = data
	}
	if !bytes.Equal(files[0], files[1]) {
		t.Errorf("Save() is not deterministic:\n%s\n%s", files[0], files[1])
	}
	a, b, c := bytes.Index(files[0], []byte(`"a.glow"`)), bytes.Index(files[0], []byte(`"b.speed"`)), bytes.Index(files[0], []byte(`"c.mode"`))
	if a < 0 || !(a < b && b < c) {
		t.Errorf("keys not in order: %s", files[0])
	}
}

func TestFileStoreMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"a.b": {"type": "matrix", "value": 1}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	err := NewFileStore(path).Load()
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Load() = %v, want ErrFormat", err)
	}
}
