// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package options

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/tinker/config"
	"github.com/gogpu/tinker/descriptor"
)

const shader = "lichen"

// newOptions builds an options node with defaults as an initializer would
// leave them.
//
//	glow   bool           = true
//	tint   float4         = (0.2, 0.4, 0.6, 1)
//	speed  float3         = (0, 0.5, 2)
//	count  int3           = (1, 5, 10)
//	mode   {a, b, c int}  = (0, 0, 1)
//	matrix unknown
func newOptions(t *testing.T) *descriptor.Descriptor {
	t.Helper()
	layout := descriptor.Field{Name: "options", Type: descriptor.DataTypeStruct, Members: []descriptor.Field{
		{Name: "glow", Type: descriptor.DataTypeBool, Offset: 0},
		{Name: "tint", Type: descriptor.DataTypeFloat4, Offset: 16},
		{Name: "speed", Type: descriptor.DataTypeFloat3, Offset: 32},
		{Name: "count", Type: descriptor.DataTypeInt3, Offset: 48},
		{Name: "mode", Type: descriptor.DataTypeStruct, Offset: 64, Members: []descriptor.Field{
			{Name: "a", Type: descriptor.DataTypeInt, Offset: 64},
			{Name: "b", Type: descriptor.DataTypeInt, Offset: 68},
			{Name: "c", Type: descriptor.DataTypeInt, Offset: 72},
		}},
		{Name: "matrix", Type: descriptor.DataTypeUnknown, Offset: 80, Size: 16},
	}}
	d, err := descriptor.New(make([]byte, 96), layout)
	if err != nil {
		t.Fatalf("descriptor.New() error = %v", err)
	}
	d.Get("glow").SetValue(descriptor.Bool(true))
	d.Get("tint").SetValue(descriptor.Float4{0.2, 0.4, 0.6, 1})
	d.Get("speed").SetValue(descriptor.Float3{0, 0.5, 2})
	d.Get("count").SetValue(descriptor.Int3{1, 5, 10})
	d.Get("mode").Get("c").SetValue(descriptor.Int(1))
	return d
}

func TestBindWritesDefaultsWhenAbsent(t *testing.T) {
	store := config.NewMemoryStore(nil)
	opts := newOptions(t)
	NewBinder(store, nil).Bind(shader, opts)

	want := map[string]config.Value{
		"lichen.glow":  config.Bool(true),
		"lichen.tint":  config.Float(float32(0.4)),
		"lichen.speed": config.Float(0.5),
		"lichen.count": config.Int(5),
		"lichen.mode":  config.Int(0),
	}
	for k, w := range want {
		got, ok := store.Get(k)
		if !ok {
			t.Errorf("store[%s] missing", k)
			continue
		}
		if got != w {
			t.Errorf("store[%s] = %v, want %v", k, config.String(got), config.String(w))
		}
	}
	if _, ok := store.Get("lichen.matrix"); ok {
		t.Error("unsupported field was persisted")
	}

	// Defaults survive the write-back unchanged.
	if v, _ := descriptor.ValueOf[descriptor.Float3](opts.Get("speed")); v != (descriptor.Float3{0, 0.5, 2}) {
		t.Errorf("speed = %v, want (0, 0.5, 2)", v)
	}
	if v, _ := descriptor.ValueOf[descriptor.Float4](opts.Get("tint")); v != (descriptor.Float4{0.2, 0.4, 0.6, 1}) {
		t.Errorf("tint = %v, want reflected default", v)
	}

	// An unset segmented option selects its first member regardless of
	// the kernel's initial one-hot.
	for i, c := range opts.Get("mode").Children() {
		want := descriptor.Int(0)
		if i == 0 {
			want = 1
		}
		if v, _ := descriptor.ValueOf[descriptor.Int](c); v != want {
			t.Errorf("mode[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestBindStoreWins(t *testing.T) {
	store := config.NewMemoryStore(map[string]config.Value{
		"lichen.glow":  config.Bool(false),
		"lichen.tint":  config.Color{1, 0, 0, 1},
		"lichen.speed": config.Float(1.5),
		"lichen.count": config.Int(8),
		"lichen.mode":  config.Int(0),
	})
	opts := newOptions(t)
	NewBinder(store, nil).Bind(shader, opts)

	if v, _ := descriptor.ValueOf[descriptor.Bool](opts.Get("glow")); v {
		t.Error("glow = true, want persisted false")
	}
	if v, _ := descriptor.ValueOf[descriptor.Float4](opts.Get("tint")); v != (descriptor.Float4{1, 0, 0, 1}) {
		t.Errorf("tint = %v, want persisted color", v)
	}
	if v, _ := descriptor.ValueOf[descriptor.Float3](opts.Get("speed")); v != (descriptor.Float3{0, 1.5, 2}) {
		t.Errorf("speed = %v, want (0, 1.5, 2)", v)
	}
	if v, _ := descriptor.ValueOf[descriptor.Int3](opts.Get("count")); v != (descriptor.Int3{1, 8, 10}) {
		t.Errorf("count = %v, want (1, 8, 10)", v)
	}
	if got, _ := store.Get("lichen.count"); got != config.Int(8) {
		t.Errorf("persisted count overwritten: %v", config.String(got))
	}
}

func TestBindSegmentedOneHot(t *testing.T) {
	for index := range 3 {
		store := config.NewMemoryStore(map[string]config.Value{"lichen.mode": config.Int(index)})
		opts := newOptions(t)
		NewBinder(store, nil).Bind(shader, opts)

		ones := 0
		for i, c := range opts.Get("mode").Children() {
			v, _ := descriptor.ValueOf[descriptor.Int](c)
			want := descriptor.Int(0)
			if i == index {
				want = 1
			}
			if v != want {
				t.Errorf("index %d: mode[%d] = %d, want %d", index, i, v, want)
			}
			if v == 1 {
				ones++
			}
		}
		if ones != 1 {
			t.Errorf("index %d: %d members set, want exactly 1", index, ones)
		}
	}
}

func TestBindSegmentedOutOfRange(t *testing.T) {
	store := config.NewMemoryStore(map[string]config.Value{"lichen.mode": config.Int(7)})
	opts := newOptions(t)
	NewBinder(store, nil).Bind(shader, opts)
	for i, c := range opts.Get("mode").Children() {
		if v, _ := descriptor.ValueOf[descriptor.Int](c); v != 0 {
			t.Errorf("mode[%d] = %d, want 0", i, v)
		}
	}
}

func TestBindIdempotent(t *testing.T) {
	store := config.NewMemoryStore(map[string]config.Value{"lichen.speed": config.Float(1.25)})
	opts := newOptions(t)
	b := NewBinder(store, nil)

	b.Bind(shader, opts)
	var first []descriptor.Value
	for _, c := range opts.Children() {
		first = append(first, c.Value())
	}
	snap := store.Snapshot()

	b.Bind(shader, opts)
	for i, c := range opts.Children() {
		if c.Value() != first[i] {
			t.Errorf("%s = %v after second Bind, want %v", c.Name(), c.Value(), first[i])
		}
	}
	for k, v := range store.Snapshot() {
		if snap[k] != v {
			t.Errorf("store[%s] changed: %v -> %v", k, config.String(snap[k]), config.String(v))
		}
	}
}

func TestBindNilOptions(t *testing.T) {
	store := config.NewMemoryStore(nil)
	NewBinder(store, nil).Bind(shader, nil)
	if store.Len() != 0 {
		t.Errorf("store.Len() = %d, want 0", store.Len())
	}
}

func TestBindLogsUnsupported(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	NewBinder(config.NewMemoryStore(nil), log).Bind(shader, newOptions(t))

	out := buf.String()
	if !strings.Contains(out, "unsupported option type") || !strings.Contains(out, "field=matrix") {
		t.Errorf("log output = %q, want unsupported warning for matrix", out)
	}
}

func TestDescribe(t *testing.T) {
	store := config.NewMemoryStore(nil)
	opts := newOptions(t)
	got := NewBinder(store, nil).Describe(shader, opts)

	want := []struct {
		key  string
		kind Kind
	}{
		{"glow", KindBoolean},
		{"tint", KindColorPicker},
		{"speed", KindFloatSlider},
		{"count", KindIntSlider},
		{"mode", KindSegmented},
	}
	if len(got) != len(want) {
		t.Fatalf("Describe() returned %d options, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Key != w.key || got[i].Kind != w.kind {
			t.Errorf("option[%d] = %s/%v, want %s/%v", i, got[i].Key, got[i].Kind, w.key, w.kind)
		}
		if got[i].PersistenceKey != "lichen."+w.key {
			t.Errorf("option[%d].PersistenceKey = %q", i, got[i].PersistenceKey)
		}
	}
	if c := got[4].Choices; len(c) != 3 || c[0] != "a" || c[2] != "c" {
		t.Errorf("mode choices = %v, want [a b c]", c)
	}
	if got[2].Min != 0 || got[2].Max != 2 {
		t.Errorf("speed range = [%v, %v], want [0, 2]", got[2].Min, got[2].Max)
	}
	if store.Len() != 0 {
		t.Error("Describe() wrote to the store")
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"glow", "Glow"},
		{"glowRadius", "Glow Radius"},
		{"glow_radius", "Glow Radius"},
		{"color2", "Color 2"},
		{"RGB", "Rgb"},
	}
	for _, tt := range tests {
		if got := Label(tt.in); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
