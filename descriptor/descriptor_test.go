// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package descriptor

import (
	"errors"
	"testing"
)

// testLayout mirrors a typical initializer argument:
//
//	struct { clearColor float4; options { glow bool; speed float3; mode { a, b, c int } }; textures [2]name }
func testLayout() (Field, int) {
	name := Field{Type: DataTypeStruct, Offset: 0, Size: 16, Members: []Field{
		{Name: "name", Type: DataTypeBytes, Offset: 0, Size: 16},
	}}
	root := Field{Name: "kbuff", Type: DataTypeStruct, Members: []Field{
		{Name: "clearColor", Type: DataTypeFloat4, Offset: 0},
		{Name: "options", Type: DataTypeStruct, Offset: 16, Members: []Field{
			{Name: "glow", Type: DataTypeBool, Offset: 16},
			{Name: "speed", Type: DataTypeFloat3, Offset: 32},
			{Name: "mode", Type: DataTypeStruct, Offset: 48, Members: []Field{
				{Name: "a", Type: DataTypeInt, Offset: 48},
				{Name: "b", Type: DataTypeInt, Offset: 52},
				{Name: "c", Type: DataTypeInt, Offset: 56},
			}},
		}},
		ArrayOf("textures", 64, 16, 2, name),
	}}
	return root, 96
}

func newTestDescriptor(t *testing.T) (*Descriptor, []byte) {
	t.Helper()
	layout, size := testLayout()
	buf := make([]byte, size)
	d, err := New(buf, layout)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d, buf
}

func TestGetAbsentIsNil(t *testing.T) {
	d, _ := newTestDescriptor(t)
	if got := d.Get("pipeline"); got != nil {
		t.Errorf("Get(pipeline) = %v, want nil", got)
	}
	// Chained lookups through a missing node stay nil.
	if got := d.Get("pipeline").Get("stage"); got != nil {
		t.Errorf("chained Get = %v, want nil", got)
	}
	if v := d.Get("missing").Value(); v != nil {
		t.Errorf("Value() on nil = %v, want nil", v)
	}
}

func TestSetValueWritesThrough(t *testing.T) {
	d, buf := newTestDescriptor(t)
	cc := d.Get("clearColor")
	if !cc.SetValue(Float4{1, 0.5, 0.25, 1}) {
		t.Fatal("SetValue(Float4) = false, want true")
	}
	if got := getF32(buf, 1); got != 0.5 {
		t.Errorf("buffer word 1 = %v, want 0.5", got)
	}
	v, ok := ValueOf[Float4](cc)
	if !ok || v != (Float4{1, 0.5, 0.25, 1}) {
		t.Errorf("ValueOf[Float4] = %v, %v", v, ok)
	}
}

func TestTypeMismatch(t *testing.T) {
	d, buf := newTestDescriptor(t)
	speed := d.Get("options").Get("speed")
	if speed.SetValue(Float4{1, 2, 3, 4}) {
		t.Error("SetValue(Float4) on float3 leaf = true, want false")
	}
	for i := 8; i < 12; i++ {
		if buf[32+i-8] != 0 {
			t.Fatalf("buffer modified by rejected SetValue")
		}
	}
	if _, ok := ValueOf[Int3](speed); ok {
		t.Error("ValueOf[Int3] on float3 leaf succeeded")
	}
	if _, ok := ValueOf[Float3](speed); !ok {
		t.Error("ValueOf[Float3] on float3 leaf failed")
	}
}

func TestSetFlag(t *testing.T) {
	d, _ := newTestDescriptor(t)
	mode := d.Get("options").Get("mode")
	for i, c := range mode.Children() {
		if !c.SetFlag(i == 1) {
			t.Fatalf("SetFlag on %s = false", c.Name())
		}
	}
	want := []Int{0, 1, 0}
	for i, c := range mode.Children() {
		if v, _ := ValueOf[Int](c); v != want[i] {
			t.Errorf("mode[%d] = %v, want %v", i, v, want[i])
		}
	}
	if d.Get("clearColor").SetFlag(true) {
		t.Error("SetFlag on float4 leaf = true, want false")
	}
	glow := d.Get("options").Get("glow")
	glow.SetFlag(true)
	if v, _ := ValueOf[Bool](glow); !bool(v) {
		t.Error("glow = false after SetFlag(true)")
	}
}

func TestStructArrayAndString(t *testing.T) {
	d, buf := newTestDescriptor(t)
	copy(buf[64:], "lichen")
	copy(buf[80:], "abstract1.png")

	elems, ok := d.StructArray("textures")
	if !ok {
		t.Fatal("StructArray(textures) not found")
	}
	if len(elems) != 2 {
		t.Fatalf("len = %d, want 2", len(elems))
	}
	for i, want := range []string{"lichen", "abstract1.png"} {
		got, ok := elems[i].String()
		if !ok || got != want {
			t.Errorf("textures[%d] = %q, %v, want %q", i, got, ok, want)
		}
	}

	if _, ok := d.StructArray("cubes"); ok {
		t.Error("StructArray(cubes) found on absent field")
	}
	if _, ok := d.StructArray("clearColor"); ok {
		t.Error("StructArray on a leaf succeeded")
	}
}

func TestStringEmpty(t *testing.T) {
	d, _ := newTestDescriptor(t)
	elems, _ := d.StructArray("textures")
	if s, ok := elems[0].String(); ok {
		t.Errorf("String() on zeroed name = %q, true; want false", s)
	}
}

func TestNewRejectsOutOfBounds(t *testing.T) {
	layout := Field{Name: "kbuff", Type: DataTypeStruct, Members: []Field{
		{Name: "v", Type: DataTypeFloat4, Offset: 8},
	}}
	_, err := New(make([]byte, 16), layout)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("New() error = %v, want ErrOutOfBounds", err)
	}
}

func TestNewRejectsShortLeaf(t *testing.T) {
	layout := Field{Name: "v", Type: DataTypeFloat3, Size: 8}
	_, err := New(make([]byte, 16), layout)
	if !errors.Is(err, ErrLeafTooSmall) {
		t.Errorf("New() error = %v, want ErrLeafTooSmall", err)
	}
}

func TestSingleByteBool(t *testing.T) {
	buf := []byte{0, 0, 0, 0}
	d, err := New(buf, Field{Name: "b", Type: DataTypeBool, Offset: 2, Size: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	d.SetValue(Bool(true))
	if buf[2] != 1 || buf[3] != 0 {
		t.Errorf("buf = %v, want byte 2 set only", buf)
	}
}

func TestWalk(t *testing.T) {
	d, _ := newTestDescriptor(t)
	var paths []string
	d.Walk(func(path string, n *Descriptor) bool {
		paths = append(paths, path)
		return n.Name() != "textures"
	})
	want := []string{
		"kbuff", "kbuff.clearColor", "kbuff.options", "kbuff.options.glow",
		"kbuff.options.speed", "kbuff.options.mode", "kbuff.options.mode.a",
		"kbuff.options.mode.b", "kbuff.options.mode.c", "kbuff.textures",
	}
	if len(paths) != len(want) {
		t.Fatalf("Walk visited %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestDataTypeString(t *testing.T) {
	tests := []struct {
		t    DataType
		want string
	}{
		{DataTypeFloat3, "float3"},
		{DataTypeInt4, "int4"},
		{DataTypeStruct, "struct"},
		{DataType(200), "DataType(200)"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
