// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Errors returned by New.
var (
	// ErrOutOfBounds is returned when a reflected field lies outside the buffer.
	ErrOutOfBounds = errors.New("descriptor: field outside buffer")

	// ErrLeafTooSmall is returned when a leaf's reflected size cannot hold
	// a value of its declared type.
	ErrLeafTooSmall = errors.New("descriptor: leaf smaller than its type")
)

// Field is one node of a reflected argument layout.
//
// Offsets are absolute byte offsets into the argument buffer, not offsets
// relative to the parent structure.
type Field struct {
	Name    string
	Type    DataType
	Offset  int
	Size    int
	Members []Field
}

// ArrayOf returns a structure field whose members are count copies of elem,
// named by index and laid out stride bytes apart starting at offset.
func ArrayOf(name string, offset, stride, count int, elem Field) Field {
	f := Field{
		Name:    name,
		Type:    DataTypeStruct,
		Offset:  offset,
		Size:    stride * count,
		Members: make([]Field, count),
	}
	for i := range count {
		f.Members[i] = elem.relocate(strconv.Itoa(i), offset+i*stride)
	}
	return f
}

// relocate returns a copy of f renamed and moved so that it starts at offset.
func (f Field) relocate(name string, offset int) Field {
	delta := offset - f.Offset
	out := f.shift(delta)
	out.Name = name
	return out
}

func (f Field) shift(delta int) Field {
	out := f
	out.Offset += delta
	if len(f.Members) > 0 {
		out.Members = make([]Field, len(f.Members))
		for i, m := range f.Members {
			out.Members[i] = m.shift(delta)
		}
	}
	return out
}

// Descriptor is a node of the typed view over an argument buffer.
type Descriptor struct {
	field    Field
	buf      []byte
	children []*Descriptor
	byName   map[string]int
}

// New builds a descriptor tree for layout over buf. buf is shared, not copied.
func New(buf []byte, layout Field) (*Descriptor, error) {
	return build(buf, layout)
}

func build(buf []byte, f Field) (*Descriptor, error) {
	d := &Descriptor{field: f, buf: buf}
	if f.Type == DataTypeStruct {
		d.children = make([]*Descriptor, 0, len(f.Members))
		d.byName = make(map[string]int, len(f.Members))
		for _, m := range f.Members {
			c, err := build(buf, m)
			if err != nil {
				return nil, err
			}
			if _, dup := d.byName[m.Name]; !dup {
				d.byName[m.Name] = len(d.children)
			}
			d.children = append(d.children, c)
		}
		return d, nil
	}

	if d.field.Size == 0 {
		d.field.Size = f.Type.Size()
	}
	minSize := f.Type.Size()
	if f.Type == DataTypeBool {
		minSize = 1
	}
	if d.field.Size < minSize {
		return nil, fmt.Errorf("%w: %q is %s with %d bytes", ErrLeafTooSmall, f.Name, f.Type, d.field.Size)
	}
	if f.Offset < 0 || f.Offset+d.field.Size > len(buf) {
		return nil, fmt.Errorf("%w: %q at [%d,%d) of %d", ErrOutOfBounds, f.Name, f.Offset, f.Offset+d.field.Size, len(buf))
	}
	return d, nil
}

// Name returns the field name.
func (d *Descriptor) Name() string { return d.field.Name }

// DataType returns the declared type.
func (d *Descriptor) DataType() DataType { return d.field.Type }

// IsStruct reports whether d is a structure node.
func (d *Descriptor) IsStruct() bool { return d.field.Type == DataTypeStruct }

// Offset returns the absolute byte offset of the field.
func (d *Descriptor) Offset() int { return d.field.Offset }

// Size returns the reflected byte size of the field.
func (d *Descriptor) Size() int { return d.field.Size }

// Children returns the child nodes in declaration order.
// Leaves have no children.
func (d *Descriptor) Children() []*Descriptor { return d.children }

// Get returns the direct child called name, or nil if there is none.
// A nil receiver returns nil, so lookups can be chained.
func (d *Descriptor) Get(name string) *Descriptor {
	if d == nil || d.byName == nil {
		return nil
	}
	i, ok := d.byName[name]
	if !ok {
		return nil
	}
	return d.children[i]
}

// StructArray returns the children of the child called name.
// It returns nil, false when the child is absent or is not a structure.
func (d *Descriptor) StructArray(name string) ([]*Descriptor, bool) {
	c := d.Get(name)
	if c == nil || !c.IsStruct() {
		return nil, false
	}
	return c.children, true
}

func (d *Descriptor) bytes() []byte {
	return d.buf[d.field.Offset : d.field.Offset+d.field.Size]
}

// Value returns the leaf's current contents. It returns nil for structures,
// byte arrays and leaves of unknown type.
func (d *Descriptor) Value() Value {
	if d == nil {
		return nil
	}
	return decode(d.field.Type, d.bytes())
}

// ValueOf returns the leaf's value as T. ok is false when d is nil or its
// declared type is not T.
func ValueOf[T Value](d *Descriptor) (v T, ok bool) {
	v, ok = d.Value().(T)
	return v, ok
}

// SetValue writes v into the buffer at the leaf's offset.
// It returns false, writing nothing, when v's type differs from the
// declared type.
func (d *Descriptor) SetValue(v Value) bool {
	if d == nil || v == nil || v.DataType() != d.field.Type {
		return false
	}
	encode(v, d.bytes())
	return true
}

// SetFlag writes 1 (on) or 0 (off) in the leaf's own representation.
// Bool, Int, Uint and Float leaves are supported.
func (d *Descriptor) SetFlag(on bool) bool {
	if d == nil {
		return false
	}
	var n int32
	if on {
		n = 1
	}
	switch d.field.Type {
	case DataTypeBool:
		return d.SetValue(Bool(on))
	case DataTypeInt:
		return d.SetValue(Int(n))
	case DataTypeUint:
		return d.SetValue(Uint(n)) //nolint:gosec // 0 or 1
	case DataTypeFloat:
		return d.SetValue(Float(n))
	}
	return false
}

// String decodes NUL-terminated text from a bytes leaf, or from a structure
// whose only member is such a leaf. ok is false when d holds no text.
func (d *Descriptor) String() (string, bool) {
	if d == nil {
		return "", false
	}
	switch d.field.Type {
	case DataTypeBytes:
		b := d.bytes()
		if i := bytes.IndexByte(b, 0); i >= 0 {
			b = b[:i]
		}
		return string(b), len(b) > 0
	case DataTypeStruct:
		if len(d.children) == 1 {
			return d.children[0].String()
		}
	}
	return "", false
}

// Walk visits d and its descendants depth-first in declaration order.
// path is the dot-separated field path from d. Returning false from fn
// skips the node's children.
func (d *Descriptor) Walk(fn func(path string, n *Descriptor) bool) {
	d.walk("", fn)
}

func (d *Descriptor) walk(prefix string, fn func(string, *Descriptor) bool) {
	path := d.field.Name
	if prefix != "" {
		path = prefix + "." + path
	}
	if !fn(path, d) {
		return
	}
	for _, c := range d.children {
		c.walk(path, fn)
	}
}
