// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/gogpu/naga/ir"

	"github.com/gogpu/tinker/descriptor"
	"github.com/gogpu/tinker/gpu"
)

// argument is a reflected buffer global of a source.
type argument struct {
	gpu.Argument
	uniform bool
}

// reflectArguments returns the uniform and storage globals in bind group 0
// of m ordered by binding. Globals whose type has no host layout are
// skipped with a warning.
func reflectArguments(m *ir.Module, log *slog.Logger) []argument {
	var args []argument
	for _, g := range m.GlobalVariables {
		if g.Space != ir.SpaceUniform && g.Space != ir.SpaceStorage {
			continue
		}
		if g.Binding == nil {
			continue
		}
		if g.Binding.Group != 0 {
			log.Debug("native: skipping global outside group 0",
				"global", g.Name, "group", g.Binding.Group)
			continue
		}
		layout, err := reflectField(m, g.Name, g.Type, 0)
		if err != nil {
			log.Warn("native: argument omitted", "global", g.Name, "err", err)
			continue
		}
		args = append(args, argument{
			Argument: gpu.Argument{
				Name:   g.Name,
				Index:  int(g.Binding.Binding),
				Layout: layout,
			},
			uniform: g.Space == ir.SpaceUniform,
		})
	}
	sort.Slice(args, func(i, j int) bool { return args[i].Index < args[j].Index })
	return args
}

// reflectField lays out the type h at absolute offset.
func reflectField(m *ir.Module, name string, h ir.TypeHandle, offset int) (descriptor.Field, error) {
	inner, err := typeInner(m, h)
	if err != nil {
		return descriptor.Field{}, err
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		return descriptor.Field{Name: name, Type: scalarDataType(t), Offset: offset, Size: 4}, nil

	case ir.VectorType:
		n := vectorLen(t)
		return descriptor.Field{Name: name, Type: vectorDataType(t.Scalar, n), Offset: offset, Size: 4 * n}, nil

	case ir.ArrayType:
		elem, err := reflectField(m, "", t.Base, 0)
		if err != nil {
			return descriptor.Field{}, err
		}
		align, err := alignOf(m, t.Base)
		if err != nil {
			return descriptor.Field{}, err
		}
		stride := roundUp(align, elem.Size)
		count := 0
		if t.Size.Constant != nil {
			count = int(*t.Size.Constant)
		}
		if elem.Type == descriptor.DataTypeInt || elem.Type == descriptor.DataTypeUint {
			// Integer arrays carry packed character data.
			return descriptor.Field{Name: name, Type: descriptor.DataTypeBytes, Offset: offset, Size: stride * count}, nil
		}
		return descriptor.ArrayOf(name, offset, stride, count, elem), nil

	case ir.StructType:
		f := descriptor.Field{Name: name, Type: descriptor.DataTypeStruct, Offset: offset}
		structAlign := 1
		end := 0
		for _, member := range t.Members {
			align, err := alignOf(m, member.Type)
			if err != nil {
				return descriptor.Field{}, fmt.Errorf("%s.%s: %w", name, member.Name, err)
			}
			at := roundUp(align, end)
			mf, err := reflectField(m, member.Name, member.Type, offset+at)
			if err != nil {
				return descriptor.Field{}, fmt.Errorf("%s.%s: %w", name, member.Name, err)
			}
			f.Members = append(f.Members, mf)
			end = at + mf.Size
			structAlign = max(structAlign, align)
		}
		f.Size = roundUp(structAlign, end)
		return f, nil
	}
	return descriptor.Field{}, fmt.Errorf("%w: %T", ErrUnsupportedType, inner)
}

// alignOf returns the WGSL alignment of the type h.
func alignOf(m *ir.Module, h ir.TypeHandle) (int, error) {
	inner, err := typeInner(m, h)
	if err != nil {
		return 0, err
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		return 4, nil
	case ir.VectorType:
		if vectorLen(t) == 2 {
			return 8, nil
		}
		return 16, nil
	case ir.ArrayType:
		return alignOf(m, t.Base)
	case ir.StructType:
		a := 1
		for _, member := range t.Members {
			ma, err := alignOf(m, member.Type)
			if err != nil {
				return 0, err
			}
			a = max(a, ma)
		}
		return a, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, inner)
}

func typeInner(m *ir.Module, h ir.TypeHandle) (any, error) {
	if int(h) >= len(m.Types) {
		return nil, fmt.Errorf("%w: type handle %d out of range", ErrUnsupportedType, h)
	}
	return m.Types[h].Inner, nil
}

// vectorLen returns the component count of a vector type.
func vectorLen(v ir.VectorType) int {
	return int(v.Size)
}

func scalarDataType(s ir.ScalarType) descriptor.DataType {
	if s.Width != 4 && s.Kind != ir.ScalarBool {
		return descriptor.DataTypeUnknown
	}
	switch s.Kind {
	case ir.ScalarBool:
		return descriptor.DataTypeBool
	case ir.ScalarSint:
		return descriptor.DataTypeInt
	case ir.ScalarUint:
		return descriptor.DataTypeUint
	case ir.ScalarFloat:
		return descriptor.DataTypeFloat
	}
	return descriptor.DataTypeUnknown
}

var (
	floatVectors = [5]descriptor.DataType{2: descriptor.DataTypeFloat2, 3: descriptor.DataTypeFloat3, 4: descriptor.DataTypeFloat4}
	intVectors   = [5]descriptor.DataType{2: descriptor.DataTypeInt2, 3: descriptor.DataTypeInt3, 4: descriptor.DataTypeInt4}
)

func vectorDataType(s ir.ScalarType, n int) descriptor.DataType {
	if n < 2 || n > 4 || s.Width != 4 {
		return descriptor.DataTypeUnknown
	}
	switch s.Kind {
	case ir.ScalarFloat:
		return floatVectors[n]
	case ir.ScalarSint:
		return intVectors[n]
	}
	return descriptor.DataTypeUnknown
}

func roundUp(align, n int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
