// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package descriptor

import (
	"encoding/binary"
	"math"
)

// GPU buffers are little-endian on every supported backend.
var le = binary.LittleEndian

func getF32(b []byte, i int) float32 { return math.Float32frombits(le.Uint32(b[i*4:])) }
func getI32(b []byte, i int) int32   { return int32(le.Uint32(b[i*4:])) } //nolint:gosec // bit reinterpretation
func putF32(b []byte, i int, v float32) {
	le.PutUint32(b[i*4:], math.Float32bits(v))
}
func putI32(b []byte, i int, v int32) {
	le.PutUint32(b[i*4:], uint32(v)) //nolint:gosec // bit reinterpretation
}

// decode reads a value of type t from b. b is the leaf's reflected byte range.
func decode(t DataType, b []byte) Value {
	switch t {
	case DataTypeBool:
		if len(b) < 4 {
			return Bool(b[0] != 0)
		}
		return Bool(le.Uint32(b) != 0)
	case DataTypeInt:
		return Int(getI32(b, 0))
	case DataTypeUint:
		return Uint(le.Uint32(b))
	case DataTypeFloat:
		return Float(getF32(b, 0))
	case DataTypeFloat2:
		return Float2{getF32(b, 0), getF32(b, 1)}
	case DataTypeFloat3:
		return Float3{getF32(b, 0), getF32(b, 1), getF32(b, 2)}
	case DataTypeFloat4:
		return Float4{getF32(b, 0), getF32(b, 1), getF32(b, 2), getF32(b, 3)}
	case DataTypeInt2:
		return Int2{getI32(b, 0), getI32(b, 1)}
	case DataTypeInt3:
		return Int3{getI32(b, 0), getI32(b, 1), getI32(b, 2)}
	case DataTypeInt4:
		return Int4{getI32(b, 0), getI32(b, 1), getI32(b, 2), getI32(b, 3)}
	}
	return nil
}

// encode writes v into b. The caller has already checked that v's type
// matches the leaf.
func encode(v Value, b []byte) {
	switch v := v.(type) {
	case Bool:
		var w uint32
		if v {
			w = 1
		}
		if len(b) < 4 {
			b[0] = byte(w)
			return
		}
		le.PutUint32(b, w)
	case Int:
		putI32(b, 0, int32(v))
	case Uint:
		le.PutUint32(b, uint32(v))
	case Float:
		putF32(b, 0, float32(v))
	case Float2:
		for i, c := range v {
			putF32(b, i, c)
		}
	case Float3:
		for i, c := range v {
			putF32(b, i, c)
		}
	case Float4:
		for i, c := range v {
			putF32(b, i, c)
		}
	case Int2:
		for i, c := range v {
			putI32(b, i, c)
		}
	case Int3:
		for i, c := range v {
			putI32(b, i, c)
		}
	case Int4:
		for i, c := range v {
			putI32(b, i, c)
		}
	}
}
