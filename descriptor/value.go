// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package descriptor

import "fmt"

// DataType is the declared type of a reflected field.
type DataType uint8

// Reflected data types.
const (
	// DataTypeUnknown marks a field whose declared type has no host-side
	// representation (matrices, atomics, pointers). Such leaves are readable
	// only as raw bytes and are skipped by every consumer.
	DataTypeUnknown DataType = iota

	DataTypeBool
	DataTypeInt
	DataTypeUint
	DataTypeFloat
	DataTypeFloat2
	DataTypeFloat3
	DataTypeFloat4
	DataTypeInt2
	DataTypeInt3
	DataTypeInt4

	// DataTypeBytes is a fixed array of 32-bit scalars used as character
	// storage (asset names and similar strings).
	DataTypeBytes

	// DataTypeStruct is a structure or fixed-size array with children.
	DataTypeStruct
)

var dataTypeNames = [...]string{
	DataTypeUnknown: "unknown",
	DataTypeBool:    "bool",
	DataTypeInt:     "int",
	DataTypeUint:    "uint",
	DataTypeFloat:   "float",
	DataTypeFloat2:  "float2",
	DataTypeFloat3:  "float3",
	DataTypeFloat4:  "float4",
	DataTypeInt2:    "int2",
	DataTypeInt3:    "int3",
	DataTypeInt4:    "int4",
	DataTypeBytes:   "bytes",
	DataTypeStruct:  "struct",
}

// String returns the lower-case type name.
func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// Size returns the minimum byte size of a leaf of this type.
// Bool reports 4 (a 32-bit word); single-byte booleans are still accepted
// by decoding when the reflected field size is 1.
// Bytes, Struct and Unknown have no fixed size and report 0.
func (t DataType) Size() int {
	switch t {
	case DataTypeBool, DataTypeInt, DataTypeUint, DataTypeFloat:
		return 4
	case DataTypeFloat2, DataTypeInt2:
		return 8
	case DataTypeFloat3, DataTypeInt3:
		return 12
	case DataTypeFloat4, DataTypeInt4:
		return 16
	default:
		return 0
	}
}

// Value is the closed set of leaf values a Descriptor can hold.
// The set is sealed: only the types declared in this package implement it,
// so a type switch over Value is exhaustive.
type Value interface {
	// DataType reports the reflected type this value corresponds to.
	DataType() DataType
	isValue()
}

// Leaf value variants.
type (
	Bool   bool
	Int    int32
	Uint   uint32
	Float  float32
	Float2 [2]float32
	Float3 [3]float32
	Float4 [4]float32
	Int2   [2]int32
	Int3   [3]int32
	Int4   [4]int32
)

func (Bool) DataType() DataType   { return DataTypeBool }
func (Int) DataType() DataType    { return DataTypeInt }
func (Uint) DataType() DataType   { return DataTypeUint }
func (Float) DataType() DataType  { return DataTypeFloat }
func (Float2) DataType() DataType { return DataTypeFloat2 }
func (Float3) DataType() DataType { return DataTypeFloat3 }
func (Float4) DataType() DataType { return DataTypeFloat4 }
func (Int2) DataType() DataType   { return DataTypeInt2 }
func (Int3) DataType() DataType   { return DataTypeInt3 }
func (Int4) DataType() DataType   { return DataTypeInt4 }

func (Bool) isValue()   {}
func (Int) isValue()    {}
func (Uint) isValue()   {}
func (Float) isValue()  {}
func (Float2) isValue() {}
func (Float3) isValue() {}
func (Float4) isValue() {}
func (Int2) isValue()   {}
func (Int3) isValue()   {}
func (Int4) isValue()   {}
