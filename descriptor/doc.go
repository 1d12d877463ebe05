// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package descriptor provides a typed, reflected view over a raw GPU argument
// buffer.
//
// A shader's option block is never described statically. Instead the GPU
// program's argument layout is reflected at runtime into a [Field] tree
// (names, declared types, byte offsets and sizes), and a [Descriptor] wraps
// that tree together with the buffer the initializer kernel filled in.
//
// # Nodes
//
// Every node is either a leaf or a structure:
//   - leaves carry a [DataType] other than [DataTypeStruct] and expose their
//     current contents as a [Value];
//   - structures carry only children, in declaration order. Fixed-size arrays
//     are structures whose children are named "0", "1", ...
//
// # Mutation
//
// [Descriptor.SetValue] writes straight into the shared buffer at the
// reflected offset. There is no copy: every Descriptor created from the same
// buffer observes the write, and so does the GPU once the buffer is flushed.
//
// # Absence
//
// [Descriptor.Get] returning nil is not an error. It means the shader does
// not declare that feature, and callers skip it silently.
package descriptor
