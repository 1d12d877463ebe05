// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrNilDevice is returned when a HAL device or queue is missing.
	ErrNilDevice = errors.New("native: HAL device is nil")

	// ErrProvider is returned when a device provider does not expose HAL types.
	ErrProvider = errors.New("native: provider does not expose HAL types")

	// ErrCompile is returned when a WGSL source cannot be parsed or compiled.
	ErrCompile = errors.New("native: shader compilation failed")

	// ErrUnsupportedType is returned when a WGSL type has no host layout.
	ErrUnsupportedType = errors.New("native: unsupported argument type")

	// ErrForeignResource is returned when a function or buffer was not
	// created by this Device.
	ErrForeignResource = errors.New("native: resource belongs to another context")

	// ErrMissingBinding is returned when a dispatch leaves a reflected
	// argument unbound.
	ErrMissingBinding = errors.New("native: argument not bound")

	// ErrTimeout is returned when the GPU does not finish in time.
	ErrTimeout = errors.New("native: GPU timeout")

	// ErrClosed is returned when the Device has been closed.
	ErrClosed = errors.New("native: device closed")
)
