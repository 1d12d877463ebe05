// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu defines the boundary between shader configuration and the GPU.
//
// Nothing in this package talks to a device. It describes what the
// configuration layer needs from one: function lookup by name, argument
// layout reflection, buffer and texture allocation, and a blocking dispatch
// for one-shot kernels. [Context] is threaded explicitly through every
// constructor; there is no process-wide device.
//
// Implementations:
//   - backend/native: gogpu/wgpu HAL device with naga-based WGSL reflection
//   - gpu/gputest: in-memory fake for tests
package gpu

import (
	"context"
	"errors"
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/tinker/descriptor"
)

// Argument binding indices shared by every generated shader.
const (
	UniformIndex       = 0
	KBuffIndex         = 3
	ComputeBufferIndex = 15
	AudioIndex         = 20
	FFTIndex           = 24
)

// Texture binding indices.
const (
	InputTextureIndex = 0
	RenderInputIndex  = 10
	CubeIndex         = 20
	VideoIndex        = 50
	WebcamIndex       = 60
)

// NumberOfTextures is the number of input texture slots a shader can bind.
const NumberOfTextures = 10

// UniformSize is the byte size of the per-frame uniform block
// (date, mouse, last touch, resolution, key press, frame, time, delta,
// mouse buttons, modifiers) rounded to 16.
const UniformSize = 80

// Errors shared by Context implementations.
var (
	// ErrFunctionNotFound is returned when a named GPU function does not exist.
	ErrFunctionNotFound = errors.New("gpu: function not found")

	// ErrAllocation is returned when a buffer or texture cannot be created.
	ErrAllocation = errors.New("gpu: allocation failed")

	// ErrDispatch is returned when a kernel cannot be run to completion.
	ErrDispatch = errors.New("gpu: dispatch failed")
)

// DeviceHandle provides GPU device access from the host application.
// It is an alias for gpucontext.DeviceProvider so hosts built on the gogpu
// stack can hand their device over unchanged.
type DeviceHandle = gpucontext.DeviceProvider

// Stage is the pipeline stage a function is compiled for.
type Stage uint8

// Function stages.
const (
	StageCompute Stage = iota
	StageVertex
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return "unknown"
}

// Function is a handle to a compiled GPU entry point.
type Function interface {
	Name() string
	Stage() Stage
}

// StorageMode selects where a buffer's memory lives.
type StorageMode uint8

// Storage modes.
const (
	// StorageShared memory is visible to host and device; host writes reach
	// the device after Flush.
	StorageShared StorageMode = iota

	// StorageManaged keeps a host copy that is synchronised explicitly.
	StorageManaged

	// StoragePrivate memory is device-only; Contents returns nil.
	StoragePrivate
)

// Buffer is a GPU buffer with an optional host-visible view.
type Buffer interface {
	Label() string
	Size() int

	// Contents returns the host-visible bytes. Writes to the returned slice
	// are published to the device by Flush.
	Contents() []byte

	// Flush publishes host writes to the device.
	Flush() error

	Destroy()
}

// Texture is a GPU texture.
type Texture interface {
	Label() string
	Width() uint32
	Height() uint32
	Format() gputypes.TextureFormat
	Destroy()
}

// TextureDescriptor describes a texture to allocate.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// RenderTargetDescriptor returns a descriptor for a canvas-sized texture
// that can be rendered into and sampled by the next pass.
func RenderTargetDescriptor(label string, width, height uint32) TextureDescriptor {
	return TextureDescriptor{
		Label:  label,
		Width:  width,
		Height: height,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc,
	}
}

// Argument is one reflected buffer argument of a function.
type Argument struct {
	Name  string
	Index int

	// Layout is the reflected type of the argument's contents. Its Size is
	// the byte size the argument buffer must have.
	Layout descriptor.Field
}

// ArgumentLayout is the reflected argument list of a function.
type ArgumentLayout struct {
	Arguments []Argument
}

// Argument returns the argument called name.
func (l *ArgumentLayout) Argument(name string) (Argument, bool) {
	if l == nil {
		return Argument{}, false
	}
	for _, a := range l.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return Argument{}, false
}

// Binding attaches a buffer to an argument index for a dispatch.
type Binding struct {
	Index  int
	Buffer Buffer
}

// Size is a canvas size in pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// Context is the GPU capability object threaded through the configuration
// layer.
type Context interface {
	// FindFunction looks up a compiled entry point by name.
	FindFunction(name string) (Function, bool)

	// ReflectArgumentLayout returns the buffer arguments of fn.
	ReflectArgumentLayout(fn Function) (*ArgumentLayout, error)

	// AllocateBuffer creates a zero-filled buffer of size bytes.
	AllocateBuffer(label string, size int, mode StorageMode) (Buffer, error)

	// AllocateTexture creates an uninitialised texture.
	AllocateTexture(desc TextureDescriptor) (Texture, error)

	// UploadTexture creates a sampled texture holding img.
	UploadTexture(label string, img image.Image) (Texture, error)

	// DispatchAndWait runs fn once on a 1×1×1 grid with the given buffers
	// bound and blocks until the GPU has finished and host-visible buffer
	// contents reflect the results.
	DispatchAndWait(ctx context.Context, fn Function, bindings []Binding) error
}
