// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gputest provides an in-memory gpu.Context for tests.
//
// Functions are registered by name; compute functions may carry a Kernel,
// a Go function run by DispatchAndWait against the host bytes of the bound
// buffers. This is how tests stand in for a shader's initializer.
package gputest

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tinker/gpu"
)

// Kernel simulates a compute function. args maps argument index to the
// host bytes of the buffer bound there.
type Kernel func(args map[int][]byte) error

// Function is a registered fake entry point.
type Function struct {
	name  string
	stage gpu.Stage
}

func (f *Function) Name() string     { return f.name }
func (f *Function) Stage() gpu.Stage { return f.stage }

// Buffer is a host-only buffer.
type Buffer struct {
	label     string
	data      []byte
	Flushes   int
	Destroyed bool
}

func (b *Buffer) Label() string    { return b.label }
func (b *Buffer) Size() int        { return len(b.data) }
func (b *Buffer) Contents() []byte { return b.data }
func (b *Buffer) Flush() error     { b.Flushes++; return nil }
func (b *Buffer) Destroy()         { b.Destroyed = true }

// Texture is a host-only texture. Image is set for uploaded textures.
type Texture struct {
	desc      gpu.TextureDescriptor
	Image     image.Image
	Destroyed bool
}

func (t *Texture) Label() string                  { return t.desc.Label }
func (t *Texture) Width() uint32                  { return t.desc.Width }
func (t *Texture) Height() uint32                 { return t.desc.Height }
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }
func (t *Texture) Destroy()                       { t.Destroyed = true }

// Context is a fake gpu.Context. The zero value is not usable; call New.
type Context struct {
	mu        sync.Mutex
	functions map[string]*Function
	layouts   map[string]*gpu.ArgumentLayout
	kernels   map[string]Kernel
	failing   []string

	// Buffers and Textures record every successful allocation in order.
	Buffers  []*Buffer
	Textures []*Texture

	// Dispatched records the names of dispatched functions in order.
	Dispatched []string
}

var _ gpu.Context = (*Context)(nil)

// New returns an empty fake context.
func New() *Context {
	return &Context{
		functions: make(map[string]*Function),
		layouts:   make(map[string]*gpu.ArgumentLayout),
		kernels:   make(map[string]Kernel),
	}
}

// AddFunction registers a function without arguments.
func (c *Context) AddFunction(name string, stage gpu.Stage) *Function {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := &Function{name: name, stage: stage}
	c.functions[name] = f
	return f
}

// AddKernel registers a compute function with a reflected layout and an
// optional body.
func (c *Context) AddKernel(name string, layout *gpu.ArgumentLayout, k Kernel) *Function {
	f := c.AddFunction(name, gpu.StageCompute)
	c.mu.Lock()
	defer c.mu.Unlock()
	if layout != nil {
		c.layouts[name] = layout
	}
	if k != nil {
		c.kernels[name] = k
	}
	return f
}

// FailAllocations makes every later buffer or texture allocation whose
// label contains substr fail with gpu.ErrAllocation.
func (c *Context) FailAllocations(substr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = append(c.failing, substr)
}

func (c *Context) shouldFail(label string) bool {
	for _, s := range c.failing {
		if strings.Contains(label, s) {
			return true
		}
	}
	return false
}

func (c *Context) FindFunction(name string) (gpu.Function, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.functions[name]
	if !ok {
		return nil, false
	}
	return f, true
}

func (c *Context) ReflectArgumentLayout(fn gpu.Function) (*gpu.ArgumentLayout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.functions[fn.Name()]; !ok {
		return nil, fmt.Errorf("%w: %s", gpu.ErrFunctionNotFound, fn.Name())
	}
	if l, ok := c.layouts[fn.Name()]; ok {
		return l, nil
	}
	return &gpu.ArgumentLayout{}, nil
}

func (c *Context) AllocateBuffer(label string, size int, _ gpu.StorageMode) (gpu.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if size <= 0 || c.shouldFail(label) {
		return nil, fmt.Errorf("%w: buffer %q (%d bytes)", gpu.ErrAllocation, label, size)
	}
	b := &Buffer{label: label, data: make([]byte, size)}
	c.Buffers = append(c.Buffers, b)
	return b, nil
}

func (c *Context) AllocateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if desc.Width == 0 || desc.Height == 0 || c.shouldFail(desc.Label) {
		return nil, fmt.Errorf("%w: texture %q", gpu.ErrAllocation, desc.Label)
	}
	t := &Texture{desc: desc}
	c.Textures = append(c.Textures, t)
	return t, nil
}

func (c *Context) UploadTexture(label string, img image.Image) (gpu.Texture, error) {
	b := img.Bounds()
	t, err := c.AllocateTexture(gpu.TextureDescriptor{
		Label:  label,
		Width:  uint32(b.Dx()), //nolint:gosec // image bounds are non-negative
		Height: uint32(b.Dy()), //nolint:gosec // image bounds are non-negative
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	t.(*Texture).Image = img
	return t, nil
}

func (c *Context) DispatchAndWait(ctx context.Context, fn gpu.Function, bindings []gpu.Binding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	k := c.kernels[fn.Name()]
	c.Dispatched = append(c.Dispatched, fn.Name())
	c.mu.Unlock()
	if k == nil {
		return nil
	}
	args := make(map[int][]byte, len(bindings))
	for _, b := range bindings {
		args[b.Index] = b.Buffer.Contents()
	}
	if err := k(args); err != nil {
		return fmt.Errorf("%w: %s: %w", gpu.ErrDispatch, fn.Name(), err)
	}
	return nil
}
