// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tinker/gpu"
)

// fenceTimeout caps a blocking dispatch.
const fenceTimeout = 5 * time.Second

// computeState holds the HAL objects of one compiled compute entry point.
type computeState struct {
	module   hal.ShaderModule
	bgLayout hal.BindGroupLayout
	layout   hal.PipelineLayout
	pipeline hal.ComputePipeline
}

func (s *computeState) destroy(device hal.Device) {
	if s.pipeline != nil {
		device.DestroyComputePipeline(s.pipeline)
	}
	if s.layout != nil {
		device.DestroyPipelineLayout(s.layout)
	}
	if s.bgLayout != nil {
		device.DestroyBindGroupLayout(s.bgLayout)
	}
	if s.module != nil {
		device.DestroyShaderModule(s.module)
	}
}

// createComputeState compiles f into a compute pipeline whose single bind
// group holds every reflected argument of its source.
// Caller must hold d.mu.
func (d *Device) createComputeState(f *function) (*computeState, error) {
	words, err := f.source.compile()
	if err != nil {
		return nil, err
	}
	s := &computeState{}
	s.module, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  f.source.name,
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create shader module %s: %w", f.source.name, err)
	}

	entries := make([]gputypes.BindGroupLayoutEntry, len(f.source.layout))
	for i, a := range f.source.layout {
		kind := gputypes.BufferBindingTypeStorage
		if a.uniform {
			kind = gputypes.BufferBindingTypeUniform
		}
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(a.Index), //nolint:gosec // binding indices come from uint32
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: kind},
		}
	}
	s.bgLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   f.name + "_bgl",
		Entries: entries,
	})
	if err != nil {
		s.destroy(d.device)
		return nil, fmt.Errorf("native: create bind group layout %s: %w", f.name, err)
	}
	s.layout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            f.name + "_layout",
		BindGroupLayouts: []hal.BindGroupLayout{s.bgLayout},
	})
	if err != nil {
		s.destroy(d.device)
		return nil, fmt.Errorf("native: create pipeline layout %s: %w", f.name, err)
	}
	s.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   f.name,
		Layout:  s.layout,
		Compute: hal.ComputeState{Module: s.module, EntryPoint: f.name},
	})
	if err != nil {
		s.destroy(d.device)
		return nil, fmt.Errorf("native: create compute pipeline %s: %w", f.name, err)
	}
	d.log.Debug("native: compute pipeline created", "function", f.name)
	return s, nil
}

// readback pairs a storage buffer with the staging copy of its contents.
type readback struct {
	buf     *buffer
	staging hal.Buffer
}

// DispatchAndWait implements gpu.Context.
func (d *Device) DispatchAndWait(ctx context.Context, fn gpu.Function, bindings []gpu.Binding) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", gpu.ErrDispatch, err)
	}
	f, err := d.own(fn)
	if err != nil {
		return fmt.Errorf("%w: %w", gpu.ErrDispatch, err)
	}
	if f.stage != gpu.StageCompute {
		return fmt.Errorf("%w: %s is a %s function", gpu.ErrDispatch, f.name, f.stage)
	}
	bound, err := d.bind(f, bindings)
	if err != nil {
		return fmt.Errorf("%w: %w", gpu.ErrDispatch, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("%w: %w", gpu.ErrDispatch, ErrClosed)
	}
	state, err := d.pipelines.GetOrCreate(f.name, func() (*computeState, error) {
		return d.createComputeState(f)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", gpu.ErrDispatch, err)
	}
	if err := d.run(ctx, f, state, bound); err != nil {
		d.log.Error("native: dispatch failed", "function", f.name, "err", err)
		return fmt.Errorf("%w: %s: %w", gpu.ErrDispatch, f.name, err)
	}
	return nil
}

// bind matches bindings to the reflected arguments of f, in argument order.
func (d *Device) bind(f *function, bindings []gpu.Binding) ([]*buffer, error) {
	byIndex := make(map[int]gpu.Buffer, len(bindings))
	for _, b := range bindings {
		byIndex[b.Index] = b.Buffer
	}
	bound := make([]*buffer, len(f.source.layout))
	for i, a := range f.source.layout {
		gb, ok := byIndex[a.Index]
		if !ok || gb == nil {
			return nil, fmt.Errorf("%w: %s @binding(%d)", ErrMissingBinding, a.Name, a.Index)
		}
		b, ok := gb.(*buffer)
		if !ok || b.owner != d {
			return nil, fmt.Errorf("%w: buffer %q", ErrForeignResource, gb.Label())
		}
		bound[i] = b
	}
	return bound, nil
}

// run records, submits and waits for one 1×1×1 dispatch of f, then reads
// storage buffers back into their shadows. Caller must hold d.mu.
func (d *Device) run(ctx context.Context, f *function, state *computeState, bound []*buffer) error {
	entries := make([]gputypes.BindGroupEntry, len(bound))
	for i, b := range bound {
		b.Flush() //nolint:errcheck // Flush on a HAL buffer cannot fail
		entries[i] = gputypes.BindGroupEntry{
			Binding: uint32(f.source.layout[i].Index), //nolint:gosec // binding indices come from uint32
			Resource: gputypes.BufferBinding{
				Buffer: b.buf.NativeHandle(),
				Offset: 0,
				Size:   uint64(b.padded), //nolint:gosec // positive size
			},
		}
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   f.name + "_bg",
		Layout:  state.bgLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bg)

	var readbacks []readback
	defer func() {
		for _, rb := range readbacks {
			d.device.DestroyBuffer(rb.staging)
		}
	}()
	for i, b := range bound {
		if f.source.layout[i].uniform || b.shadow == nil {
			continue
		}
		staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: b.label + "_staging",
			Size:  uint64(len(b.shadow)),
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create staging buffer: %w", err)
		}
		readbacks = append(readbacks, readback{buf: b, staging: staging})
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: f.name})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(f.name); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: f.name})
	pass.SetPipeline(state.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(1, 1, 1)
	pass.End()
	for _, rb := range readbacks {
		size := uint64(len(rb.buf.shadow))
		encoder.CopyBufferToBuffer(rb.buf.buf, rb.staging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: size},
		})
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	timeout := fenceTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	ok, err := d.device.Wait(fence, 1, max(timeout, 0))
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}

	for _, rb := range readbacks {
		if err := d.queue.ReadBuffer(rb.staging, 0, rb.buf.shadow); err != nil {
			return fmt.Errorf("read back %s: %w", rb.buf.label, err)
		}
	}
	return nil
}
