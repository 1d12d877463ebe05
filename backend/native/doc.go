// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements gpu.Context on a gogpu/wgpu HAL device.
//
// Shader libraries are WGSL sources. Every source is parsed and lowered
// with gogpu/naga when the Device is created; entry points become
// functions looked up by name, and the uniform and storage globals of a
// source become the argument layout of its entry points, laid out with
// WGSL host-shareable alignment rules.
//
// Buffers keep a host shadow. DispatchAndWait uploads the shadows of the
// bound buffers, runs the kernel on a 1×1×1 grid, copies storage buffers
// back through staging buffers and waits on a fence before returning.
//
// Usage with a device owned by the host application:
//
//	dev, err := native.NewFromProvider(provider, sources, logger)
//
// Standalone usage (the Vulkan HAL backend must be linked in):
//
//	import _ "github.com/gogpu/wgpu/hal/vulkan"
//
//	dev, err := native.Open(sources, logger)
//	defer dev.Close()
package native
