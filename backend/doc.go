// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend provides a registry of GPU backends.
//
// A backend turns a WGSL shader library into a gpu.Context. Backends
// register a factory from an init function and are selected by name at
// runtime:
//
//	import _ "github.com/gogpu/tinker/backend/native"
//
//	dev, err := backend.Open(backend.Native, sources, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// Default opens the first registered backend in priority order.
//
// # Available Backends
//
// - "native": gogpu/wgpu HAL device (backend/native)
package backend
