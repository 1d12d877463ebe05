// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tinker configures shader programs from runtime reflection.
//
// # Overview
//
// A shader library declares, for each shader, an initializer kernel named
// "<shader>InitializeOptions" that writes the shader's defaults into a
// buffer argument called kbuff. Nothing about the buffer is known at
// compile time: its layout is reflected from the GPU function. A
// [Controller] runs the initializer once and then
//
//   - reconciles the "options" sub-structure with a persistent store
//     (package options),
//   - resolves the media the shader references (package media),
//   - reads the clear color,
//   - builds the ordered pass graph described by the "pipeline"
//     sub-structure (package pipeline).
//
// # Quick Start
//
//	dev, err := native.Open(sources, nil)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	store := config.NewFileStore("prefs.json")
//	_ = store.Load()
//
//	c := tinker.New("plasma", dev, store,
//	    tinker.WithLocator(assets.NewLocator(os.DirFS("assets"))))
//	if err := c.Activate(ctx, gpu.Size{Width: 800, Height: 600}); err != nil {
//	    return err
//	}
//	for _, opt := range c.Options() {
//	    fmt.Println(opt.Label, opt.Kind)
//	}
//
// # Architecture
//
//   - descriptor: typed tree view over a reflected argument buffer
//   - config: persistent key/value store
//   - options: option reconciliation and option descriptors
//   - media: texture loading and media capability registration
//   - pipeline: pass graph builder and function naming contract
//   - gpu: the device boundary; backend/native implements it on gogpu/wgpu
//
// # Failure Policy
//
// Missing functions, fields and assets are logged and the feature is
// omitted. Only a missing or failing initializer and a failed render or
// compute stage are reported as errors.
package tinker

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
