// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"github.com/gogpu/tinker/gpu"
)

// Role is the part a GPU function plays for a shader.
type Role uint8

// Function roles.
const (
	RoleInitializer Role = iota
	RoleKernel
	RoleVertex
	RoleFragment
	RoleFilter
)

// Fallback functions used by render passes that define no functions of
// their own.
const (
	FlatVertex       = "flatVertexFn"
	PassthruFragment = "passthruFragmentFn"
)

// FunctionName returns the entry point name of a shader function.
//
//	initializer  <shader>InitializeOptions
//	kernel       <shader>___<stage>___Kernel
//	vertex       <shader>___<stage>___Vertex
//	fragment     <shader>___<stage>___Fragment
//	filter       <stage>___Filter
//
// An empty stage names the shader-wide function, so the per-frame kernel
// is "<shader>______Kernel". Filters are shared between shaders and do not
// carry the shader name.
func FunctionName(shader, stage string, role Role) string {
	switch role {
	case RoleInitializer:
		return shader + "InitializeOptions"
	case RoleKernel:
		return shader + "___" + stage + "___Kernel"
	case RoleVertex:
		return shader + "___" + stage + "___Vertex"
	case RoleFragment:
		return shader + "___" + stage + "___Fragment"
	case RoleFilter:
		return stage + "___Filter"
	}
	return ""
}

// Resolve looks up the function for (shader, stage, role).
func Resolve(g gpu.Context, shader, stage string, role Role) (gpu.Function, bool) {
	return g.FindFunction(FunctionName(shader, stage, role))
}

// resolveOr resolves (shader, stage, role) and falls back to the function
// called fallback.
func resolveOr(g gpu.Context, shader, stage string, role Role, fallback string) (gpu.Function, bool) {
	if f, ok := Resolve(g, shader, stage, role); ok {
		return f, true
	}
	return g.FindFunction(fallback)
}
