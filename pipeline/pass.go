// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/tinker/gpu"
)

// Kind identifies the variant of a Pass.
type Kind uint8

// Pass kinds.
const (
	KindCompute Kind = iota
	KindFilter
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindCompute:
		return "compute"
	case KindFilter:
		return "filter"
	case KindRender:
		return "render"
	}
	return "unknown"
}

// Pass is one scheduled GPU operation. It is one of *ComputePass,
// *FilterPass or *RenderPass.
type Pass interface {
	Kind() Kind
	Label() string

	// Final reports whether the pass's output is presented.
	Final() bool

	// release destroys the resources the pass created.
	release()
}

// ComputePass runs a kernel over a grid.
type ComputePass struct {
	Name     string
	Grid     [2]int
	Flags    int32
	Function gpu.Function

	// Buffer is the general-purpose compute buffer the kernel writes.
	// Later render passes read it.
	Buffer gpu.Buffer
}

func (p *ComputePass) Kind() Kind    { return KindCompute }
func (p *ComputePass) Label() string { return p.Name }
func (p *ComputePass) Final() bool   { return false }
func (p *ComputePass) release()      { destroy(p.Buffer) }

// FilterPass runs a shared fragment function from Input to a new Output.
type FilterPass struct {
	Name     string
	Flags    int32
	Function gpu.Function
	Input    gpu.Texture
	Output   gpu.Texture
	IsFinal  bool
}

func (p *FilterPass) Kind() Kind    { return KindFilter }
func (p *FilterPass) Label() string { return p.Name }
func (p *FilterPass) Final() bool   { return p.IsFinal }
func (p *FilterPass) release()      { destroy(p.Output) }

// RenderPass draws with a vertex and fragment function into Color and
// resolves into Output.
type RenderPass struct {
	Name          string
	Vertex        gpu.Function
	Fragment      gpu.Function
	Topology      gputypes.PrimitiveTopology
	VertexCount   int
	InstanceCount int
	Flags         int32

	// ComputeBuffer is the most recent compute pass buffer, or nil.
	ComputeBuffer gpu.Buffer

	// Input is the previous pass's output, or input slot 0.
	Input gpu.Texture

	Color   gpu.Texture
	Output  gpu.Texture
	IsFinal bool
}

func (p *RenderPass) Kind() Kind    { return KindRender }
func (p *RenderPass) Label() string { return p.Name }
func (p *RenderPass) Final() bool   { return p.IsFinal }
func (p *RenderPass) release() {
	destroy(p.Color)
	destroy(p.Output)
}

type destroyer interface{ Destroy() }

func destroy(r destroyer) {
	if r != nil {
		r.Destroy()
	}
}

// Graph is an ordered pass sequence. At most one pass is final and it is
// the last one.
type Graph struct {
	Passes []Pass

	// ComputeBuffer is the buffer of the last compute pass, or nil.
	ComputeBuffer gpu.Buffer
}

// Len returns the number of passes. A nil graph is empty.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Passes)
}

// Output returns the texture the graph presents: the output of the last
// filter or render pass, or nil.
func (g *Graph) Output() gpu.Texture {
	if g == nil {
		return nil
	}
	for i := len(g.Passes) - 1; i >= 0; i-- {
		switch p := g.Passes[i].(type) {
		case *FilterPass:
			return p.Output
		case *RenderPass:
			return p.Output
		}
	}
	return nil
}

// Release destroys every resource the graph's passes created. Input
// textures are not owned by the graph and are left alone.
func (g *Graph) Release() {
	if g == nil {
		return
	}
	for _, p := range g.Passes {
		p.release()
	}
	g.Passes = nil
	g.ComputeBuffer = nil
}
