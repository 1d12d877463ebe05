// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pipeline builds the pass graph of a shader from the "pipeline"
// structure of its reflected defaults.
//
// Each member of the pipeline structure is one stage, in order:
//
//	int                        filter pass "<stage>___Filter"
//	int4 (-1, w, h, flags)     compute pass over a w×h grid
//	int4 (topo, v, i, flags)   render pass with v vertices, i instances
//
// Without a pipeline structure the graph is a single final render pass
// drawing a 4-vertex triangle strip with no compute buffer bound.
//
// Failure policy differs by stage kind. A filter that cannot be built is
// logged and left out. A compute or render pass that cannot be built, or
// an unknown topology, aborts the whole build.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tinker/descriptor"
	"github.com/gogpu/tinker/gpu"
)

// Errors returned by Build. Each is wrapped with the stage and shader.
var (
	ErrTopology    = errors.New("pipeline: invalid primitive topology")
	ErrRenderPass  = errors.New("pipeline: render pass unavailable")
	ErrComputePass = errors.New("pipeline: compute pass unavailable")
)

// DefaultComputeBufferSize is used when a kernel declares no
// "computeBuffer" argument.
const DefaultComputeBufferSize = 16

// computeStage marks an int4 stage as a compute pass.
const computeStage = -1

var topologies = [...]gputypes.PrimitiveTopology{
	gputypes.PrimitiveTopologyPointList,
	gputypes.PrimitiveTopologyLineList,
	gputypes.PrimitiveTopologyLineStrip,
	gputypes.PrimitiveTopologyTriangleList,
	gputypes.PrimitiveTopologyTriangleStrip,
}

// Topology maps a reflected topology code to a primitive topology:
// 0 point list, 1 line list, 2 line strip, 3 triangle list,
// 4 triangle strip.
func Topology(code int32) (gputypes.PrimitiveTopology, bool) {
	if code < 0 || int(code) >= len(topologies) {
		return 0, false
	}
	return topologies[code], true
}

// Builder builds pass graphs against a GPU context.
type Builder struct {
	gpu gpu.Context
	log *slog.Logger
}

// NewBuilder returns a builder. A nil logger discards output.
func NewBuilder(g gpu.Context, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Builder{gpu: g, log: log}
}

// build is the state of one Build call.
type build struct {
	*Builder
	shader  string
	size    gpu.Size
	log     *slog.Logger
	graph   *Graph
	last    gpu.Texture
	compute gpu.Buffer
}

// Build returns a new graph for shader. root is the reconciled defaults
// descriptor (nil behaves as a shader without a pipeline), size the canvas
// size and input the texture bound to input slot 0 (may be nil).
//
// On error every resource created so far is destroyed and no graph is
// returned; callers keep their previous graph.
func (b *Builder) Build(shader string, root *descriptor.Descriptor, size gpu.Size, input gpu.Texture) (*Graph, error) {
	s := &build{
		Builder: b,
		shader:  shader,
		size:    size,
		log:     b.log.With("shader", shader),
		graph:   &Graph{},
		last:    input,
	}
	if err := s.run(root); err != nil {
		s.graph.Release()
		s.log.Error("pipeline: build failed", "err", err)
		return nil, err
	}
	s.graph.ComputeBuffer = s.compute
	s.log.Info("pipeline: graph built", "passes", len(s.graph.Passes))
	return s.graph, nil
}

func (s *build) run(root *descriptor.Descriptor) error {
	if fn, ok := Resolve(s.gpu, s.shader, "", RoleKernel); ok {
		if err := s.addCompute("frame initialize compute in "+s.shader, fn, [2]int{1, 1}, 0); err != nil {
			return err
		}
	}

	pl := root.Get("pipeline")
	if pl == nil {
		// The default pass reads no compute buffer.
		return s.addRender("", s.shader, nil, gputypes.PrimitiveTopologyTriangleStrip, 4, 1, 0, true)
	}

	stages := pl.Children()
	for i, st := range stages {
		final := i == len(stages)-1
		name := st.Name()
		label := name + " in " + s.shader
		if name == "" {
			s.log.Warn("pipeline: unnamed stage skipped", "index", i)
			continue
		}

		switch v := st.Value().(type) {
		case descriptor.Int:
			s.addFilter(name, label, final)

		case descriptor.Int4:
			if v[0] == computeStage {
				fn, ok := Resolve(s.gpu, s.shader, name, RoleKernel)
				if !ok {
					return fmt.Errorf("%w: %s: function %s not found", ErrComputePass, label,
						FunctionName(s.shader, name, RoleKernel))
				}
				if err := s.addCompute(label, fn, [2]int{int(v[1]), int(v[2])}, v[3]); err != nil {
					return err
				}
				continue
			}
			topo, ok := Topology(v[0])
			if !ok {
				return fmt.Errorf("%w: %d for %s", ErrTopology, v[0], label)
			}
			if err := s.addRender(name, label, s.compute, topo, int(v[1]), int(v[2]), v[3], final); err != nil {
				return err
			}

		default:
			s.log.Warn("pipeline: unsupported stage type", "stage", name, "type", st.DataType())
		}
	}
	return nil
}

func (s *build) addCompute(label string, fn gpu.Function, grid [2]int, flags int32) error {
	size := DefaultComputeBufferSize
	if layout, err := s.gpu.ReflectArgumentLayout(fn); err == nil {
		if a, ok := layout.Argument("computeBuffer"); ok && a.Layout.Size > 0 {
			size = a.Layout.Size
		}
	} else {
		s.log.Debug("pipeline: no argument reflection", "function", fn.Name(), "err", err)
	}
	buf, err := s.gpu.AllocateBuffer("compute buffer for "+label, size, gpu.StoragePrivate)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrComputePass, label, err)
	}
	s.graph.Passes = append(s.graph.Passes, &ComputePass{
		Name:     label,
		Grid:     grid,
		Flags:    flags,
		Function: fn,
		Buffer:   buf,
	})
	s.compute = buf
	s.log.Debug("pipeline: compute pass", "function", fn.Name(), "grid", grid, "buffer", size)
	return nil
}

// addFilter appends a filter pass. Failures are logged, not returned.
func (s *build) addFilter(stage, label string, final bool) {
	name := FunctionName(s.shader, stage, RoleFilter)
	fn, ok := s.gpu.FindFunction(name)
	if !ok {
		s.log.Error("pipeline: failed to create filter pass", "stage", stage, "function", name)
		return
	}
	if s.last == nil {
		s.log.Error("pipeline: filter pass has no input", "stage", stage)
		return
	}
	out, err := s.gpu.AllocateTexture(gpu.RenderTargetDescriptor("filter output for "+label, s.size.Width, s.size.Height))
	if err != nil {
		s.log.Error("pipeline: failed to create filter pass", "stage", stage, "err", err)
		return
	}
	s.graph.Passes = append(s.graph.Passes, &FilterPass{
		Name:     label,
		Function: fn,
		Input:    s.last,
		Output:   out,
		IsFinal:  final,
	})
	s.last = out
	s.log.Debug("pipeline: filter pass", "stage", stage, "function", name)
}

func (s *build) addRender(stage, label string, compute gpu.Buffer, topo gputypes.PrimitiveTopology, vertices, instances int, flags int32, final bool) error {
	vfn, ok := resolveOr(s.gpu, s.shader, stage, RoleVertex, FlatVertex)
	if !ok {
		return fmt.Errorf("%w: %s: no vertex function", ErrRenderPass, label)
	}
	ffn, ok := resolveOr(s.gpu, s.shader, stage, RoleFragment, PassthruFragment)
	if !ok {
		return fmt.Errorf("%w: %s: no fragment function", ErrRenderPass, label)
	}

	color, err := s.gpu.AllocateTexture(gpu.RenderTargetDescriptor("render color for "+label, s.size.Width, s.size.Height))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRenderPass, label, err)
	}
	out, err := s.gpu.AllocateTexture(gpu.RenderTargetDescriptor("render output for "+label, s.size.Width, s.size.Height))
	if err != nil {
		color.Destroy()
		return fmt.Errorf("%w: %s: %w", ErrRenderPass, label, err)
	}

	s.graph.Passes = append(s.graph.Passes, &RenderPass{
		Name:          label,
		Vertex:        vfn,
		Fragment:      ffn,
		Topology:      topo,
		VertexCount:   vertices,
		InstanceCount: instances,
		Flags:         flags,
		ComputeBuffer: compute,
		Input:         s.last,
		Color:         color,
		Output:        out,
		IsFinal:       final,
	})
	s.last = out
	s.log.Debug("pipeline: render pass", "stage", stage,
		"vertex", vfn.Name(), "fragment", ffn.Name(), "topology", topo)
	return nil
}
