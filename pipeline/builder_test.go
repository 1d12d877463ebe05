// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/tinker/descriptor"
	"github.com/gogpu/tinker/gpu"
	"github.com/gogpu/tinker/gpu/gputest"
)

var canvas = gpu.Size{Width: 320, Height: 200}

type stage struct {
	name  string
	value descriptor.Value // descriptor.Int or descriptor.Int4
}

// pipelineRoot returns a root descriptor with a "pipeline" structure made
// of stages. A nil stages slice omits the pipeline field.
func pipelineRoot(t *testing.T, stages []stage) *descriptor.Descriptor {
	t.Helper()
	root := descriptor.Field{Name: "kbuff", Type: descriptor.DataTypeStruct}
	if stages != nil {
		pl := descriptor.Field{Name: "pipeline", Type: descriptor.DataTypeStruct}
		for i, s := range stages {
			pl.Members = append(pl.Members, descriptor.Field{
				Name: s.name, Type: s.value.DataType(), Offset: i * 16,
			})
		}
		root.Members = append(root.Members, pl)
	}
	d, err := descriptor.New(make([]byte, 16*len(stages)), root)
	if err != nil {
		t.Fatalf("descriptor.New() error = %v", err)
	}
	for _, s := range stages {
		d.Get("pipeline").Get(s.name).SetValue(s.value)
	}
	return d
}

func withFallbacks(g *gputest.Context) *gputest.Context {
	g.AddFunction(FlatVertex, gpu.StageVertex)
	g.AddFunction(PassthruFragment, gpu.StageFragment)
	return g
}

func inputTexture(t *testing.T, g *gputest.Context) gpu.Texture {
	t.Helper()
	tex, err := g.AllocateTexture(gpu.RenderTargetDescriptor("input 0", 64, 64))
	if err != nil {
		t.Fatal(err)
	}
	return tex
}

func TestBuildDefaultRenderPass(t *testing.T) {
	g := withFallbacks(gputest.New())
	graph, err := NewBuilder(g, nil).Build("plain", pipelineRoot(t, nil), canvas, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if graph.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", graph.Len())
	}
	rp, ok := graph.Passes[0].(*RenderPass)
	if !ok {
		t.Fatalf("pass 0 is %T, want *RenderPass", graph.Passes[0])
	}
	if !rp.IsFinal {
		t.Error("default render pass not final")
	}
	if rp.Topology != gputypes.PrimitiveTopologyTriangleStrip {
		t.Errorf("Topology = %v, want triangle strip", rp.Topology)
	}
	if rp.VertexCount != 4 || rp.InstanceCount != 1 {
		t.Errorf("counts = %d/%d, want 4/1", rp.VertexCount, rp.InstanceCount)
	}
	if rp.Vertex.Name() != FlatVertex || rp.Fragment.Name() != PassthruFragment {
		t.Errorf("functions = %s/%s, want fallbacks", rp.Vertex.Name(), rp.Fragment.Name())
	}
	if rp.Output.Width() != canvas.Width || rp.Output.Height() != canvas.Height {
		t.Errorf("output = %dx%d, want canvas size", rp.Output.Width(), rp.Output.Height())
	}
	if graph.Output() != rp.Output {
		t.Error("Graph.Output() is not the render output")
	}
}

func TestBuildDefaultRenderPassWithoutComputeBuffer(t *testing.T) {
	g := withFallbacks(gputest.New())
	g.AddKernel("plain______Kernel", nil, nil)
	graph, err := NewBuilder(g, nil).Build("plain", pipelineRoot(t, nil), canvas, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if graph.Len() != 2 {
		t.Fatalf("Len() = %d, want frame init + render", graph.Len())
	}
	frame, ok := graph.Passes[0].(*ComputePass)
	if !ok {
		t.Fatalf("pass 0 is %T, want *ComputePass", graph.Passes[0])
	}
	rp := graph.Passes[1].(*RenderPass)
	if rp.ComputeBuffer != nil {
		t.Error("default render pass reads the frame init compute buffer")
	}
	if graph.ComputeBuffer != frame.Buffer {
		t.Error("graph does not expose the frame init compute buffer")
	}
}

func TestBuildDefaultPrefersShaderFunctions(t *testing.T) {
	g := withFallbacks(gputest.New())
	g.AddFunction("plain______Vertex", gpu.StageVertex)
	graph, err := NewBuilder(g, nil).Build("plain", nil, canvas, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	rp := graph.Passes[0].(*RenderPass)
	if rp.Vertex.Name() != "plain______Vertex" || rp.Fragment.Name() != PassthruFragment {
		t.Errorf("functions = %s/%s", rp.Vertex.Name(), rp.Fragment.Name())
	}
}

func TestBuildDefaultWithoutFunctions(t *testing.T) {
	_, err := NewBuilder(gputest.New(), nil).Build("plain", nil, canvas, nil)
	if !errors.Is(err, ErrRenderPass) {
		t.Errorf("Build() error = %v, want ErrRenderPass", err)
	}
}

func TestBuildFilterThenRender(t *testing.T) {
	g := withFallbacks(gputest.New())
	g.AddFunction("blurA___Filter", gpu.StageFragment)
	g.AddFunction("lichen___main___Vertex", gpu.StageVertex)
	g.AddFunction("lichen___main___Fragment", gpu.StageFragment)
	in := inputTexture(t, g)

	root := pipelineRoot(t, []stage{
		{"blurA", descriptor.Int(0)},
		{"main", descriptor.Int4{3, 6, 1, 0}},
	})
	graph, err := NewBuilder(g, nil).Build("lichen", root, canvas, in)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if graph.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", graph.Len())
	}
	fp, ok := graph.Passes[0].(*FilterPass)
	if !ok {
		t.Fatalf("pass 0 is %T, want *FilterPass", graph.Passes[0])
	}
	rp, ok := graph.Passes[1].(*RenderPass)
	if !ok {
		t.Fatalf("pass 1 is %T, want *RenderPass", graph.Passes[1])
	}
	if fp.Input != in {
		t.Error("filter input is not input slot 0")
	}
	if rp.Input != fp.Output {
		t.Error("render input is not the filter output")
	}
	if fp.Final() || !rp.Final() {
		t.Errorf("final flags = %v/%v, want false/true", fp.Final(), rp.Final())
	}
	if rp.Topology != gputypes.PrimitiveTopologyTriangleList || rp.VertexCount != 6 {
		t.Errorf("render = %v/%d, want triangle list/6", rp.Topology, rp.VertexCount)
	}
	if rp.Vertex.Name() != "lichen___main___Vertex" {
		t.Errorf("vertex = %s", rp.Vertex.Name())
	}
}

func TestBuildMissingFilterSkipped(t *testing.T) {
	g := withFallbacks(gputest.New())
	in := inputTexture(t, g)
	root := pipelineRoot(t, []stage{
		{"blurA", descriptor.Int(0)},
		{"main", descriptor.Int4{4, 4, 1, 0}},
	})
	graph, err := NewBuilder(g, nil).Build("lichen", root, canvas, in)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if graph.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", graph.Len())
	}
	if rp := graph.Passes[0].(*RenderPass); rp.Input != in {
		t.Error("render input is not input slot 0 after skipped filter")
	}
}

func TestBuildFilterWithoutInputSkipped(t *testing.T) {
	g := withFallbacks(gputest.New())
	g.AddFunction("blurA___Filter", gpu.StageFragment)
	root := pipelineRoot(t, []stage{{"blurA", descriptor.Int(0)}})
	graph, err := NewBuilder(g, nil).Build("lichen", root, canvas, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if graph.Len() != 0 {
		t.Errorf("Len() = %d, want 0", graph.Len())
	}
}

func TestBuildInvalidTopology(t *testing.T) {
	g := withFallbacks(gputest.New())
	g.AddFunction("blurA___Filter", gpu.StageFragment)
	in := inputTexture(t, g)
	root := pipelineRoot(t, []stage{
		{"blurA", descriptor.Int(0)},
		{"main", descriptor.Int4{9, 4, 1, 0}},
	})
	graph, err := NewBuilder(g, nil).Build("lichen", root, canvas, in)
	if !errors.Is(err, ErrTopology) {
		t.Fatalf("Build() error = %v, want ErrTopology", err)
	}
	if graph != nil {
		t.Error("graph returned on failure")
	}
	for _, tex := range g.Textures[1:] {
		if !tex.Destroyed {
			t.Errorf("texture %q leaked by failed build", tex.Label())
		}
	}
	if g.Textures[0].Destroyed {
		t.Error("input texture destroyed by failed build")
	}
}

func TestBuildComputeStage(t *testing.T) {
	g := withFallbacks(gputest.New())
	layout := &gpu.ArgumentLayout{Arguments: []gpu.Argument{{
		Name: "computeBuffer", Index: gpu.ComputeBufferIndex,
		Layout: descriptor.Field{Name: "computeBuffer", Type: descriptor.DataTypeStruct, Size: 64},
	}}}
	g.AddKernel("lichen___sim___Kernel", layout, nil)
	g.AddKernel("lichen______Kernel", nil, nil)

	root := pipelineRoot(t, []stage{
		{"sim", descriptor.Int4{-1, 8, 4, 2}},
		{"main", descriptor.Int4{4, 4, 1, 0}},
	})
	graph, err := NewBuilder(g, nil).Build("lichen", root, canvas, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if graph.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", graph.Len())
	}
	frame := graph.Passes[0].(*ComputePass)
	if frame.Grid != [2]int{1, 1} || frame.Function.Name() != "lichen______Kernel" {
		t.Errorf("frame init pass = %+v", frame)
	}
	if frame.Buffer.Size() != DefaultComputeBufferSize {
		t.Errorf("frame buffer size = %d, want %d", frame.Buffer.Size(), DefaultComputeBufferSize)
	}
	sim := graph.Passes[1].(*ComputePass)
	if sim.Grid != [2]int{8, 4} || sim.Flags != 2 {
		t.Errorf("sim grid/flags = %v/%d, want [8 4]/2", sim.Grid, sim.Flags)
	}
	if sim.Buffer.Size() != 64 {
		t.Errorf("sim buffer size = %d, want 64", sim.Buffer.Size())
	}
	rp := graph.Passes[2].(*RenderPass)
	if rp.ComputeBuffer != sim.Buffer || graph.ComputeBuffer != sim.Buffer {
		t.Error("render pass does not read the latest compute buffer")
	}
}

func TestBuildMissingKernelAborts(t *testing.T) {
	g := withFallbacks(gputest.New())
	root := pipelineRoot(t, []stage{{"sim", descriptor.Int4{-1, 1, 1, 0}}})
	if _, err := NewBuilder(g, nil).Build("lichen", root, canvas, nil); !errors.Is(err, ErrComputePass) {
		t.Errorf("Build() error = %v, want ErrComputePass", err)
	}
}

func TestBuildRenderAllocationFailure(t *testing.T) {
	g := withFallbacks(gputest.New())
	g.FailAllocations("render output")
	_, err := NewBuilder(g, nil).Build("lichen", nil, canvas, nil)
	if !errors.Is(err, ErrRenderPass) || !errors.Is(err, gpu.ErrAllocation) {
		t.Fatalf("Build() error = %v, want ErrRenderPass wrapping ErrAllocation", err)
	}
	for _, tex := range g.Textures {
		if !tex.Destroyed {
			t.Errorf("texture %q leaked", tex.Label())
		}
	}
}

func TestBuildSkipsUnsupportedStage(t *testing.T) {
	g := withFallbacks(gputest.New())
	root := pipelineRoot(t, []stage{
		{"weights", descriptor.Float4{1, 2, 3, 4}},
		{"main", descriptor.Int4{4, 4, 1, 0}},
	})
	graph, err := NewBuilder(g, nil).Build("lichen", root, canvas, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if graph.Len() != 1 || !graph.Passes[0].Final() {
		t.Errorf("graph = %d passes, want one final render pass", graph.Len())
	}
}

func TestGraphRelease(t *testing.T) {
	g := withFallbacks(gputest.New())
	g.AddKernel("lichen______Kernel", nil, nil)
	graph, err := NewBuilder(g, nil).Build("lichen", nil, canvas, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	graph.Release()
	if graph.Len() != 0 {
		t.Errorf("Len() after Release = %d", graph.Len())
	}
	for _, b := range g.Buffers {
		if !b.Destroyed {
			t.Errorf("buffer %q not destroyed", b.Label())
		}
	}
	for _, tex := range g.Textures {
		if !tex.Destroyed {
			t.Errorf("texture %q not destroyed", tex.Label())
		}
	}
	var nilGraph *Graph
	nilGraph.Release()
}

func TestFunctionName(t *testing.T) {
	tests := []struct {
		shader, stage string
		role          Role
		want          string
	}{
		{"lichen", "", RoleInitializer, "lichenInitializeOptions"},
		{"lichen", "", RoleKernel, "lichen______Kernel"},
		{"lichen", "sim", RoleKernel, "lichen___sim___Kernel"},
		{"lichen", "main", RoleVertex, "lichen___main___Vertex"},
		{"lichen", "main", RoleFragment, "lichen___main___Fragment"},
		{"lichen", "blurA", RoleFilter, "blurA___Filter"},
	}
	for _, tt := range tests {
		if got := FunctionName(tt.shader, tt.stage, tt.role); got != tt.want {
			t.Errorf("FunctionName(%q, %q, %d) = %q, want %q", tt.shader, tt.stage, tt.role, got, tt.want)
		}
	}
}

func TestTopology(t *testing.T) {
	want := []gputypes.PrimitiveTopology{
		gputypes.PrimitiveTopologyPointList,
		gputypes.PrimitiveTopologyLineList,
		gputypes.PrimitiveTopologyLineStrip,
		gputypes.PrimitiveTopologyTriangleList,
		gputypes.PrimitiveTopologyTriangleStrip,
	}
	for code, w := range want {
		got, ok := Topology(int32(code))
		if !ok || got != w {
			t.Errorf("Topology(%d) = %v, %v, want %v", code, got, ok, w)
		}
	}
	for _, bad := range []int32{-1, 5, 100} {
		if _, ok := Topology(bad); ok {
			t.Errorf("Topology(%d) accepted", bad)
		}
	}
}
