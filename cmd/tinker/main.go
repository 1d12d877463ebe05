// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command tinker activates a shader from a WGSL library and prints what
// its initializer declares: options, media and the pass graph.
//
// Usage:
//
//	tinker -shader plasma -wgsl ./shaders [-backend native] [-assets ./assets] [-prefs prefs.json]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/tinker"
	"github.com/gogpu/tinker/assets"
	"github.com/gogpu/tinker/backend"
	_ "github.com/gogpu/tinker/backend/native"
	"github.com/gogpu/tinker/config"
	"github.com/gogpu/tinker/descriptor"
	"github.com/gogpu/tinker/gpu"
	"github.com/gogpu/tinker/pipeline"
)

func main() {
	var (
		shader  = flag.String("shader", "", "shader name")
		gpuName = flag.String("backend", "", "GPU backend (default: best available)")
		wgslDir = flag.String("wgsl", ".", "directory of .wgsl sources")
		assetsD = flag.String("assets", "", "asset directory (textures/, cubes/, videos/, music/)")
		prefs   = flag.String("prefs", "", "preferences file (JSON)")
		width   = flag.Uint("width", 800, "canvas width")
		height  = flag.Uint("height", 600, "canvas height")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *shader == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		tinker.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	sources, err := loadSources(*wgslDir)
	if err != nil {
		log.Fatalf("Failed to load shaders: %v", err)
	}
	var dev backend.Device
	if *gpuName == "" {
		dev, err = backend.Default(sources, tinker.Logger())
	} else {
		dev, err = backend.Open(*gpuName, sources, tinker.Logger())
	}
	if err != nil {
		log.Fatalf("Failed to open GPU: %v", err)
	}
	defer dev.Close()

	var store config.Store = config.NewMemoryStore(nil)
	var file *config.FileStore
	if *prefs != "" {
		file = config.NewFileStore(*prefs)
		if err := file.Load(); err != nil {
			log.Fatalf("Failed to load preferences: %v", err)
		}
		store = file
	}

	var opts []tinker.Option
	if *assetsD != "" {
		opts = append(opts, tinker.WithLocator(assets.NewLocator(os.DirFS(*assetsD))))
	}
	c := tinker.New(*shader, dev, store, opts...)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	size := gpu.Size{Width: uint32(*width), Height: uint32(*height)} //nolint:gosec // flag values are small
	if err := c.Activate(ctx, size); err != nil {
		log.Fatalf("Failed to activate %s: %v", *shader, err)
	}

	report(os.Stdout, c)

	if file != nil {
		if err := file.Save(); err != nil {
			log.Fatalf("Failed to save preferences: %v", err)
		}
	}
}

// loadSources reads every .wgsl file in dir.
func loadSources(dir string) (map[string]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.wgsl"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .wgsl files in %s", dir)
	}
	sources := make(map[string]string, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		sources[filepath.Base(p)] = string(b)
	}
	return sources, nil
}

func report(w io.Writer, c *tinker.Controller) {
	fmt.Fprintf(w, "shader %s\n", c.Shader())
	fmt.Fprintf(w, "clear color %v\n", c.ClearColor())

	fmt.Fprintln(w, "\noptions:")
	for _, o := range c.Options() {
		fmt.Fprintf(w, "  %-24s %-12s %s", o.Label, o.Kind, o.PersistenceKey)
		if len(o.Choices) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(o.Choices, " | "))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nmedia:")
	fmt.Fprintf(w, "  textures %v\n", c.TextureNames())
	fmt.Fprintf(w, "  cubes    %v\n", c.CubeNames())
	fmt.Fprintf(w, "  videos   %d\n", len(c.Videos()))
	fmt.Fprintf(w, "  music    %d\n", len(c.Music()))
	fmt.Fprintf(w, "  webcam   %t\n", c.Webcam() != nil)

	fmt.Fprintln(w, "\npasses:")
	if g := c.Graph(); g != nil {
		for i, p := range g.Passes {
			fmt.Fprintf(w, "  %d %-8s %s%s\n", i, p.Kind(), p.Label(), passDetail(p))
		}
	}

	if root := c.Descriptor(); root != nil {
		fmt.Fprintln(w, "\ndefaults:")
		root.Walk(func(path string, n *descriptor.Descriptor) bool {
			if !n.IsStruct() {
				fmt.Fprintf(w, "  %-32s %-7s %v\n", path, n.DataType(), n.Value())
			}
			return true
		})
	}
}

func passDetail(p pipeline.Pass) string {
	switch p := p.(type) {
	case *pipeline.ComputePass:
		return fmt.Sprintf(" fn=%s grid=%dx%d", p.Function.Name(), p.Grid[0], p.Grid[1])
	case *pipeline.FilterPass:
		return fmt.Sprintf(" fn=%s", p.Function.Name())
	case *pipeline.RenderPass:
		s := fmt.Sprintf(" vertex=%s fragment=%s topology=%v vertices=%d",
			p.Vertex.Name(), p.Fragment.Name(), p.Topology, p.VertexCount)
		if p.IsFinal {
			s += " final"
		}
		return s
	}
	return ""
}
