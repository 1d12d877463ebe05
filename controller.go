// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tinker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/tinker/config"
	"github.com/gogpu/tinker/descriptor"
	"github.com/gogpu/tinker/gpu"
	"github.com/gogpu/tinker/media"
	"github.com/gogpu/tinker/options"
	"github.com/gogpu/tinker/pipeline"
)

// Activation errors.
var (
	// ErrNoInitializer is returned when the shader has no initializer function.
	ErrNoInitializer = errors.New("tinker: initializer function not found")

	// ErrInitializerFailed is returned when the initializer's buffers cannot
	// be created or its dispatch fails.
	ErrInitializerFailed = errors.New("tinker: initializer failed")
)

// KBuffName is the argument of the initializer that receives the defaults.
const KBuffName = "kbuff"

// emptyKBuffSize is the size of the placeholder defaults buffer bound when
// the initializer declares no kbuff argument.
const emptyKBuffSize = 8

// DefaultClearColor is the clear color of a shader without a clearColor field.
var DefaultClearColor = descriptor.Float4{0.16, 0.17, 0.19, 1}

// Controller holds the reflected configuration of one shader.
//
// Activate, SetupPipelines, ResetTarget and Close are serialised against
// each other. Accessors are safe for concurrent use. Per-frame rendering
// that reads Graph must be synchronised with SetupPipelines by the caller.
type Controller struct {
	shader string
	gpu    gpu.Context
	store  config.Store
	log    *slog.Logger

	binder   *options.Binder
	resolver *media.Resolver
	builder  *pipeline.Builder

	op sync.Mutex // serialises state transitions

	mu         sync.Mutex
	root       *descriptor.Descriptor
	defaults   gpu.Buffer
	uniforms   gpu.Buffer
	clearColor descriptor.Float4
	options    []options.Option
	optionsSet bool
	graph      *pipeline.Graph
}

// New creates a controller for shader on g. Options are persisted in
// store.
func New(shader string, g gpu.Context, store config.Store, opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.With("shader", shader)
	mc := o.media
	mc.GPU = g
	mc.Logger = o.logger
	return &Controller{
		shader:     shader,
		gpu:        g,
		store:      store,
		log:        log,
		binder:     options.NewBinder(store, o.logger),
		resolver:   media.NewResolver(mc),
		builder:    pipeline.NewBuilder(g, o.logger),
		clearColor: DefaultClearColor,
	}
}

// Shader returns the shader name.
func (c *Controller) Shader() string { return c.shader }

// Activate runs the shader's initializer and configures the controller
// from the defaults it writes:
//
//  1. media registrations of a previous activation are purged;
//  2. the initializer runs once on a 1×1 grid with the uniform buffer at
//     binding 0 and kbuff at binding 3, blocking until the GPU is done;
//  3. media references are resolved and textures uploaded;
//  4. options are reconciled with the store and written back;
//  5. the clear color is read;
//  6. the pass graph is built for size.
//
// An initializer without a kbuff argument gets a small empty buffer and
// steps 3 to 5 are skipped. A missing or failing initializer leaves the
// controller without a descriptor or graph. A graph build failure is returned after
// the descriptor has been published; the previous graph stays in place.
func (c *Controller) Activate(ctx context.Context, size gpu.Size) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.resolver.Purge()

	root, defaults, uniforms, err := c.initialize(ctx)
	if err != nil {
		c.swapState(nil, nil, nil, DefaultClearColor)
		c.resetTarget()
		c.log.Error("tinker: activation failed", "err", err)
		return err
	}

	clear := DefaultClearColor
	if root != nil {
		c.resolver.Resolve(ctx, c.shader, root)
		c.binder.Bind(c.shader, root.Get("options"))
		if err := defaults.Flush(); err != nil {
			c.log.Warn("tinker: flush defaults", "err", err)
		}
		if cc, ok := descriptor.ValueOf[descriptor.Float4](root.Get("clearColor")); ok {
			clear = cc
		}
	}
	c.swapState(root, defaults, uniforms, clear)
	c.log.Info("tinker: activated", "descriptor", root != nil)

	return c.setupPipelines(size)
}

// initialize allocates the initializer's buffers and runs it. root is nil
// when the initializer has no kbuff argument.
func (c *Controller) initialize(ctx context.Context) (root *descriptor.Descriptor, defaults, uniforms gpu.Buffer, err error) {
	name := pipeline.FunctionName(c.shader, "", pipeline.RoleInitializer)
	fn, ok := c.gpu.FindFunction(name)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrNoInitializer, name)
	}
	layout, err := c.gpu.ReflectArgumentLayout(fn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: reflect %s: %w", ErrInitializerFailed, name, err)
	}

	uniforms, err = c.gpu.AllocateBuffer(c.shader+".uniforms", gpu.UniformSize, gpu.StorageShared)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrInitializerFailed, err)
	}
	arg, hasKBuff := layout.Argument(KBuffName)
	size := arg.Layout.Size
	if !hasKBuff || size <= 0 {
		c.log.Warn("tinker: initializer has no kbuff argument", "function", name)
		size = emptyKBuffSize
	}
	defaults, err = c.gpu.AllocateBuffer(c.shader+"."+KBuffName, size, gpu.StorageShared)
	if err != nil {
		uniforms.Destroy()
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrInitializerFailed, err)
	}

	release := func() {
		uniforms.Destroy()
		defaults.Destroy()
	}
	bindings := []gpu.Binding{
		{Index: gpu.UniformIndex, Buffer: uniforms},
		{Index: gpu.KBuffIndex, Buffer: defaults},
	}
	if err := c.gpu.DispatchAndWait(ctx, fn, bindings); err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrInitializerFailed, err)
	}
	if !hasKBuff || arg.Layout.Size <= 0 {
		return nil, defaults, uniforms, nil
	}

	root, err = descriptor.New(defaults.Contents(), arg.Layout)
	if err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrInitializerFailed, err)
	}
	c.log.Debug("tinker: initializer ran", "function", name, "kbuff", size)
	return root, defaults, uniforms, nil
}

// swapState publishes a new activation and destroys the previous buffers.
func (c *Controller) swapState(root *descriptor.Descriptor, defaults, uniforms gpu.Buffer, clear descriptor.Float4) {
	c.mu.Lock()
	oldDefaults, oldUniforms := c.defaults, c.uniforms
	c.root = root
	c.defaults = defaults
	c.uniforms = uniforms
	c.clearColor = clear
	c.options = nil
	c.optionsSet = false
	c.mu.Unlock()

	if oldDefaults != nil {
		oldDefaults.Destroy()
	}
	if oldUniforms != nil {
		oldUniforms.Destroy()
	}
}

// Descriptor returns the reflected defaults tree, or nil before a
// successful activation or when the initializer has no kbuff argument.
func (c *Controller) Descriptor() *descriptor.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.root
}

// DefaultsBuffer returns the kbuff buffer of the current activation.
func (c *Controller) DefaultsBuffer() gpu.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaults
}

// UniformBuffer returns the per-frame uniform buffer.
func (c *Controller) UniformBuffer() gpu.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uniforms
}

// ClearColor returns the shader's clear color, or DefaultClearColor.
func (c *Controller) ClearColor() descriptor.Float4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearColor
}

// Options returns the presentable option list. It is computed on first
// use after an activation and cached until the next activation or
// InvalidateOptions.
func (c *Controller) Options() []options.Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.optionsSet {
		c.options = c.binder.Describe(c.shader, c.root.Get("options"))
		c.optionsSet = true
	}
	return c.options
}

// InvalidateOptions drops the cached option list.
func (c *Controller) InvalidateOptions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = nil
	c.optionsSet = false
}

// SetupPipelines rebuilds the pass graph for a canvas of size. The new
// graph is published only once fully built; the previous one is then
// released. On failure the previous graph stays in place.
func (c *Controller) SetupPipelines(size gpu.Size) error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.setupPipelines(size)
}

func (c *Controller) setupPipelines(size gpu.Size) error {
	var input gpu.Texture
	if inputs := c.resolver.InputTextures(); len(inputs) > 0 {
		input = inputs[0]
	}
	g, err := c.builder.Build(c.shader, c.Descriptor(), size, input)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.graph
	c.graph = g
	c.mu.Unlock()
	old.Release()
	return nil
}

// ResetTarget releases the published graph. Graph returns nil until the
// next SetupPipelines.
func (c *Controller) ResetTarget() {
	c.op.Lock()
	defer c.op.Unlock()
	c.resetTarget()
}

func (c *Controller) resetTarget() {
	c.mu.Lock()
	old := c.graph
	c.graph = nil
	c.mu.Unlock()
	old.Release()
}

// Graph returns the published pass graph, or nil.
func (c *Controller) Graph() *pipeline.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph
}

// TextureNames returns the texture names of the current activation.
func (c *Controller) TextureNames() []string { return c.resolver.TextureNames() }

// CubeNames returns the resolved cube map names.
func (c *Controller) CubeNames() []string { return c.resolver.CubeNames() }

// Videos returns the registered video inputs.
func (c *Controller) Videos() []media.Capability { return c.resolver.Videos() }

// Music returns the registered audio inputs, microphone included.
func (c *Controller) Music() []media.Capability { return c.resolver.Music() }

// Webcam returns the webcam registration, or nil.
func (c *Controller) Webcam() media.Capability { return c.resolver.Webcam() }

// InputTextures returns the input texture slots.
func (c *Controller) InputTextures() []gpu.Texture { return c.resolver.InputTextures() }

// Purge stops every video, music and webcam registration.
func (c *Controller) Purge() { c.resolver.Purge() }

// Close purges media and releases every GPU resource the controller owns.
func (c *Controller) Close() {
	c.op.Lock()
	defer c.op.Unlock()
	c.resolver.Purge()
	c.resolver.Release()
	c.mu.Lock()
	old := c.graph
	c.graph = nil
	c.mu.Unlock()
	old.Release()
	c.swapState(nil, nil, nil, DefaultClearColor)
}
