// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tinker/gpu"
	"github.com/gogpu/tinker/internal/cache"
)

// pipelineCacheSize bounds the number of compiled compute pipelines kept
// alive per device.
const pipelineCacheSize = 32

// Device is a gpu.Context backed by a HAL device and a WGSL library.
type Device struct {
	device hal.Device
	queue  hal.Queue
	log    *slog.Logger

	// instance is set when the Device opened the adapter itself.
	instance hal.Instance

	functions map[string]*function

	mu        sync.Mutex // serialises compilation, dispatch and Close
	pipelines *cache.Cache[string, *computeState]
	closed    bool
}

var _ gpu.Context = (*Device)(nil)

// function is an entry point of a library source.
type function struct {
	owner  *Device
	name   string
	stage  gpu.Stage
	source *source
}

func (f *function) Name() string     { return f.name }
func (f *function) Stage() gpu.Stage { return f.stage }

// New creates a Device on an existing HAL device and queue. sources maps
// file names to WGSL text; every entry point of every source becomes a
// function. Entry point names must be unique across the library.
func New(device hal.Device, queue hal.Queue, sources map[string]string, log *slog.Logger) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	functions, err := loadLibrary(sources, orDiscard(log))
	if err != nil {
		return nil, err
	}
	d := &Device{
		device:    device,
		queue:     queue,
		log:       orDiscard(log),
		functions: functions,
	}
	for _, f := range functions {
		f.owner = d
	}
	d.pipelines = cache.New(pipelineCacheSize, func(_ string, s *computeState) {
		s.destroy(d.device)
	})
	d.log.Info("native: library loaded", "sources", len(sources), "functions", len(functions))
	return d, nil
}

// NewFromProvider creates a Device sharing the host application's GPU.
// The provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func NewFromProvider(provider gpu.DeviceHandle, sources map[string]string, log *slog.Logger) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProvider)
	}
	return New(device, queue, sources, log)
}

// Open opens the first discrete or integrated Vulkan adapter and creates a
// Device on it. The Device owns the adapter and releases it on Close.
func Open(sources map[string]string, log *slog.Logger) (*Device, error) {
	log = orDiscard(log)
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoGPU)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoGPU
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}
	log.Info("native: adapter opened", "adapter", selected.Info.Name)

	d, err := New(openDev.Device, openDev.Queue, sources, log)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	return d, nil
}

// Close releases cached pipelines and, for a Device created by Open, the
// device itself. Resources allocated from the Device must be destroyed
// first. Close is idempotent.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.pipelines.Clear()
	if d.instance != nil {
		d.device.Destroy()
		d.instance.Destroy()
		d.instance = nil
	}
}

// Functions returns the names of all entry points, sorted.
func (d *Device) Functions() []string {
	names := make([]string, 0, len(d.functions))
	for name := range d.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindFunction implements gpu.Context.
func (d *Device) FindFunction(name string) (gpu.Function, bool) {
	f, ok := d.functions[name]
	if !ok {
		return nil, false
	}
	return f, true
}

// ReflectArgumentLayout implements gpu.Context.
func (d *Device) ReflectArgumentLayout(fn gpu.Function) (*gpu.ArgumentLayout, error) {
	f, err := d.own(fn)
	if err != nil {
		return nil, err
	}
	return layoutOf(f.source), nil
}

func (d *Device) own(fn gpu.Function) (*function, error) {
	f, ok := fn.(*function)
	if !ok || f.owner != d {
		return nil, fmt.Errorf("%w: function %q", ErrForeignResource, fn.Name())
	}
	return f, nil
}

func layoutOf(s *source) *gpu.ArgumentLayout {
	l := &gpu.ArgumentLayout{Arguments: make([]gpu.Argument, len(s.layout))}
	for i, a := range s.layout {
		l.Arguments[i] = a.Argument
	}
	return l
}

// loadLibrary parses every source and indexes its entry points.
func loadLibrary(sources map[string]string, log *slog.Logger) (map[string]*function, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	functions := make(map[string]*function)
	for _, name := range names {
		src, err := parseSource(name, sources[name])
		if err != nil {
			return nil, err
		}
		src.layout = reflectArguments(src.module, log.With("source", name))
		for _, ep := range src.module.EntryPoints {
			if prev, dup := functions[ep.Name]; dup {
				return nil, fmt.Errorf("%w: entry point %q defined in %s and %s",
					ErrCompile, ep.Name, prev.source.name, name)
			}
			functions[ep.Name] = &function{
				name:   ep.Name,
				stage:  stageOf(ep.Stage),
				source: src,
			}
			log.Debug("native: entry point", "function", ep.Name, "source", name)
		}
	}
	return functions, nil
}

func stageOf(s ir.ShaderStage) gpu.Stage {
	switch s {
	case ir.StageVertex:
		return gpu.StageVertex
	case ir.StageFragment:
		return gpu.StageFragment
	}
	return gpu.StageCompute
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return log
}
