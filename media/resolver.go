// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/image/draw"

	"github.com/gogpu/tinker/descriptor"
	"github.com/gogpu/tinker/gpu"
	"github.com/gogpu/tinker/internal/parallel"
)

// ThumbnailSize bounds the larger side of a published thumbnail.
const ThumbnailSize = 128

// Config configures a Resolver. Only GPU is required.
type Config struct {
	GPU       gpu.Context
	Locator   Locator
	Presenter Presenter

	// Dispatch runs thumbnail publication. Defaults to a new goroutine
	// per thumbnail.
	Dispatch Dispatcher

	// Capabilities creates media registrations. Defaults to Register.
	Capabilities CapabilityFactory

	// Workers bounds concurrent texture decoding. Zero means GOMAXPROCS.
	Workers int

	Logger *slog.Logger
}

// Resolver turns a shader's media references into textures and
// capability registrations.
//
// One mutex guards the name and registration lists together; accessors
// return copies, so readers never see a list mid-replacement.
type Resolver struct {
	gpu       gpu.Context
	locator   Locator
	presenter Presenter
	dispatch  Dispatcher
	factory   CapabilityFactory
	workers   int
	log       *slog.Logger

	mu           sync.Mutex
	textureNames []string
	cubeNames    []string
	cubes        []Handle
	videos       []Capability
	music        []Capability
	webcam       Capability
	inputs       [gpu.NumberOfTextures]gpu.Texture
}

// NewResolver returns a resolver with empty lists.
func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		gpu:       cfg.GPU,
		locator:   cfg.Locator,
		presenter: cfg.Presenter,
		dispatch:  cfg.Dispatch,
		factory:   cfg.Capabilities,
		workers:   cfg.Workers,
		log:       cfg.Logger,
	}
	if r.dispatch == nil {
		r.dispatch = func(f func()) { go f() }
	}
	if r.factory == nil {
		r.factory = Register
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	if r.log == nil {
		r.log = slog.New(slog.DiscardHandler)
	}
	return r
}

// Resolve reads the media arrays of root and replaces the resolver's
// state. Textures are processed first, then videos, music, the
// microphone, the webcam and cubes. Music precedes the microphone flag
// because the microphone registers into the music list.
//
// Registrations left over from an earlier Resolve are dropped without
// being stopped; call Purge first to end them.
//
// ctx only bounds texture loading: once it is done the remaining slots
// stay empty.
func (r *Resolver) Resolve(ctx context.Context, shader string, root *descriptor.Descriptor) {
	log := r.log.With("shader", shader)

	names := stringArray(root, "textures")
	slots := r.loadTextures(ctx, log, names)

	videos := r.register(log, root, "videos", KindVideo)
	music := r.register(log, root, "music", KindMusic)
	if root.Get("microphone") != nil {
		if c := r.capability(log, Reference{Name: "microphone", Kind: KindMicrophone}, nil); c != nil {
			music = append(music, c)
		}
	}
	var webcam Capability
	if root.Get("webcam") != nil {
		webcam = r.capability(log, Reference{Name: "webcam", Kind: KindWebcam}, nil)
	}

	var cubeNames []string
	var cubes []Handle
	for _, n := range stringArray(root, "cubes") {
		h, ok := r.locate(n, KindCube)
		if !ok {
			log.Warn("media: cube not found", "cube", n)
			continue
		}
		cubeNames = append(cubeNames, n)
		cubes = append(cubes, h)
	}

	r.mu.Lock()
	old := r.inputs
	r.inputs = slots
	r.textureNames = names
	r.videos = videos
	r.music = music
	r.webcam = webcam
	r.cubeNames = cubeNames
	r.cubes = cubes
	r.mu.Unlock()
	destroyTextures(old)

	log.Debug("media: resolved",
		"textures", len(names), "videos", len(videos), "music", len(music),
		"webcam", webcam != nil, "cubes", len(cubeNames))
}

func (r *Resolver) locate(name string, kind Kind) (Handle, bool) {
	if r.locator == nil {
		return nil, false
	}
	return r.locator.Resolve(name, kind)
}

func (r *Resolver) register(log *slog.Logger, root *descriptor.Descriptor, field string, kind Kind) []Capability {
	var out []Capability
	for _, n := range stringArray(root, field) {
		h, ok := r.locate(n, kind)
		if !ok {
			log.Warn("media: asset not found", "kind", kind, "name", n)
			continue
		}
		if c := r.capability(log, Reference{Name: n, Kind: kind}, h); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (r *Resolver) capability(log *slog.Logger, ref Reference, h Handle) Capability {
	c, err := r.factory(ref, h)
	if err != nil {
		log.Warn("media: capability unavailable", "kind", ref.Kind, "name", ref.Name, "err", err)
		return nil
	}
	return c
}

// loadTextures fills the input slots positionally. Names beyond the slot
// count are ignored and a failed load leaves its slot nil. Images are
// decoded on a worker pool, then uploaded in slot order.
func (r *Resolver) loadTextures(ctx context.Context, log *slog.Logger, names []string) [gpu.NumberOfTextures]gpu.Texture {
	if len(names) > gpu.NumberOfTextures {
		for _, n := range names[gpu.NumberOfTextures:] {
			log.Warn("media: too many textures", "texture", n, "slots", gpu.NumberOfTextures)
		}
		names = names[:gpu.NumberOfTextures]
	}

	images := make([]image.Image, len(names))
	errs := make([]error, len(names))
	if len(names) > 0 {
		pool := parallel.NewWorkerPool(min(r.workers, len(names)))
		pool.Map(len(names), func(i int) {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			images[i], errs[i] = r.decodeTexture(names[i])
		})
		pool.Close()
	}

	var slots [gpu.NumberOfTextures]gpu.Texture
	for i, n := range names {
		if err := errs[i]; err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				log.Warn("media: texture loading interrupted", "texture", n, "err", err)
				continue
			}
			log.Error("media: failed to load texture", "texture", n, "err", err)
			continue
		}
		tex, err := r.gpu.UploadTexture(fmt.Sprintf("input texture %d (%s)", i, n), images[i])
		if err != nil {
			log.Error("media: failed to load texture", "texture", n, "err", fmt.Errorf("media: upload %q: %w", n, err))
			continue
		}
		slots[i] = tex
		if r.presenter != nil {
			index, thumb := i, Thumbnail(images[i], ThumbnailSize)
			r.dispatch(func() { r.presenter.PublishThumbnail(index, thumb) })
		}
	}

	return slots
}

func (r *Resolver) decodeTexture(name string) (img image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("media: decode %q: %v", name, p)
		}
	}()
	h, ok := r.locate(name, KindTexture)
	if !ok {
		return nil, fmt.Errorf("media: texture %q not found", name)
	}
	ih, ok := h.(ImageHandle)
	if !ok {
		return nil, fmt.Errorf("media: texture %q is not an image", name)
	}
	img, err = ih.Image()
	if err != nil {
		return nil, fmt.Errorf("media: decode %q: %w", name, err)
	}
	return img, nil
}

// Thumbnail scales img so that neither side exceeds size. Images already
// small enough are returned unchanged.
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}
	if w >= h {
		h = max(1, h*size/w)
		w = size
	} else {
		w = max(1, w*size/h)
		h = size
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// stringArray returns the non-empty strings in root's array field.
func stringArray(root *descriptor.Descriptor, field string) []string {
	elems, ok := root.StructArray(field)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range elems {
		if s, ok := e.String(); ok {
			out = append(out, s)
		}
	}
	return out
}

// TextureNames returns the texture names in slot order.
func (r *Resolver) TextureNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.textureNames)
}

// CubeNames returns the names of the resolved cube maps.
func (r *Resolver) CubeNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.cubeNames)
}

// Cubes returns the located cube map assets in CubeNames order.
func (r *Resolver) Cubes() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.cubes)
}

// Videos returns the registered video capabilities.
func (r *Resolver) Videos() []Capability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.videos)
}

// Music returns the registered audio capabilities, the microphone included.
func (r *Resolver) Music() []Capability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.music)
}

// Webcam returns the webcam registration, or nil.
func (r *Resolver) Webcam() Capability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.webcam
}

// InputTextures returns the input texture slots. Unresolved slots are nil.
func (r *Resolver) InputTextures() []gpu.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.inputs[:])
}

// Textures returns the texture names and the input slots from the same
// Resolve.
func (r *Resolver) Textures() ([]string, []gpu.Texture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.textureNames), slices.Clone(r.inputs[:])
}

// Purge stops every video, music and webcam registration once and empties
// the registries. It is safe to call with nothing registered.
func (r *Resolver) Purge() {
	r.mu.Lock()
	videos, music, webcam := r.videos, r.music, r.webcam
	r.videos, r.music, r.webcam = nil, nil, nil
	r.mu.Unlock()

	for _, c := range videos {
		c.Stop()
	}
	for _, c := range music {
		c.Stop()
	}
	if webcam != nil {
		webcam.Stop()
	}
}

// Release destroys the uploaded input textures.
func (r *Resolver) Release() {
	r.mu.Lock()
	old := r.inputs
	r.inputs = [gpu.NumberOfTextures]gpu.Texture{}
	r.mu.Unlock()
	destroyTextures(old)
}

func destroyTextures(slots [gpu.NumberOfTextures]gpu.Texture) {
	for _, t := range slots {
		if t != nil {
			t.Destroy()
		}
	}
}
