// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"

	"github.com/gogpu/tinker/gpu"
)

// buffer is a HAL buffer with a host shadow.
type buffer struct {
	owner  *Device
	label  string
	size   int
	padded int // HAL buffer size, size rounded up to a multiple of 4
	buf    hal.Buffer

	// shadow is nil for private buffers; otherwise it has padded bytes.
	shadow []byte

	once sync.Once
}

var _ gpu.Buffer = (*buffer)(nil)

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() int     { return b.size }

func (b *buffer) Contents() []byte {
	if b.shadow == nil {
		return nil
	}
	return b.shadow[:b.size]
}

// Flush writes the shadow to the device.
func (b *buffer) Flush() error {
	if b.shadow == nil {
		return nil
	}
	b.owner.queue.WriteBuffer(b.buf, 0, b.shadow)
	return nil
}

func (b *buffer) Destroy() {
	b.once.Do(func() { b.owner.device.DestroyBuffer(b.buf) })
}

// AllocateBuffer implements gpu.Context.
func (d *Device) AllocateBuffer(label string, size int, mode gpu.StorageMode) (gpu.Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: buffer %q: size %d", gpu.ErrAllocation, label, size)
	}
	padded := roundUp(4, size)
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(padded),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageUniform |
			gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.log.Error("native: buffer creation failed", "buffer", label, "size", size, "err", err)
		return nil, fmt.Errorf("%w: buffer %q: %w", gpu.ErrAllocation, label, err)
	}
	b := &buffer{owner: d, label: label, size: size, padded: padded, buf: buf}
	if mode != gpu.StoragePrivate {
		b.shadow = make([]byte, padded)
	}
	// Device memory is not guaranteed to be zeroed.
	d.queue.WriteBuffer(buf, 0, make([]byte, padded))
	return b, nil
}

// texture is a HAL texture.
type texture struct {
	owner  *Device
	label  string
	tex    hal.Texture
	width  uint32
	height uint32
	format gputypes.TextureFormat

	once sync.Once
}

var _ gpu.Texture = (*texture)(nil)

func (t *texture) Label() string                  { return t.label }
func (t *texture) Width() uint32                  { return t.width }
func (t *texture) Height() uint32                 { return t.height }
func (t *texture) Format() gputypes.TextureFormat { return t.format }

func (t *texture) Destroy() {
	t.once.Do(func() { t.owner.device.DestroyTexture(t.tex) })
}

// AllocateTexture implements gpu.Context.
func (d *Device) AllocateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: texture %q: size %dx%d", gpu.ErrAllocation, desc.Label, desc.Width, desc.Height)
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		d.log.Error("native: texture creation failed", "texture", desc.Label, "err", err)
		return nil, fmt.Errorf("%w: texture %q: %w", gpu.ErrAllocation, desc.Label, err)
	}
	return &texture{
		owner:  d,
		label:  desc.Label,
		tex:    tex,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}, nil
}

// UploadTexture implements gpu.Context. The image is converted to RGBA8.
func (d *Device) UploadTexture(label string, img image.Image) (gpu.Texture, error) {
	rgba := toRGBA(img)
	w, h := uint32(rgba.Rect.Dx()), uint32(rgba.Rect.Dy()) //nolint:gosec // image bounds are non-negative
	t, err := d.AllocateTexture(gpu.TextureDescriptor{
		Label:  label,
		Width:  w,
		Height: h,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.(*texture).tex, MipLevel: 0},
		rgba.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return t, nil
}

// toRGBA returns img as a tightly packed RGBA image with origin (0, 0).
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}
