// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package assets

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/mauserzjeh/dxt"
	"github.com/pierrec/lz4/v4"
)

// ErrTexFormat is returned for malformed or unsupported packed textures.
var ErrTexFormat = errors.New("assets: unsupported tex texture")

const texMagic = "TEXV0005"

// Pixel formats of a packed texture.
const (
	texRGBA8888 = 0
	texDXT5     = 4
	texDXT1     = 7
	texRG88     = 8
	texR8       = 9
)

// maxTexBytes bounds a single mip level's payload.
const maxTexBytes = 256 << 20

func init() {
	image.RegisterFormat("tex", texMagic, DecodeTex, DecodeTexConfig)
}

type texHeader struct {
	format     uint32
	width      int // visible size
	height     int
	container  string
	imageCount uint32
}

type texReader struct {
	r   *bufio.Reader
	err error
}

func (t *texReader) u32() uint32 {
	if t.err != nil {
		return 0
	}
	var b [4]byte
	_, t.err = io.ReadFull(t.r, b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// tag reads an 8 byte magic and its NUL terminator.
func (t *texReader) tag() string {
	if t.err != nil {
		return ""
	}
	var b [9]byte
	_, t.err = io.ReadFull(t.r, b[:])
	return string(bytes.TrimRight(b[:8], "\x00"))
}

func (t *texReader) header() (texHeader, error) {
	var h texHeader
	if m := t.tag(); t.err == nil && m != texMagic {
		return h, fmt.Errorf("%w: magic %q", ErrTexFormat, m)
	}
	t.tag() // TEXI0001
	h.format = t.u32()
	t.u32() // flags
	t.u32() // texture width
	t.u32() // texture height
	h.width = int(t.u32())
	h.height = int(t.u32())
	t.u32()
	h.container = t.tag()
	h.imageCount = t.u32()
	if h.container == "TEXB0003" {
		t.u32() // source image format
	}
	if t.err != nil {
		return h, fmt.Errorf("%w: header: %w", ErrTexFormat, t.err)
	}
	return h, nil
}

// DecodeTexConfig returns the visible size of a packed texture.
func DecodeTexConfig(r io.Reader) (image.Config, error) {
	t := &texReader{r: bufio.NewReader(r)}
	h, err := t.header()
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: h.width, Height: h.height}, nil
}

// DecodeTex decodes the first mip level of the first image in a packed
// TEXV0005 texture. Payloads may be LZ4 block compressed; pixel data is
// RGBA8888, DXT1, DXT5, RG88 or R8.
func DecodeTex(r io.Reader) (image.Image, error) {
	t := &texReader{r: bufio.NewReader(r)}
	h, err := t.header()
	if err != nil {
		return nil, err
	}
	if h.imageCount == 0 || t.u32() == 0 { // mipmap count of image 0
		return nil, fmt.Errorf("%w: no image", ErrTexFormat)
	}

	mw, mh := t.u32(), t.u32()
	var compressed bool
	var rawSize uint32
	if h.container != "TEXB0001" {
		compressed = t.u32() == 1
		rawSize = t.u32()
	}
	size := t.u32()
	if t.err != nil {
		return nil, fmt.Errorf("%w: mip header: %w", ErrTexFormat, t.err)
	}
	if mw == 0 || mh == 0 || uint64(mw)*uint64(mh)*4 > maxTexBytes {
		return nil, fmt.Errorf("%w: mip of %dx%d", ErrTexFormat, mw, mh)
	}
	if size > maxTexBytes || rawSize > maxTexBytes {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrTexFormat, max(size, rawSize))
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(t.r, data); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrTexFormat, err)
	}
	if compressed {
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrTexFormat, err)
		}
		data = out[:n]
	}

	pix, err := texPixels(h.format, data, mw, mh)
	if err != nil {
		return nil, err
	}
	img := &image.RGBA{
		Pix:    pix,
		Stride: int(mw) * 4,
		Rect:   image.Rect(0, 0, int(mw), int(mh)),
	}
	if h.width > 0 && h.height > 0 && (h.width < int(mw) || h.height < int(mh)) {
		return img.SubImage(image.Rect(0, 0, h.width, h.height)), nil
	}
	return img, nil
}

// texPixels expands data in the given format to RGBA8.
func texPixels(format uint32, data []byte, w, h uint32) ([]byte, error) {
	n := int(w) * int(h)
	blocks := int((w+3)/4) * int((h+3)/4)
	switch format {
	case texRGBA8888:
		if len(data) < n*4 {
			break
		}
		return data[:n*4], nil
	case texDXT1:
		if len(data) < blocks*8 {
			break
		}
		return dxt.DecodeDXT1(data, uint(w), uint(h))
	case texDXT5:
		if len(data) < blocks*16 {
			break
		}
		return dxt.DecodeDXT5(data, uint(w), uint(h))
	case texRG88:
		if len(data) < n*2 {
			break
		}
		pix := make([]byte, n*4)
		for i := range n {
			l, a := data[i*2], data[i*2+1]
			pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = l, l, l, a
		}
		return pix, nil
	case texR8:
		if len(data) < n {
			break
		}
		pix := make([]byte, n*4)
		for i := range n {
			v := data[i]
			pix[i*4], pix[i*4+1], pix[i*4+2], pix[i*4+3] = v, v, v, 0xff
		}
		return pix, nil
	default:
		return nil, fmt.Errorf("%w: pixel format %d", ErrTexFormat, format)
	}
	return nil, fmt.Errorf("%w: %d bytes for %dx%d format %d", ErrTexFormat, len(data), w, h, format)
}
