// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package assets locates shader media in a file system and decodes images.
//
// Assets live in one directory per kind:
//
//	textures/  cubes/  videos/  music/
//
// Image decoding covers the standard library formats, BMP, TIFF and WebP,
// and packed TEXV0005 textures (see DecodeTex).
package assets

import (
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"
	"io/fs"
	"path"

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP

	"github.com/gogpu/tinker/media"
)

// imageExts are tried in order when a texture or cube name has no
// extension of its own.
var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".webp", ".tex"}

// Dir returns the directory holding assets of kind, or "" for kinds that
// are not backed by files.
func Dir(kind media.Kind) string {
	switch kind {
	case media.KindTexture:
		return "textures"
	case media.KindCube:
		return "cubes"
	case media.KindVideo:
		return "videos"
	case media.KindMusic:
		return "music"
	}
	return ""
}

// Locator resolves asset names against a file system.
type Locator struct {
	FS fs.FS
}

var _ media.Locator = (*Locator)(nil)

// NewLocator returns a locator over fsys.
func NewLocator(fsys fs.FS) *Locator {
	return &Locator{FS: fsys}
}

// Resolve returns the asset called name in kind's directory. Texture and
// cube names are also tried with each known image extension.
func (l *Locator) Resolve(name string, kind media.Kind) (media.Handle, bool) {
	dir := Dir(kind)
	if l == nil || l.FS == nil || dir == "" || name == "" || !fs.ValidPath(name) {
		return nil, false
	}
	candidates := []string{name}
	if (kind == media.KindTexture || kind == media.KindCube) && path.Ext(name) == "" {
		for _, ext := range imageExts {
			candidates = append(candidates, name+ext)
		}
	}
	for _, c := range candidates {
		p := path.Join(dir, c)
		info, err := fs.Stat(l.FS, p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return &Asset{fsys: l.FS, name: name, path: p, kind: kind}, true
	}
	return nil, false
}

// Asset is a located file.
type Asset struct {
	fsys fs.FS
	name string
	path string
	kind media.Kind
}

var _ media.ImageHandle = (*Asset)(nil)

// Name returns the logical name the asset was resolved from.
func (a *Asset) Name() string { return a.name }

// Path returns the asset's path within the file system.
func (a *Asset) Path() string { return a.path }

// Kind returns the kind the asset was resolved as.
func (a *Asset) Kind() media.Kind { return a.kind }

// Open opens the asset for reading.
func (a *Asset) Open() (io.ReadCloser, error) {
	return a.fsys.Open(a.path)
}

// Image decodes the asset.
func (a *Asset) Image() (image.Image, error) {
	f, err := a.Open()
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("assets: decode %s: %w", a.path, err)
	}
	return img, nil
}
