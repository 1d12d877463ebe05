// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package media resolves the media a shader asks for in its reflected
// defaults.
//
// The root descriptor may carry the arrays "textures", "cubes", "videos"
// and "music", each an array of names, and the singleton flags
// "microphone" and "webcam". Textures are decoded and uploaded to the GPU
// and their thumbnails published to a [Presenter]. Videos, music, the
// microphone and the webcam are only registered as [Capability] values;
// starting and stopping the streams belongs to whoever consumes them.
//
// Resolution never fails as a whole. An absent array yields an empty list
// and a name that cannot be resolved is logged and skipped.
package media

import "image"

// Kind is the kind of media a name refers to.
type Kind uint8

// Media kinds.
const (
	KindTexture Kind = iota
	KindCube
	KindVideo
	KindMusic
	KindMicrophone
	KindWebcam
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindCube:
		return "cube"
	case KindVideo:
		return "video"
	case KindMusic:
		return "music"
	case KindMicrophone:
		return "microphone"
	case KindWebcam:
		return "webcam"
	}
	return "unknown"
}

// Reference names one media dependency of a shader.
type Reference struct {
	Name string
	Kind Kind
}

// Handle is an opaque located asset.
type Handle interface {
	Name() string
}

// ImageHandle is a located asset that decodes to an image.
type ImageHandle interface {
	Handle
	Image() (image.Image, error)
}

// Locator maps a logical name to an asset of the expected kind.
type Locator interface {
	Resolve(name string, kind Kind) (Handle, bool)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(name string, kind Kind) (Handle, bool)

func (f LocatorFunc) Resolve(name string, kind Kind) (Handle, bool) { return f(name, kind) }

// Presenter receives texture thumbnails keyed by input slot.
type Presenter interface {
	PublishThumbnail(index int, img image.Image)
}

// Dispatcher runs f on the presentation context.
type Dispatcher func(f func())

// Capability is a registered media input such as a video stream or the
// microphone.
type Capability interface {
	Name() string

	// Stop ends the capability's stream. It is called exactly once by
	// Resolver.Purge.
	Stop()
}

// CapabilityFactory creates the registration for ref. h is the located
// asset for videos and music and nil for the microphone and webcam.
type CapabilityFactory func(ref Reference, h Handle) (Capability, error)

// registration is the default capability: it records the requirement and
// has nothing to stop.
type registration struct {
	ref    Reference
	handle Handle
}

func (r *registration) Name() string { return r.ref.Name }
func (r *registration) Stop()        {}

// Register is the default CapabilityFactory.
func Register(ref Reference, h Handle) (Capability, error) {
	return &registration{ref: ref, handle: h}, nil
}
