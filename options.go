// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package tinker

import (
	"log/slog"

	"github.com/gogpu/tinker/media"
)

// Option configures a Controller during creation.
//
// Example:
//
//	c := tinker.New("plasma", dev, store,
//	    tinker.WithLocator(locator),
//	    tinker.WithPresenter(ui))
type Option func(*controllerOptions)

// controllerOptions holds optional configuration for Controller creation.
type controllerOptions struct {
	logger *slog.Logger
	media  media.Config
}

// defaultOptions returns the default controller options.
func defaultOptions() controllerOptions {
	return controllerOptions{
		logger: Logger(),
	}
}

// WithLogger sets the logger used by the Controller and its components
// instead of the package logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *controllerOptions) {
		if l == nil {
			l = newNopLogger()
		}
		o.logger = l
	}
}

// WithLocator sets the asset locator used to resolve media names.
// Without a locator every media reference is unresolved.
func WithLocator(l media.Locator) Option {
	return func(o *controllerOptions) {
		o.media.Locator = l
	}
}

// WithPresenter sets the surface that receives texture thumbnails.
func WithPresenter(p media.Presenter) Option {
	return func(o *controllerOptions) {
		o.media.Presenter = p
	}
}

// WithDispatcher sets how thumbnail publication is scheduled onto the
// presentation context. The default runs each publication on its own
// goroutine.
//
// Example:
//
//	// Publish synchronously on the resolving goroutine.
//	tinker.WithDispatcher(func(f func()) { f() })
func WithDispatcher(d media.Dispatcher) Option {
	return func(o *controllerOptions) {
		o.media.Dispatch = d
	}
}

// WithCapabilities sets the factory that registers video, music,
// microphone and webcam inputs. The default records the requirement only.
func WithCapabilities(f media.CapabilityFactory) Option {
	return func(o *controllerOptions) {
		o.media.Capabilities = f
	}
}

// WithDecodeWorkers bounds how many textures are decoded concurrently
// during Activate. Zero or a negative value uses GOMAXPROCS.
func WithDecodeWorkers(n int) Option {
	return func(o *controllerOptions) {
		o.media.Workers = n
	}
}
