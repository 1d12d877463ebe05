// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"log/slog"

	"github.com/gogpu/tinker/gpu"
)

// Backend names.
const (
	Native = "native"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or none is.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Device is an open backend: a gpu.Context that owns device resources.
type Device interface {
	gpu.Context

	// Close releases the device. The Device must not be used afterwards.
	Close()
}

// Factory opens a backend for a shader library. sources maps file names
// to WGSL text.
type Factory func(sources map[string]string, log *slog.Logger) (Device, error)
