// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for Default (first that opens wins).
	backendPriority = []string{Native}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens the backend called name.
func Open(name string, sources map[string]string, log *slog.Logger) (Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	return factory(sources, log)
}

// Default opens the best available backend: registered backends are tried
// in priority order, then the rest by name. The errors of every failed
// attempt are joined.
func Default(sources map[string]string, log *slog.Logger) (Device, error) {
	registryMu.RLock()
	order := make([]string, 0, len(backends))
	seen := make(map[string]bool, len(backends))
	for _, name := range backendPriority {
		if _, ok := backends[name]; ok {
			order = append(order, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(backends))
	for name := range backends {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	registryMu.RUnlock()
	sort.Strings(rest)
	order = append(order, rest...)

	if len(order) == 0 {
		return nil, ErrBackendNotAvailable
	}
	var errs []error
	for _, name := range order {
		d, err := Open(name, sources, log)
		if err == nil {
			return d, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, errors.Join(errs...))
}
