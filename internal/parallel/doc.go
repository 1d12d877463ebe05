// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package parallel runs CPU-bound jobs, such as decoding media assets, on
// a bounded set of goroutines.
package parallel
