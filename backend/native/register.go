// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"log/slog"

	"github.com/gogpu/tinker/backend"
)

func init() {
	backend.Register(backend.Native, func(sources map[string]string, log *slog.Logger) (backend.Device, error) {
		d, err := Open(sources, log)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}
