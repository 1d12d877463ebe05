// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// source is one parsed WGSL file of the shader library.
type source struct {
	name   string
	wgsl   string
	module *ir.Module
	layout []argument

	spirv []uint32
}

// parseSource parses and lowers WGSL into naga IR.
func parseSource(name, wgsl string) (*source, error) {
	ast, err := naga.Parse(wgsl)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse: %w", ErrCompile, name, err)
	}
	module, err := naga.Lower(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: lower: %w", ErrCompile, name, err)
	}
	return &source{name: name, wgsl: wgsl, module: module}, nil
}

// compile returns the SPIR-V words of the source, compiling on first use.
// Caller must serialise calls.
func (s *source) compile() ([]uint32, error) {
	if s.spirv != nil {
		return s.spirv, nil
	}
	spirvBytes, err := naga.Compile(s.wgsl)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, s.name, err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: %s: SPIR-V length %d not a multiple of 4", ErrCompile, s.name, len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	s.spirv = words
	return words, nil
}
