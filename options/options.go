// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package options binds a shader's reflected "options" structure to the
// persistent preference store.
//
// Each child of the options node is one tunable. Its persistence key is
// "<shader>.<field>" and its kind follows from the reflected type:
//
//	structure  -> Segmented (one-hot over the members)
//	bool       -> Boolean
//	float4     -> ColorPicker
//	float3     -> FloatSlider (min, value, max)
//	int3       -> IntSlider (min, value, max)
//
// Anything else is logged and skipped.
//
// Reconciliation: a key already present in the store wins and the
// GPU-computed default is discarded. An absent key receives the default.
// The stored value is then written back into the descriptor. Sliders and
// colors persist the second vector component only; for colors the
// write-back happens only once a full color has been stored by a
// presentation layer.
package options

import (
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gogpu/tinker/config"
	"github.com/gogpu/tinker/descriptor"
)

// Kind is the presentation kind of an option.
type Kind uint8

// Option kinds.
const (
	KindBoolean Kind = iota
	KindColorPicker
	KindFloatSlider
	KindIntSlider
	KindSegmented
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindColorPicker:
		return "color"
	case KindFloatSlider:
		return "float-slider"
	case KindIntSlider:
		return "int-slider"
	case KindSegmented:
		return "segmented"
	}
	return "unknown"
}

// Option describes one tunable for a presentation layer.
type Option struct {
	// Key is the reflected field name.
	Key string

	// Label is Key split into title-cased words.
	Label string

	Kind           Kind
	PersistenceKey string

	// Choices names the members of a segmented option in order.
	Choices []string

	// Min and Max bound slider options (first and third components).
	Min, Max float32
}

// Binder reconciles option descriptors against a Store.
type Binder struct {
	store config.Store
	log   *slog.Logger
}

// NewBinder returns a binder over store. A nil logger discards output.
func NewBinder(store config.Store, log *slog.Logger) *Binder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Binder{store: store, log: log}
}

// Bind reconciles every option under opts with the store and writes the
// stored values back into the descriptor. A nil opts is a no-op.
func (b *Binder) Bind(shader string, opts *descriptor.Descriptor) {
	if opts == nil {
		return
	}
	for _, n := range opts.Children() {
		if n.Name() == "" {
			continue
		}
		key := config.Key(shader, n.Name())
		_, stored := b.store.Get(key)

		if n.IsStruct() {
			if !stored {
				b.store.Set(key, config.Int(0))
			}
			b.segmented(n, config.IntValue(b.store, key))
			continue
		}

		switch v := n.Value().(type) {
		case descriptor.Bool:
			if !stored {
				b.store.Set(key, config.Bool(v))
			}
			n.SetValue(descriptor.Bool(config.BoolValue(b.store, key)))

		case descriptor.Float4:
			if !stored {
				b.store.Set(key, config.Float(v[1]))
			}
			if c, ok := config.ColorValue(b.store, key); ok {
				n.SetValue(descriptor.Float4(c))
			}

		case descriptor.Float3:
			if !stored {
				b.store.Set(key, config.Float(v[1]))
			}
			v[1] = config.FloatValue(b.store, key)
			n.SetValue(v)

		case descriptor.Int3:
			if !stored {
				b.store.Set(key, config.Int(v[1]))
			}
			v[1] = int32(config.IntValue(b.store, key)) //nolint:gosec // slider range fits int32
			n.SetValue(v)

		default:
			b.log.Warn("options: unsupported option type",
				"shader", shader, "field", n.Name(), "type", n.DataType())
		}
	}
}

// segmented writes a one-hot encoding of index over n's members.
// An index outside the member range clears every member.
func (b *Binder) segmented(n *descriptor.Descriptor, index int) {
	for i, c := range n.Children() {
		if !c.SetFlag(i == index) {
			b.log.Debug("options: segment member is not a scalar",
				"field", n.Name(), "member", c.Name(), "type", c.DataType())
		}
	}
}

// Describe returns the presentable options under opts in declaration
// order. It does not touch the store. Unsupported fields are omitted.
func (b *Binder) Describe(shader string, opts *descriptor.Descriptor) []Option {
	if opts == nil {
		return nil
	}
	var out []Option
	for _, n := range opts.Children() {
		if n.Name() == "" {
			continue
		}
		o := Option{
			Key:            n.Name(),
			Label:          Label(n.Name()),
			PersistenceKey: config.Key(shader, n.Name()),
		}
		if n.IsStruct() {
			o.Kind = KindSegmented
			for _, c := range n.Children() {
				o.Choices = append(o.Choices, c.Name())
			}
			out = append(out, o)
			continue
		}
		switch v := n.Value().(type) {
		case descriptor.Bool:
			o.Kind = KindBoolean
		case descriptor.Float4:
			o.Kind = KindColorPicker
		case descriptor.Float3:
			o.Kind = KindFloatSlider
			o.Min, o.Max = v[0], v[2]
		case descriptor.Int3:
			o.Kind = KindIntSlider
			o.Min, o.Max = float32(v[0]), float32(v[2])
		default:
			continue
		}
		out = append(out, o)
	}
	return out
}

// Label turns a field name such as "glowRadius" or "glow_radius" into
// "Glow Radius".
func Label(name string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	prev := rune(0)
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && prev != 0 && !unicode.IsUpper(prev):
			flush()
			cur = append(cur, r)
		case unicode.IsDigit(r) && prev != 0 && !unicode.IsDigit(prev):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
		prev = r
	}
	flush()
	return cases.Title(language.English).String(strings.Join(words, " "))
}
