// Copyright 2016 Michael Stapelberg and contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tricard contains domain types for tricard, like the conversion
// parameters which control how a canvas is turned into a TRI artifact for a
// black/white/red e-paper panel.
package tricard

import (
	"errors"
	"fmt"
)

// Error kinds returned by the conversion core. Use errors.Is to discriminate.
var (
	// ErrInvalidParameters is returned when a parameter is out of range. It is
	// detected before any pixel work begins.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrMalformedArtifact is returned when reading a TRI artifact with a bad
	// magic or truncated plane data.
	ErrMalformedArtifact = errors.New("malformed TRI artifact")

	// ErrDimensionOverflow is returned when encoding an image whose width or
	// height does not fit into the 16-bit header fields.
	ErrDimensionOverflow = errors.New("dimension overflow")
)

// MaxDimension is the largest width or height the TRI header can express.
const MaxDimension = 0xffff

type Method int

const (
	Fixed Method = iota
	Adaptive
)

func (m Method) String() string {
	switch m {
	case Fixed:
		return "fixed"
	case Adaptive:
		return "adaptive"
	default:
		return "<unknown>"
	}
}

func ParseMethod(s string) (Method, error) {
	switch s {
	case "fixed":
		return Fixed, nil
	case "adaptive":
		return Adaptive, nil
	}
	return 0, fmt.Errorf("method %q (want fixed or adaptive): %w", s, ErrInvalidParameters)
}

type Dither int

const (
	NoDither Dither = iota
	FloydSteinberg
	Atkinson
	Bayer
)

func (d Dither) String() string {
	switch d {
	case NoDither:
		return "none"
	case FloydSteinberg:
		return "floyd_steinberg"
	case Atkinson:
		return "atkinson"
	case Bayer:
		return "bayer"
	default:
		return "<unknown>"
	}
}

// ParseDither accepts the canonical names as well as the short aliases the
// card editor used to send ("fs", "floyd", "floydsteinberg").
func ParseDither(s string) (Dither, error) {
	switch s {
	case "none", "":
		return NoDither, nil
	case "floyd_steinberg", "floydsteinberg", "floyd", "fs":
		return FloydSteinberg, nil
	case "atkinson":
		return Atkinson, nil
	case "bayer":
		return Bayer, nil
	}
	return 0, fmt.Errorf("dither %q: %w", s, ErrInvalidParameters)
}

type RedMode int

const (
	RedAuto RedMode = iota
	RedNone
)

func (r RedMode) String() string {
	switch r {
	case RedAuto:
		return "auto"
	case RedNone:
		return "none"
	default:
		return "<unknown>"
	}
}

func ParseRedMode(s string) (RedMode, error) {
	switch s {
	case "auto":
		return RedAuto, nil
	case "none":
		return RedNone, nil
	}
	return 0, fmt.Errorf("red mode %q: %w", s, ErrInvalidParameters)
}

// Tone selects the preprocessing path. The two paths are never combined.
type Tone int

const (
	// ToneLinear converts to linear-light Rec.709 luma and applies contrast in
	// linear space.
	ToneLinear Tone = iota

	// ToneLegacy works on 8-bit grayscale with contrast, sharpness and gamma
	// applied the way the original card editor did.
	ToneLegacy
)

func (t Tone) String() string {
	switch t {
	case ToneLinear:
		return "linear"
	case ToneLegacy:
		return "legacy"
	default:
		return "<unknown>"
	}
}

func ParseTone(s string) (Tone, error) {
	switch s {
	case "linear":
		return ToneLinear, nil
	case "legacy":
		return ToneLegacy, nil
	}
	return 0, fmt.Errorf("tone %q: %w", s, ErrInvalidParameters)
}

// Precedence decides which plane wins when a pixel is both red and black.
type Precedence int

const (
	RedOverBlack Precedence = iota
	BlackOverRed
)

func (p Precedence) String() string {
	switch p {
	case RedOverBlack:
		return "red_over_black"
	case BlackOverRed:
		return "black_over_red"
	default:
		return "<unknown>"
	}
}

func ParsePrecedence(s string) (Precedence, error) {
	switch s {
	case "red_over_black", "red":
		return RedOverBlack, nil
	case "black_over_red", "black":
		return BlackOverRed, nil
	}
	return 0, fmt.Errorf("precedence %q: %w", s, ErrInvalidParameters)
}

// RedThresholds classify a pixel as red ink iff R >= RMin, G <= GMax and
// B <= BMax.
type RedThresholds struct {
	RMin int `json:"r_min"`
	GMax int `json:"g_max"`
	BMax int `json:"b_max"`
}

// Background configures the flood-fill background removal which runs before
// any tone processing.
type Background struct {
	Enabled       bool `json:"enabled"`
	DarkThreshold int  `json:"dark_threshold"`
	Feather       int  `json:"feather"`
}
