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

package tricard

import "fmt"

// Params is the immutable configuration of one conversion. Construct it with
// NewParams so that out-of-range values are rejected up front.
type Params struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	Contrast  float64 `json:"contrast"`
	Sharpness float64 `json:"sharpness"`
	Gamma     float64 `json:"gamma"`
	Tone      Tone    `json:"tone"`

	Method         Method  `json:"method"`
	Threshold      int     `json:"threshold"`
	AdaptiveWindow int     `json:"adaptive_window"`
	AdaptiveK      float64 `json:"adaptive_k"`

	Dither     Dither `json:"dither"`
	Serpentine bool   `json:"serpentine"`

	// ProtectText renders detected text regions with a plain threshold, so that
	// glyphs stay crisp inside dithered photographs.
	ProtectText bool `json:"protect_text"`

	RedMode    RedMode       `json:"red_mode"`
	Red        RedThresholds `json:"red"`
	Precedence Precedence    `json:"precedence"`

	Background Background `json:"background"`
}

// Panel size of the museum card display.
const (
	DefaultWidth  = 480
	DefaultHeight = 670
)

func DefaultParams() Params {
	return Params{
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		Contrast:       1,
		Sharpness:      1,
		Gamma:          1,
		Tone:           ToneLinear,
		Method:         Fixed,
		Threshold:      128,
		AdaptiveWindow: 31,
		AdaptiveK:      0.2,
		Dither:         NoDither,
		Serpentine:     true,
		ProtectText:    true,
		RedMode:        RedAuto,
		Red: RedThresholds{
			RMin: 160,
			GMax: 120,
			BMax: 120,
		},
		Precedence: RedOverBlack,
		Background: Background{
			DarkThreshold: 40,
			Feather:       1,
		},
	}
}

// MaxFeather bounds the background dilation, which costs one full pass over
// the image per iteration.
const MaxFeather = 16

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidParameters)
}

func checkByte(name string, v int) error {
	if v < 0 || v > 255 {
		return invalid("%s %d not in [0, 255]", name, v)
	}
	return nil
}

// NewParams validates p and returns a normalized copy: an even adaptive window
// is coerced to the next odd value.
func NewParams(p Params) (Params, error) {
	if p.AdaptiveWindow >= 3 && p.AdaptiveWindow%2 == 0 {
		p.AdaptiveWindow++
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate returns an error wrapping ErrInvalidParameters if any field is out
// of range.
func (p Params) Validate() error {
	if p.Width < 1 || p.Width > MaxDimension {
		return invalid("width %d not in [1, %d]", p.Width, MaxDimension)
	}
	if p.Height < 1 || p.Height > MaxDimension {
		return invalid("height %d not in [1, %d]", p.Height, MaxDimension)
	}
	if !(p.Contrast > 0) {
		return invalid("contrast %v must be > 0", p.Contrast)
	}
	if !(p.Sharpness >= 0) {
		return invalid("sharpness %v must be >= 0", p.Sharpness)
	}
	if !(p.Gamma > 0) {
		return invalid("gamma %v must be > 0", p.Gamma)
	}
	if p.Tone.String() == "<unknown>" {
		return invalid("tone %d", int(p.Tone))
	}
	if p.Method.String() == "<unknown>" {
		return invalid("method %d", int(p.Method))
	}
	if err := checkByte("threshold", p.Threshold); err != nil {
		return err
	}
	if p.AdaptiveWindow < 3 {
		return invalid("adaptive window %d must be >= 3", p.AdaptiveWindow)
	}
	if p.AdaptiveWindow%2 == 0 {
		return invalid("adaptive window %d must be odd", p.AdaptiveWindow)
	}
	if !(p.AdaptiveK >= 0 && p.AdaptiveK <= 1) {
		return invalid("adaptive k %v not in [0, 1]", p.AdaptiveK)
	}
	if p.Dither.String() == "<unknown>" {
		return invalid("dither %d", int(p.Dither))
	}
	if p.RedMode.String() == "<unknown>" {
		return invalid("red mode %d", int(p.RedMode))
	}
	if err := checkByte("red r_min", p.Red.RMin); err != nil {
		return err
	}
	if err := checkByte("red g_max", p.Red.GMax); err != nil {
		return err
	}
	if err := checkByte("red b_max", p.Red.BMax); err != nil {
		return err
	}
	if p.Precedence.String() == "<unknown>" {
		return invalid("precedence %d", int(p.Precedence))
	}
	if err := checkByte("background dark threshold", p.Background.DarkThreshold); err != nil {
		return err
	}
	if p.Background.Feather < 0 || p.Background.Feather > MaxFeather {
		return invalid("feather %d not in [0, %d]", p.Background.Feather, MaxFeather)
	}
	return nil
}

func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Method) UnmarshalText(b []byte) (err error) {
	*m, err = ParseMethod(string(b))
	return err
}

func (d Dither) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Dither) UnmarshalText(b []byte) (err error) {
	*d, err = ParseDither(string(b))
	return err
}

func (r RedMode) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *RedMode) UnmarshalText(b []byte) (err error) {
	*r, err = ParseRedMode(string(b))
	return err
}

func (t Tone) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tone) UnmarshalText(b []byte) (err error) {
	*t, err = ParseTone(string(b))
	return err
}

func (p Precedence) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Precedence) UnmarshalText(b []byte) (err error) {
	*p, err = ParsePrecedence(string(b))
	return err
}
