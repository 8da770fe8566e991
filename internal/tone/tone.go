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

// Package tone implements the color and tone model: sRGB to linear-light luma,
// contrast curves, and the legacy 8-bit grayscale path (contrast, sharpness and
// gamma on 8-bit values).
package tone

import (
	"image"
	"image/color"

	"github.com/goki/mat32"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stapelberg/tricard/internal/mask"
)

// Scale is the value range of a Luma buffer. It travels with the buffer so
// that 8-bit gray and linear-light values are never mixed by accident.
type Scale int

const (
	// Gray8 values are in [0, 255].
	Gray8 Scale = iota
	// Linear values are linear-light luma in [0, 1].
	Linear
)

func (s Scale) Max() float32 {
	if s == Linear {
		return 1
	}
	return 255
}

func (s Scale) String() string {
	if s == Linear {
		return "linear"
	}
	return "gray8"
}

// Luma is a W×H float buffer in row-major order.
type Luma struct {
	W, H  int
	Scale Scale
	Pix   []float32
}

func NewLuma(w, h int, s Scale) *Luma {
	return &Luma{W: w, H: h, Scale: s, Pix: make([]float32, w*h)}
}

func (l *Luma) At(x, y int) float32 {
	return l.Pix[y*l.W+x]
}

func (l *Luma) Clone() *Luma {
	c := NewLuma(l.W, l.H, l.Scale)
	copy(c.Pix, l.Pix)
	return c
}

// Whiten returns a copy of l in which every pixel set in m is forced to the
// maximum (paper white) value.
func (l *Luma) Whiten(m *mask.Mask) *Luma {
	out := l.Clone()
	max := l.Scale.Max()
	for i, b := range m.Bits {
		if b {
			out.Pix[i] = max
		}
	}
	return out
}

// linearLUT maps 8-bit sRGB channel values to linear light.
var linearLUT = func() (lut [256]float32) {
	for i := range lut {
		v := float64(i) / 255
		r, _, _ := colorful.Color{R: v, G: v, B: v}.LinearRgb()
		lut[i] = float32(r)
	}
	return lut
}()

// SRGBToLinear returns the linear-light value of an 8-bit sRGB channel value.
func SRGBToLinear(c uint8) float32 {
	return linearLUT[c]
}

// RGBAt returns the straight (non-premultiplied) 8-bit RGB values of the pixel
// at x, y. Alpha is ignored.
func RGBAt(img image.Image, x, y int) (r, g, b uint8) {
	switch m := img.(type) {
	case *image.NRGBA:
		i := m.PixOffset(x, y)
		return m.Pix[i+0], m.Pix[i+1], m.Pix[i+2]
	case *image.RGBA:
		i := m.PixOffset(x, y)
		if m.Pix[i+3] == 0xff {
			return m.Pix[i+0], m.Pix[i+1], m.Pix[i+2]
		}
	}
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return c.R, c.G, c.B
}

// ToLinearLuma converts img to Rec.709 luma in linear light, [0, 1].
func ToLinearLuma(img image.Image) *Luma {
	bounds := img.Bounds()
	out := NewLuma(bounds.Dx(), bounds.Dy(), Linear)
	var o int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := RGBAt(img, x, y)
			out.Pix[o] = 0.2126*linearLUT[r] + 0.7152*linearLUT[g] + 0.0722*linearLUT[b]
			o++
		}
	}
	return out
}

// ApplyContrast scales the deviation of every value from midpoint (given as a
// fraction of the full range) by factor and clamps the result to the range of
// l. A factor of 1 is the identity.
func ApplyContrast(l *Luma, factor, midpoint float32) *Luma {
	out := l.Clone()
	if factor == 1 {
		return out
	}
	max := l.Scale.Max()
	mid := midpoint * max
	for i, v := range out.Pix {
		out.Pix[i] = mat32.Clamp((v-mid)*factor+mid, 0, max)
	}
	return out
}

// Sharpen blends l with a 3×3 smoothed copy of itself:
// out = smooth + factor*(l - smooth). A factor of 1 is the identity, 0 returns
// the smoothed image, values above 1 sharpen. Border pixels are not filtered.
func Sharpen(l *Luma, factor float32) *Luma {
	out := l.Clone()
	if factor == 1 || l.W < 3 || l.H < 3 {
		return out
	}
	max := l.Scale.Max()
	w := l.W
	for y := 1; y < l.H-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			sum := 5 * l.Pix[i]
			sum += l.Pix[i-w-1] + l.Pix[i-w] + l.Pix[i-w+1]
			sum += l.Pix[i-1] + l.Pix[i+1]
			sum += l.Pix[i+w-1] + l.Pix[i+w] + l.Pix[i+w+1]
			smooth := sum / 13
			out.Pix[i] = mat32.Clamp(smooth+factor*(l.Pix[i]-smooth), 0, max)
		}
	}
	return out
}
