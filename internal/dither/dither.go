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

// Package dither turns a luma buffer into an ink mask, either by plain
// thresholding, by ordered (Bayer) dithering, or by error diffusion
// (Floyd–Steinberg, Atkinson), optionally in serpentine order and with a
// protect mask for text regions.
package dither

import (
	"github.com/stapelberg/tricard/internal/mask"
	"github.com/stapelberg/tricard/internal/tone"
)

// TextThreshold is the 8-bit threshold applied to protected pixels,
// independent of Options.Threshold.
const TextThreshold = 128

type Options struct {
	// Threshold in [0, 255]. It is mapped onto the scale of the luma buffer.
	Threshold uint8

	// Serpentine scans odd rows right to left (error diffusion only).
	Serpentine bool

	// Protect, if non-nil, marks pixels that are decided by TextThreshold
	// against their input value and take no part in error diffusion.
	Protect *mask.Mask
}

func threshold(t uint8, s tone.Scale) float32 {
	return float32(t) / 255 * s.Max()
}

func protected(o Options, i int) bool {
	return o.Protect != nil && o.Protect.Bits[i]
}

// None marks a pixel as ink iff its value is below the threshold.
func None(l *tone.Luma, o Options) *mask.Mask {
	out := mask.New(l.W, l.H)
	t := threshold(o.Threshold, l.Scale)
	tt := threshold(TextThreshold, l.Scale)
	for i, v := range l.Pix {
		if protected(o, i) {
			out.Bits[i] = v < tt
			continue
		}
		out.Bits[i] = v < t
	}
	return out
}

// bayer8 is the 8×8 ordered dither matrix, normalized to [0, 1).
var bayer8 = func() (m [8][8]float32) {
	idx := [8][8]int{
		{0, 48, 12, 60, 3, 51, 15, 63},
		{32, 16, 44, 28, 35, 19, 47, 31},
		{8, 56, 4, 52, 11, 59, 7, 55},
		{40, 24, 36, 20, 43, 27, 39, 23},
		{2, 50, 14, 62, 1, 49, 13, 61},
		{34, 18, 46, 30, 33, 17, 45, 29},
		{10, 58, 6, 54, 9, 57, 5, 53},
		{42, 26, 38, 22, 41, 25, 37, 21},
	}
	for y := range idx {
		for x := range idx[y] {
			m[y][x] = float32(idx[y][x]) / 64
		}
	}
	return m
}()

// bayerSpread scales the matrix so that the pattern does not span the whole
// range, which keeps the darkest and lightest tones solid.
const bayerSpread = 0.85

// Bayer tiles the 8×8 matrix across the image. A pixel is paper iff its
// normalized value exceeds matrix*0.85 + threshold/255; otherwise it is ink.
// The threshold acts as a global offset on the matrix: 0 spreads the pattern
// over the full tone range, higher values darken the result. No error is
// carried, so every pixel is independent.
func Bayer(l *tone.Luma, o Options) *mask.Mask {
	out := mask.New(l.W, l.H)
	max := l.Scale.Max()
	t := float32(o.Threshold) / 255
	tt := threshold(TextThreshold, l.Scale)
	for y := 0; y < l.H; y++ {
		for x := 0; x < l.W; x++ {
			i := y*l.W + x
			v := l.Pix[i]
			if protected(o, i) {
				out.Bits[i] = v < tt
				continue
			}
			on := v/max > bayer8[y%8][x%8]*bayerSpread+t
			out.Bits[i] = !on
		}
	}
	return out
}
