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

// Package binarize implements global (fixed) and local adaptive (Sauvola)
// thresholding of 8-bit grayscale images into ink masks.
package binarize

import (
	"image"
	"math"

	"github.com/stapelberg/tricard/internal/mask"
)

// Fixed marks a pixel as ink iff its value is below t.
func Fixed(g *image.Gray, t uint8) *mask.Mask {
	bounds := g.Bounds()
	out := mask.New(bounds.Dx(), bounds.Dy())
	var o int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := g.Pix[g.PixOffset(bounds.Min.X, y):]
		for x := 0; x < bounds.Dx(); x++ {
			out.Bits[o] = row[x] < t
			o++
		}
	}
	return out
}

// sauvolaR is the dynamic range of the standard deviation for 8-bit images.
const sauvolaR = 128

// Sauvola implements Sauvola's local thresholding, see "Adaptive document
// image binarization" (2000), using integral images so that every window sum
// costs O(1):
//
//	T = m * (1 + k*(s/R - 1))
//
// where m and s are the mean and standard deviation over a window×window
// square centered on the pixel. Windows are clipped at the image borders and
// normalized by their actual area. An even window is coerced to the next odd
// value.
func Sauvola(g *image.Gray, window int, k float64) *mask.Mask {
	if window%2 == 0 {
		window++
	}
	r := window / 2

	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := mask.New(w, h)
	ii := NewIntegral(g)
	for y := 0; y < h; y++ {
		y0 := max(y-r, 0)
		y1 := min(y+r+1, h)
		row := g.Pix[g.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < w; x++ {
			x0 := max(x-r, 0)
			x1 := min(x+r+1, w)
			m, s := ii.MeanStdDev(x0, y0, x1, y1)
			t := m * (1 + k*(s/sauvolaR-1))
			t = math.Min(math.Max(t, 0), 255)
			out.Bits[y*w+x] = float64(row[x]) < t
		}
	}
	return out
}
