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

// Package classify decides per pixel which plane and which binarization
// policy applies: red ink detection by RGB thresholds, and text/line-art
// detection by combining extreme luma with strong Sobel edges.
package classify

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/mask"
	"github.com/stapelberg/tricard/internal/tone"
)

// DetectRed marks a pixel as red ink iff R >= RMin, G <= GMax and B <= BMax.
func DetectRed(img image.Image, t tricard.RedThresholds) *mask.Mask {
	bounds := img.Bounds()
	out := mask.New(bounds.Dx(), bounds.Dy())
	var o int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := tone.RGBAt(img, x, y)
			out.Bits[o] = int(r) >= t.RMin && int(g) <= t.GMax && int(b) <= t.BMax
			o++
		}
	}
	return out
}

const (
	// Pixels darker than darkLuma or lighter than lightLuma are text
	// candidates; rendered glyphs are drawn in solid ink on solid paper.
	darkLuma  = 100
	lightLuma = 200

	// strongEdge is the fraction of the strongest gradient in the image above
	// which an edge counts as sharp.
	strongEdge = 0.3
)

// DetectText marks rendered glyphs and line art: pixels with extreme luma that
// also sit on a strong edge, dilated once (4-connected) to bridge adjacent
// strokes. Photographs have smoother gradients even where locally dark or
// light, so they are mostly left out.
func DetectText(g *image.Gray) *mask.Mask {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := mask.New(w, h)
	if w == 0 || h == 0 {
		return out
	}
	mag := SobelMagnitude(g)
	if max := floats.Max(mag); max > 0 {
		floats.Scale(1/max, mag)
	}
	for y := 0; y < h; y++ {
		row := g.Pix[g.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		for x := 0; x < w; x++ {
			v := row[x]
			extreme := v < darkLuma || v > lightLuma
			out.Bits[y*w+x] = extreme && mag[y*w+x] > strongEdge
		}
	}
	return out.Dilate4(1)
}

// SobelMagnitude returns the Sobel gradient magnitude sqrt(gx² + gy²) of g in
// row-major order. Pixels outside the image replicate the nearest edge pixel.
func SobelMagnitude(g *image.Gray) []float64 {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	at := func(x, y int) float64 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return float64(g.Pix[g.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)])
	}
	mag := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			mag[y*w+x] = math.Hypot(gx, gy)
		}
	}
	return mag
}
