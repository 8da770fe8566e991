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

// Package segment removes dark photographic backgrounds: it flood-fills the
// dark region connected to the image border so that it can be cleared before
// dithering, while dark subjects surrounded by light pixels are kept.
package segment

import (
	"image"
	"image/color"

	"github.com/stapelberg/tricard/internal/mask"
	"github.com/stapelberg/tricard/internal/tone"
)

// luma returns the Rec.709-weighted luma of 8-bit sRGB values. The gamma
// encoded values are good enough to tell a dark backdrop apart.
func luma(r, g, b uint8) float32 {
	return 0.2126*float32(r) + 0.7152*float32(g) + 0.0722*float32(b)
}

// FloodFillBackground returns the mask of pixels with luma <= darkThreshold
// which are 4-connected to the image border through such pixels. Dark regions
// not connected to the border are not part of the background. The result is
// dilated feather times to soften the cutout edge.
func FloodFillBackground(img image.Image, darkThreshold uint8, feather int) *mask.Mask {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return mask.New(w, h)
	}
	candidate := mask.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := tone.RGBAt(img, bounds.Min.X+x, bounds.Min.Y+y)
			candidate.Bits[y*w+x] = luma(r, g, b) <= float32(darkThreshold)
		}
	}

	bg := mask.New(w, h)
	var stack []int // pixel indices
	push := func(x, y int) {
		if i := y*w + x; candidate.Bits[i] && !bg.Bits[i] {
			stack = append(stack, i)
		}
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if bg.Bits[i] {
			continue
		}
		bg.Bits[i] = true
		x, y := i%w, i/w
		if y > 0 {
			push(x, y-1)
		}
		if y+1 < h {
			push(x, y+1)
		}
		if x > 0 {
			push(x-1, y)
		}
		if x+1 < w {
			push(x+1, y)
		}
	}
	if feather > 0 {
		bg = bg.Dilate4(feather)
	}
	return bg
}

// Mode selects how Apply clears the background.
type Mode int

const (
	// White paints the background pure white and returns an *image.RGBA.
	White Mode = iota
	// Transparent sets background alpha to 0 and returns an *image.NRGBA.
	Transparent
)

// Apply returns a copy of img with the pixels in bg cleared according to mode.
func Apply(img image.Image, bg *mask.Mask, mode Mode) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if mode == Transparent {
		out := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b := tone.RGBAt(img, bounds.Min.X+x, bounds.Min.Y+y)
				a := uint8(0xff)
				if bg.Bits[y*w+x] {
					a = 0
				}
				out.SetNRGBA(x, y, color.NRGBA{r, g, b, a})
			}
		}
		return out
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bg.Bits[y*w+x] {
				out.SetRGBA(x, y, color.RGBA{0xff, 0xff, 0xff, 0xff})
				continue
			}
			r, g, b := tone.RGBAt(img, bounds.Min.X+x, bounds.Min.Y+y)
			out.SetRGBA(x, y, color.RGBA{r, g, b, 0xff})
		}
	}
	return out
}
