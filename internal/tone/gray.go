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

package tone

import (
	"image"
	"image/color"

	"github.com/goki/mat32"
)

// Grayscale converts img to 8-bit grayscale. This is the non-linear path used
// by the legacy tone pipeline and by the region classifier.
func Grayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < bounds.Dy(); y++ {
			src := g.Pix[g.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			copy(out.Pix[y*out.Stride:(y+1)*out.Stride], src[:bounds.Dx()])
		}
		return out
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := RGBAt(img, x, y)
			c := color.GrayModel.Convert(color.RGBA{r, g, b, 0xff}).(color.Gray)
			out.Pix[(y-bounds.Min.Y)*out.Stride+(x-bounds.Min.X)] = c.Y
		}
	}
	return out
}

// FromGray returns g as a Gray8-scaled Luma.
func FromGray(g *image.Gray) *Luma {
	bounds := g.Bounds()
	out := NewLuma(bounds.Dx(), bounds.Dy(), Gray8)
	var o int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.Pix[o] = float32(g.Pix[g.PixOffset(x, y)])
			o++
		}
	}
	return out
}

// Quantize rounds l to 8-bit gray, mapping the range of l onto [0, 255].
func Quantize(l *Luma) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, l.W, l.H))
	scale := 255 / l.Scale.Max()
	for i, v := range l.Pix {
		out.Pix[i] = uint8(mat32.Clamp(v*scale+0.5, 0, 255))
	}
	return out
}

// EnhanceContrast blends g with a uniform image of its mean gray value:
// out = mean + factor*(g - mean). A factor of 1 is the identity.
func EnhanceContrast(g *image.Gray, factor float32) *image.Gray {
	if factor == 1 {
		return cloneGray(g)
	}
	var sum uint64
	for _, v := range g.Pix {
		sum += uint64(v)
	}
	var mean float32
	if len(g.Pix) > 0 {
		mean = float32(int(float64(sum)/float64(len(g.Pix)) + 0.5))
	}
	out := cloneGray(g)
	for i, v := range g.Pix {
		out.Pix[i] = uint8(mat32.Clamp(mean+factor*(float32(v)-mean)+0.5, 0, 255))
	}
	return out
}

// Sharpen8 is Sharpen on 8-bit grayscale.
func Sharpen8(g *image.Gray, factor float32) *image.Gray {
	if factor == 1 {
		return cloneGray(g)
	}
	return Quantize(Sharpen(FromGray(g), factor))
}

// ApplyGamma raises every normalized value of g to the power gamma. A gamma of
// 1 is the identity.
func ApplyGamma(g *image.Gray, gamma float32) *image.Gray {
	out := cloneGray(g)
	if gamma == 1 {
		return out
	}
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(mat32.Clamp(mat32.Pow(float32(i)/255, gamma)*255, 0, 255))
	}
	for i, v := range out.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

func cloneGray(g *image.Gray) *image.Gray {
	bounds := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], g.Pix[g.PixOffset(bounds.Min.X, bounds.Min.Y+y):])
	}
	return out
}
