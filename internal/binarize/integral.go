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

package binarize

import (
	"image"
	"math"
)

// Integral holds the summed-area tables of pixel values and of squared pixel
// values. Both tables carry a leading zero row and column, so entry (x, y)
// is the sum over [0, x)×[0, y).
type Integral struct {
	w, h   int // of the image; tables are (w+1)×(h+1)
	sum    []uint64
	sqsum  []uint64
	stride int
}

func NewIntegral(g *image.Gray) *Integral {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	stride := w + 1
	ii := &Integral{
		w:      w,
		h:      h,
		sum:    make([]uint64, stride*(h+1)),
		sqsum:  make([]uint64, stride*(h+1)),
		stride: stride,
	}
	for y := 0; y < h; y++ {
		row := g.Pix[g.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		var rowSum, rowSqSum uint64
		for x := 0; x < w; x++ {
			v := uint64(row[x])
			rowSum += v
			rowSqSum += v * v
			i := (y+1)*stride + x + 1
			ii.sum[i] = ii.sum[i-stride] + rowSum
			ii.sqsum[i] = ii.sqsum[i-stride] + rowSqSum
		}
	}
	return ii
}

func box(t []uint64, stride, x0, y0, x1, y1 int) uint64 {
	return t[y1*stride+x1] - t[y0*stride+x1] - t[y1*stride+x0] + t[y0*stride+x0]
}

// Sum returns the sum of pixel values over [x0, x1)×[y0, y1).
func (ii *Integral) Sum(x0, y0, x1, y1 int) uint64 {
	return box(ii.sum, ii.stride, x0, y0, x1, y1)
}

// SqSum returns the sum of squared pixel values over [x0, x1)×[y0, y1).
func (ii *Integral) SqSum(x0, y0, x1, y1 int) uint64 {
	return box(ii.sqsum, ii.stride, x0, y0, x1, y1)
}

// MeanStdDev returns the mean and the population standard deviation over
// [x0, x1)×[y0, y1), which must be non-empty. Negative variance caused by
// rounding is floored at 0.
func (ii *Integral) MeanStdDev(x0, y0, x1, y1 int) (mean, stddev float64) {
	area := float64((x1 - x0) * (y1 - y0))
	mean = float64(ii.Sum(x0, y0, x1, y1)) / area
	variance := float64(ii.SqSum(x0, y0, x1, y1))/area - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
