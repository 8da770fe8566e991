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

package dither

import (
	"gonum.org/v1/gonum/floats"

	"github.com/stapelberg/tricard/internal/mask"
	"github.com/stapelberg/tricard/internal/tone"
)

// Tap is one error diffusion target. DX is relative to the scan direction: on
// rows scanned right to left, +1 means one pixel to the left.
type Tap struct {
	DX, DY int
	Weight float32
}

// Kernel is an error diffusion kernel.
type Kernel []Tap

// Sum returns the fraction of the residual that the kernel propagates.
func (k Kernel) Sum() float64 {
	w := make([]float64, len(k))
	for i, t := range k {
		w[i] = float64(t.Weight)
	}
	return floats.Sum(w)
}

var (
	// FloydSteinbergKernel propagates the full residual:
	//
	//	    *  7
	//	 3  5  1   (/16)
	FloydSteinbergKernel = Kernel{
		{DX: +1, DY: 0, Weight: 7.0 / 16},
		{DX: -1, DY: 1, Weight: 3.0 / 16},
		{DX: 0, DY: 1, Weight: 5.0 / 16},
		{DX: +1, DY: 1, Weight: 1.0 / 16},
	}

	// AtkinsonKernel propagates only 6/8 of the residual, trading some local
	// contrast for less smearing:
	//
	//	    *  1  1
	//	 1  1  1
	//	    1        (/8)
	AtkinsonKernel = Kernel{
		{DX: +1, DY: 0, Weight: 1.0 / 8},
		{DX: +2, DY: 0, Weight: 1.0 / 8},
		{DX: -1, DY: 1, Weight: 1.0 / 8},
		{DX: 0, DY: 1, Weight: 1.0 / 8},
		{DX: +1, DY: 1, Weight: 1.0 / 8},
		{DX: 0, DY: 2, Weight: 1.0 / 8},
	}
)

func FloydSteinberg(l *tone.Luma, o Options) *mask.Mask {
	return Diffuse(l, FloydSteinbergKernel, o)
}

func Atkinson(l *tone.Luma, o Options) *mask.Mask {
	return Diffuse(l, AtkinsonKernel, o)
}

// Diffuse quantizes every pixel to ink (0) or paper (maximum of the scale)
// against the error-accumulated value and distributes the residual
// (old - new) to the neighbors named by k. l is not modified.
//
// Protected pixels are decided by TextThreshold against their input value.
// They neither use the error accumulated at their position nor emit any.
func Diffuse(l *tone.Luma, k Kernel, o Options) *mask.Mask {
	out := mask.New(l.W, l.H)
	acc := l.Clone()
	max := l.Scale.Max()
	t := threshold(o.Threshold, l.Scale)
	tt := threshold(TextThreshold, l.Scale)
	w, h := l.W, l.H
	for y := 0; y < h; y++ {
		dir := 1
		x0, x1 := 0, w // [x0, x1) in scan order
		if o.Serpentine && y%2 == 1 {
			dir = -1
			x0, x1 = w-1, -1
		}
		for x := x0; x != x1; x += dir {
			i := y*w + x
			if protected(o, i) {
				ink := l.Pix[i] < tt
				out.Bits[i] = ink
				if ink {
					acc.Pix[i] = 0
				} else {
					acc.Pix[i] = max
				}
				continue
			}
			old := acc.Pix[i]
			var nw float32
			if old < t {
				out.Bits[i] = true
			} else {
				nw = max
			}
			acc.Pix[i] = nw
			residual := old - nw
			if residual == 0 {
				continue
			}
			for _, tap := range k {
				xx := x + tap.DX*dir
				yy := y + tap.DY
				if xx < 0 || xx >= w || yy >= h {
					continue
				}
				acc.Pix[yy*w+xx] += residual * tap.Weight
			}
		}
	}
	return out
}
