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

// Package convert turns an arbitrary raster into the black and red planes of
// a TRI artifact.
package convert

import (
	"image"

	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/binarize"
	"github.com/stapelberg/tricard/internal/canvas"
	"github.com/stapelberg/tricard/internal/classify"
	"github.com/stapelberg/tricard/internal/dither"
	"github.com/stapelberg/tricard/internal/mask"
	"github.com/stapelberg/tricard/internal/segment"
	"github.com/stapelberg/tricard/internal/tone"
	"github.com/stapelberg/tricard/internal/tri"
	"golang.org/x/net/trace"
)

// Result holds the output of one conversion and the intermediate masks, which
// are useful for previews and debugging.
type Result struct {
	Params tricard.Params

	// Canvas is the input after fitting to the target size and background
	// removal.
	Canvas *image.RGBA

	Black, Red *mask.Mask

	// Text is nil unless Params.ProtectText is set.
	Text *mask.Mask

	// Background is nil unless Params.Background.Enabled is set.
	Background *mask.Mask
}

func (r *Result) Artifact() *tri.Artifact {
	return &tri.Artifact{
		Width:  r.Black.W,
		Height: r.Black.H,
		Black:  r.Black,
		Red:    r.Red,
	}
}

// Marshal returns the TRI encoding of the result.
func (r *Result) Marshal() ([]byte, error) {
	return tri.Marshal(r.Black, r.Red)
}

func (r *Result) Preview() *image.RGBA {
	return tri.Preview(r.Black, r.Red)
}

type nopTrace struct{}

func (nopTrace) LazyPrintf(format string, a ...interface{}) {}

type tracer interface {
	LazyPrintf(format string, a ...interface{})
}

// Convert runs the full pipeline on img. tr may be nil. img is not modified.
func Convert(tr trace.Trace, img image.Image, p tricard.Params) (*Result, error) {
	var t tracer = nopTrace{}
	if tr != nil {
		t = tr
	}

	p, err := tricard.NewParams(p)
	if err != nil {
		return nil, err
	}
	res := &Result{Params: p}

	src := canvas.Fit(img, p.Width, p.Height)
	t.LazyPrintf("fitted %v input to %dx%d", img.Bounds().Size(), p.Width, p.Height)

	if p.Background.Enabled {
		res.Background = segment.FloodFillBackground(src, uint8(p.Background.DarkThreshold), p.Background.Feather)
		src = segment.Apply(src, res.Background, segment.White).(*image.RGBA)
		t.LazyPrintf("removed %d background pixels", res.Background.Count())
	}
	res.Canvas = src

	red := mask.New(p.Width, p.Height)
	if p.RedMode == tricard.RedAuto {
		red = classify.DetectRed(src, p.Red)
	}
	t.LazyPrintf("detected %d red pixels", red.Count())

	var luma *tone.Luma
	// gray is the 8-bit view handed to text detection.
	var gray *image.Gray
	switch p.Tone {
	case tricard.ToneLegacy:
		g := tone.Grayscale(src)
		g = tone.EnhanceContrast(g, float32(p.Contrast))
		g = tone.Sharpen8(g, float32(p.Sharpness))
		g = tone.ApplyGamma(g, float32(p.Gamma))
		luma = tone.FromGray(g)
		gray = g
	default:
		l := tone.ToLinearLuma(src)
		l = tone.ApplyContrast(l, float32(p.Contrast), 0.5)
		luma = tone.Sharpen(l, float32(p.Sharpness))
		gray = tone.Grayscale(src)
	}
	t.LazyPrintf("tone %v, luma scale %v", p.Tone, luma.Scale)

	if p.Precedence == tricard.RedOverBlack {
		luma = luma.Whiten(red)
		gray = whitenGray(gray, red)
	}

	if p.ProtectText {
		res.Text = classify.DetectText(gray)
		t.LazyPrintf("protecting %d text pixels", res.Text.Count())
	}
	regions := classify.NewRegions(red, res.Text, p.Precedence)

	opts := dither.Options{
		Threshold:  uint8(p.Threshold),
		Serpentine: p.Serpentine,
		Protect:    regions.Protect(),
	}
	var black *mask.Mask
	switch p.Dither {
	case tricard.FloydSteinberg:
		t.LazyPrintf("diffusing %.3f of each residual", dither.FloydSteinbergKernel.Sum())
		black = dither.FloydSteinberg(luma, opts)
	case tricard.Atkinson:
		t.LazyPrintf("diffusing %.3f of each residual", dither.AtkinsonKernel.Sum())
		black = dither.Atkinson(luma, opts)
	case tricard.Bayer:
		black = dither.Bayer(luma, opts)
	default:
		if p.Method == tricard.Adaptive {
			black = adaptive(luma, p, opts.Protect)
		} else {
			black = dither.None(luma, opts)
		}
	}
	t.LazyPrintf("%v/%v: %d black pixels", p.Method, p.Dither, black.Count())

	res.Black, res.Red = regions.Planes(black, p.Precedence)
	return res, nil
}

// adaptive binarizes the image with Sauvola thresholding, except for protected
// pixels, which are decided by the fixed text threshold.
func adaptive(luma *tone.Luma, p tricard.Params, protect *mask.Mask) *mask.Mask {
	out := binarize.Sauvola(tone.Quantize(luma), p.AdaptiveWindow, p.AdaptiveK)
	if protect == nil {
		return out
	}
	text := dither.None(luma, dither.Options{Threshold: dither.TextThreshold})
	for i, b := range protect.Bits {
		if b {
			out.Bits[i] = text.Bits[i]
		}
	}
	return out
}

func whitenGray(g *image.Gray, m *mask.Mask) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.W, m.H))
	copy(out.Pix, g.Pix)
	for i, b := range m.Bits {
		if b {
			out.Pix[i] = 0xff
		}
	}
	return out
}
