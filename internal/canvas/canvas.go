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

// Package canvas implements input images, which are decoded lazily and fitted
// to the panel size before conversion.
package canvas

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/ioutil"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/stapelberg/tricard"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUndecodable is returned when the input is not an image in a supported
// format (PNG, JPEG, GIF, BMP, WebP).
var ErrUndecodable = errors.New("undecodable image")

// MaxPixels limits the decoded size of an input image.
const MaxPixels = 64 << 20

type Any struct {
	raw    []byte
	img    image.Image
	format string
}

func FromBytes(b []byte) *Any {
	return &Any{raw: b}
}

func FromImage(img image.Image) *Any {
	return &Any{img: img}
}

// Load reads the file at path. Decoding is deferred until Image is called.
func Load(path string) (*Any, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes(b), nil
}

// Bytes returns the encoded image, or nil if the canvas was created from an
// image.Image.
func (c *Any) Bytes() []byte {
	return c.raw
}

// Format returns the name of the decoded format, e.g. "png". It is empty
// until Image was called successfully.
func (c *Any) Format() string {
	return c.format
}

func (c *Any) Image() (image.Image, error) {
	if c.img != nil {
		return c.img, nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(c.raw))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUndecodable)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%s image of %dx%d pixels exceeds %d: %w",
			format, cfg.Width, cfg.Height, MaxPixels, tricard.ErrDimensionOverflow)
	}
	img, format, err := image.Decode(bytes.NewReader(c.raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", format, err, ErrUndecodable)
	}
	c.img, c.format = img, format
	return c.img, nil
}

// Fit scales img to fit within w×h without cropping, preserving its aspect
// ratio, and centers it on a white w×h canvas. Transparent pixels are
// composited onto white. Images already at w×h are only flattened.
func Fit(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	sb := img.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}
	if sw == w && sh == h {
		draw.Draw(dst, dst.Bounds(), img, sb.Min, draw.Over)
		return dst
	}

	// scale by the limiting side; integer arithmetic keeps the other side
	// exact when it already matches
	nw, nh := w, h
	if sw*h > sh*w {
		nh = (sh*w + sw/2) / sw
	} else {
		nw = (sw*h + sh/2) / sh
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	x0 := (w - nw) / 2
	y0 := (h - nh) / 2
	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+nw, y0+nh), img, sb, draw.Over, nil)
	return dst
}
