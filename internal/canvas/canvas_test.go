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

package canvas

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stapelberg/tricard"
)

func uniform(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, uniform(3, 2, color.Black)); err != nil {
		t.Fatal(err)
	}
	c := FromBytes(buf.Bytes())
	img, err := c.Image()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := img.Bounds(), image.Rect(0, 0, 3, 2); got != want {
		t.Errorf("unexpected bounds: got %v, want %v", got, want)
	}
	if got, want := c.Format(), "png"; got != want {
		t.Errorf("unexpected format: got %q, want %q", got, want)
	}
}

func TestImageUndecodable(t *testing.T) {
	_, err := FromBytes([]byte("not an image")).Image()
	if !errors.Is(err, ErrUndecodable) {
		t.Errorf("Image() = %v, want ErrUndecodable", err)
	}
}

func TestImageTooLarge(t *testing.T) {
	var buf bytes.Buffer
	// only the header is inspected before rejecting
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	// IHDR width and height live at offsets 16 and 20
	copy(b[16:], []byte{0, 0x01, 0, 0})
	copy(b[20:], []byte{0, 0x01, 0, 0})
	binary.BigEndian.PutUint32(b[29:], crc32.ChecksumIEEE(b[12:29]))
	_, err := FromBytes(b).Image()
	if !errors.Is(err, tricard.ErrDimensionOverflow) {
		t.Errorf("Image() = %v, want ErrDimensionOverflow", err)
	}
}

func TestFitSameSize(t *testing.T) {
	src := uniform(4, 4, color.RGBA{10, 20, 30, 255})
	got := Fit(src, 4, 4)
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Errorf("Fit changed an image already at target size")
	}
}

func TestFitTransparent(t *testing.T) {
	got := Fit(image.NewNRGBA(image.Rect(0, 0, 2, 2)), 2, 2)
	if c := got.RGBAAt(1, 1); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("transparent pixel = %v, want white", c)
	}
}

func TestFitLetterbox(t *testing.T) {
	// 2×1 black into 4×4: scaled to 4×2, rows 1 and 2
	got := Fit(uniform(2, 1, color.Black), 4, 4)
	for y := 0; y < 4; y++ {
		want := color.RGBA{255, 255, 255, 255}
		if y == 1 || y == 2 {
			want = color.RGBA{0, 0, 0, 255}
		}
		for x := 0; x < 4; x++ {
			if c := got.RGBAAt(x, y); c != want {
				t.Errorf("pixel (%d, %d) = %v, want %v", x, y, c, want)
			}
		}
	}
}

func TestFitPillarbox(t *testing.T) {
	// 1×4 black into 6×4: scaled to 1×4, centered at column 2
	got := Fit(uniform(1, 4, color.Black), 6, 4)
	for x := 0; x < 6; x++ {
		want := color.RGBA{255, 255, 255, 255}
		if x == 2 {
			want = color.RGBA{0, 0, 0, 255}
		}
		if c := got.RGBAAt(x, 0); c != want {
			t.Errorf("pixel (%d, 0) = %v, want %v", x, c, want)
		}
	}
}
