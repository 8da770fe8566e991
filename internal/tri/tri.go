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

// Package tri implements the TRI container: two packed bit planes (black and
// red) for a tricolor e-paper panel.
//
// Layout, all integers little-endian:
//
//	offset 0  "TRI1"
//	offset 4  uint16 width
//	offset 6  uint16 height
//	offset 8  black plane, bitplane.PlaneSize(width, height) bytes
//	then      red plane, same size
//
// There is no trailing length field; bytes after the red plane are ignored.
package tri

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"io/ioutil"

	"github.com/google/renameio"
	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/bitplane"
	"github.com/stapelberg/tricard/internal/mask"
)

// Magic identifies a TRI artifact.
const Magic = "TRI1"

// HeaderSize is the size of magic plus dimensions.
const HeaderSize = 8

var (
	White = color.RGBA{255, 255, 255, 255}
	Black = color.RGBA{0, 0, 0, 255}
	Red   = color.RGBA{220, 0, 0, 255}
)

// Artifact is a decoded TRI file.
type Artifact struct {
	Width, Height int
	Black, Red    *mask.Mask
}

// Size returns the encoded length of a width×height artifact.
func Size(width, height int) int {
	return HeaderSize + 2*bitplane.PlaneSize(width, height)
}

// Marshal encodes the two planes. Both masks must have the same dimensions,
// each at most tricard.MaxDimension.
func Marshal(black, red *mask.Mask) ([]byte, error) {
	if !black.SameSize(red) {
		return nil, fmt.Errorf("black plane is %dx%d, red plane is %dx%d: %w",
			black.W, black.H, red.W, red.H, tricard.ErrInvalidParameters)
	}
	if black.W > tricard.MaxDimension || black.H > tricard.MaxDimension {
		return nil, fmt.Errorf("%dx%d exceeds %d: %w",
			black.W, black.H, tricard.MaxDimension, tricard.ErrDimensionOverflow)
	}
	b := make([]byte, HeaderSize, Size(black.W, black.H))
	copy(b, Magic)
	binary.LittleEndian.PutUint16(b[4:], uint16(black.W))
	binary.LittleEndian.PutUint16(b[6:], uint16(black.H))
	b = append(b, bitplane.Pack(black)...)
	b = append(b, bitplane.Pack(red)...)
	return b, nil
}

// Marshal encodes a.
func (a *Artifact) Marshal() ([]byte, error) {
	return Marshal(a.Black, a.Red)
}

// Encode writes the encoded planes to w. Nothing is written if encoding fails.
func Encode(w io.Writer, black, red *mask.Mask) error {
	b, err := Marshal(black, red)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Unmarshal decodes a TRI artifact. Any structural problem results in an
// error wrapping tricard.ErrMalformedArtifact.
func Unmarshal(b []byte) (*Artifact, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("header: got %d bytes, want %d: %w", len(b), HeaderSize, tricard.ErrMalformedArtifact)
	}
	if got := string(b[:4]); got != Magic {
		return nil, fmt.Errorf("magic %q, want %q: %w", got, Magic, tricard.ErrMalformedArtifact)
	}
	width := int(binary.LittleEndian.Uint16(b[4:]))
	height := int(binary.LittleEndian.Uint16(b[6:]))
	size := bitplane.PlaneSize(width, height)
	if got, want := len(b), HeaderSize+2*size; got < want {
		return nil, fmt.Errorf("%dx%d artifact truncated: got %d bytes, want %d: %w",
			width, height, got, want, tricard.ErrMalformedArtifact)
	}
	black, err := bitplane.Unpack(b[HeaderSize:HeaderSize+size], width, height)
	if err != nil {
		return nil, err
	}
	red, err := bitplane.Unpack(b[HeaderSize+size:HeaderSize+2*size], width, height)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Width:  width,
		Height: height,
		Black:  black,
		Red:    red,
	}, nil
}

// Decode reads a TRI artifact from r. Only as many bytes as the header
// announces are consumed.
func Decode(r io.Reader) (*Artifact, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("header: %v: %w", err, tricard.ErrMalformedArtifact)
		}
		return nil, err
	}
	if got := string(hdr[:4]); got != Magic {
		return nil, fmt.Errorf("magic %q, want %q: %w", got, Magic, tricard.ErrMalformedArtifact)
	}
	width := int(binary.LittleEndian.Uint16(hdr[4:]))
	height := int(binary.LittleEndian.Uint16(hdr[6:]))
	// The header is untrusted: buffer only what r actually delivers, up to
	// the size the header claims.
	var buf bytes.Buffer
	buf.Write(hdr[:])
	want := int64(Size(width, height) - HeaderSize)
	n, err := buf.ReadFrom(io.LimitReader(r, want))
	if err != nil {
		return nil, err
	}
	if n < want {
		return nil, fmt.Errorf("%dx%d planes: got %d of %d bytes: %w", width, height, n, want, tricard.ErrMalformedArtifact)
	}
	return Unmarshal(buf.Bytes())
}

// WriteFile atomically replaces path with data: readers see either the old
// file or the complete new one.
func WriteFile(path string, data []byte) error {
	o, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer o.Cleanup()
	if _, err := io.Copy(o, bytes.NewReader(data)); err != nil {
		return err
	}
	return o.CloseAtomicallyReplace()
}

// ReadFile reads and decodes the TRI artifact at path.
func ReadFile(path string) (*Artifact, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Preview renders the planes as the panel would show them: paper white, black
// ink, red ink. Red is drawn last.
func Preview(black, red *mask.Mask) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, black.W, black.H))
	for y := 0; y < black.H; y++ {
		for x := 0; x < black.W; x++ {
			c := White
			if black.At(x, y) {
				c = Black
			}
			if red != nil && red.At(x, y) {
				c = Red
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Preview renders a.
func (a *Artifact) Preview() *image.RGBA {
	return Preview(a.Black, a.Red)
}
