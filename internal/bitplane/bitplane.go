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

// Package bitplane packs boolean masks into 1-bit-per-pixel planes and back.
//
// Rows are stored top to bottom, each padded to a whole number of bytes.
// Within a byte, the leftmost pixel is the most significant bit: pixel (x, y)
// is bit 7-(x%8) of byte y*RowBytes(w) + x/8. A set bit means ink.
package bitplane

import (
	"fmt"

	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/mask"
)

// RowBytes returns the number of bytes per packed row: ceil(w/8).
func RowBytes(w int) int {
	return (w + 7) / 8
}

// PlaneSize returns the exact length of a packed w×h plane.
func PlaneSize(w, h int) int {
	return RowBytes(w) * h
}

// writer collects bits MSB-first into whole bytes.
type writer struct {
	buf     []byte
	current byte
	numbits int
}

func (e *writer) writeBit(set bool) {
	e.current <<= 1
	if set {
		e.current |= 1
	}
	e.numbits++
	if e.numbits == 8 {
		e.buf = append(e.buf, e.current)
		e.current = 0
		e.numbits = 0
	}
}

// flushBits writes out a partial byte, padding it with zero bits.
func (e *writer) flushBits() {
	if e.numbits == 0 {
		return
	}
	e.buf = append(e.buf, e.current<<uint(8-e.numbits))
	e.current = 0
	e.numbits = 0
}

// Pack returns the packed plane of m, exactly PlaneSize(m.W, m.H) bytes long.
// Padding bits at the end of each row are zero.
func Pack(m *mask.Mask) []byte {
	e := writer{buf: make([]byte, 0, PlaneSize(m.W, m.H))}
	for y := 0; y < m.H; y++ {
		for _, set := range m.Bits[y*m.W : (y+1)*m.W] {
			e.writeBit(set)
		}
		// rows always start on a byte boundary
		e.flushBits()
	}
	return e.buf
}

// Unpack is the inverse of Pack. It returns an error wrapping
// tricard.ErrMalformedArtifact if b is shorter than PlaneSize(w, h); bytes
// beyond that are ignored.
func Unpack(b []byte, w, h int) (*mask.Mask, error) {
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("plane dimensions %dx%d: %w", w, h, tricard.ErrInvalidParameters)
	}
	rowBytes := RowBytes(w)
	if got, want := len(b), rowBytes*h; got < want {
		return nil, fmt.Errorf("plane data too short: got %d bytes, want %d: %w", got, want, tricard.ErrMalformedArtifact)
	}
	m := mask.New(w, h)
	for y := 0; y < h; y++ {
		row := b[y*rowBytes:]
		for x := 0; x < w; x++ {
			m.Bits[y*w+x] = row[x/8]>>(7-uint(x%8))&1 == 1
		}
	}
	return m, nil
}
