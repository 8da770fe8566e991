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

// Package mask implements boolean pixel planes, as used for the black and red
// ink planes and for the text protection plane.
package mask

// Mask is a W×H plane of booleans in row-major order. true means ink (or
// protected, or background, depending on the producer).
type Mask struct {
	W, H int
	Bits []bool
}

// New returns an all-false mask.
func New(w, h int) *Mask {
	return &Mask{W: w, H: h, Bits: make([]bool, w*h)}
}

func (m *Mask) At(x, y int) bool {
	return m.Bits[y*m.W+x]
}

func (m *Mask) Set(x, y int, v bool) {
	m.Bits[y*m.W+x] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	var n int
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

func (m *Mask) SameSize(o *Mask) bool {
	return m.W == o.W && m.H == o.H
}

func (m *Mask) Equal(o *Mask) bool {
	if !m.SameSize(o) {
		return false
	}
	for i, b := range m.Bits {
		if o.Bits[i] != b {
			return false
		}
	}
	return true
}

func (m *Mask) Clone() *Mask {
	c := New(m.W, m.H)
	copy(c.Bits, m.Bits)
	return c
}

// Or returns m ∨ o. Both masks must have the same size. A nil o is treated as
// all-false.
func (m *Mask) Or(o *Mask) *Mask {
	out := m.Clone()
	if o == nil {
		return out
	}
	for i, b := range o.Bits {
		if b {
			out.Bits[i] = true
		}
	}
	return out
}

// AndNot returns m ∧ ¬o.
func (m *Mask) AndNot(o *Mask) *Mask {
	out := m.Clone()
	if o == nil {
		return out
	}
	for i, b := range o.Bits {
		if b {
			out.Bits[i] = false
		}
	}
	return out
}

// Intersects reports whether any pixel is set in both m and o.
func (m *Mask) Intersects(o *Mask) bool {
	for i, b := range m.Bits {
		if b && o.Bits[i] {
			return true
		}
	}
	return false
}

// Dilate4 returns m dilated with the 4-connected cross structuring element,
// iterations times. Pixels outside the plane count as unset; there is no
// wrap-around.
func (m *Mask) Dilate4(iterations int) *Mask {
	cur := m.Clone()
	for i := 0; i < iterations; i++ {
		next := cur.Clone()
		for y := 0; y < cur.H; y++ {
			row := y * cur.W
			for x := 0; x < cur.W; x++ {
				if !cur.Bits[row+x] {
					continue
				}
				if x > 0 {
					next.Bits[row+x-1] = true
				}
				if x+1 < cur.W {
					next.Bits[row+x+1] = true
				}
				if y > 0 {
					next.Bits[row-cur.W+x] = true
				}
				if y+1 < cur.H {
					next.Bits[row+cur.W+x] = true
				}
			}
		}
		cur = next
	}
	return cur
}
