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
	"fmt"
	"image"
	"math"
	"math/rand"
	"testing"
)

func randomGray(w, h int, seed int64) *image.Gray {
	rnd := rand.New(rand.NewSource(seed))
	g := image.NewGray(image.Rect(0, 0, w, h))
	rnd.Read(g.Pix)
	return g
}

func TestFixed(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 1))
	copy(g.Pix, []uint8{0, 127, 128, 255})
	got := Fixed(g, 128)
	want := []bool{true, true, false, false}
	for i := range want {
		if got.Bits[i] != want[i] {
			t.Errorf("pixel %d (value %d): got %v, want %v", i, g.Pix[i], got.Bits[i], want[i])
		}
	}
}

func TestFixedMonotonic(t *testing.T) {
	g := randomGray(37, 23, 1)
	for t1 := 0; t1 < 256; t1 += 17 {
		for t2 := t1 + 1; t2 < 256; t2 += 29 {
			lo := Fixed(g, uint8(t1))
			hi := Fixed(g, uint8(t2))
			for i := range lo.Bits {
				if lo.Bits[i] && !hi.Bits[i] {
					t.Fatalf("ink(%d) ⊄ ink(%d) at pixel %d (value %d)", t1, t2, i, g.Pix[i])
				}
			}
		}
	}
}

func TestIntegralMatchesNaive(t *testing.T) {
	g := randomGray(13, 9, 2)
	ii := NewIntegral(g)
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, 13, 9),
		image.Rect(0, 0, 1, 1),
		image.Rect(3, 2, 7, 8),
		image.Rect(12, 8, 13, 9),
	} {
		var sum, sqsum uint64
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				v := uint64(g.GrayAt(x, y).Y)
				sum += v
				sqsum += v * v
			}
		}
		if got := ii.Sum(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y); got != sum {
			t.Errorf("Sum(%v) = %d, want %d", r, got, sum)
		}
		if got := ii.SqSum(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y); got != sqsum {
			t.Errorf("SqSum(%v) = %d, want %d", r, got, sqsum)
		}
	}
}

// naiveSauvola computes the same threshold with an O(window²) box sum per
// pixel.
func naiveSauvola(g *image.Gray, window int, k float64) []bool {
	if window%2 == 0 {
		window++
	}
	r := window / 2
	b := g.Bounds()
	out := make([]bool, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			var sum, sqsum, n float64
			for yy := max(y-r, 0); yy < min(y+r+1, b.Dy()); yy++ {
				for xx := max(x-r, 0); xx < min(x+r+1, b.Dx()); xx++ {
					v := float64(g.GrayAt(xx, yy).Y)
					sum += v
					sqsum += v * v
					n++
				}
			}
			m := sum / n
			v := sqsum/n - m*m
			if v < 0 {
				v = 0
			}
			t := m * (1 + k*(math.Sqrt(v)/128-1))
			t = math.Min(math.Max(t, 0), 255)
			out[y*b.Dx()+x] = float64(g.GrayAt(x, y).Y) < t
		}
	}
	return out
}

func TestSauvolaMatchesNaive(t *testing.T) {
	g := randomGray(31, 17, 3)
	for _, window := range []int{3, 4, 7, 15, 101} {
		t.Run(fmt.Sprintf("window=%d", window), func(t *testing.T) {
			got := Sauvola(g, window, 0.2)
			want := naiveSauvola(g, window, 0.2)
			for i := range want {
				if got.Bits[i] != want[i] {
					t.Fatalf("pixel %d: got %v, want %v", i, got.Bits[i], want[i])
				}
			}
		})
	}
}

func TestSauvolaUniform(t *testing.T) {
	for _, v := range []uint8{0, 1, 100, 128, 254, 255} {
		for _, window := range []int{3, 31} {
			for _, k := range []float64{0, 0.2, 0.5, 1} {
				g := image.NewGray(image.Rect(0, 0, 20, 10))
				for i := range g.Pix {
					g.Pix[i] = v
				}
				m := Sauvola(g, window, k)
				if n := m.Count(); n != 0 && n != len(m.Bits) {
					t.Errorf("value %d, window %d, k %v: mask not uniform (%d of %d set)", v, window, k, n, len(m.Bits))
				}
			}
		}
	}
}

func TestSauvolaDarkTextOnLightBackground(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 9, 9))
	for i := range g.Pix {
		g.Pix[i] = 220
	}
	g.Pix[4*9+4] = 30
	m := Sauvola(g, 5, 0.2)
	if !m.At(4, 4) {
		t.Errorf("dark center pixel not marked as ink")
	}
	if got, want := m.Count(), 1; got != want {
		t.Errorf("unexpected number of ink pixels: got %d, want %d", got, want)
	}
}

func BenchmarkSauvola(b *testing.B) {
	g := randomGray(480, 670, 4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Sauvola(g, 31, 0.2)
	}
}
