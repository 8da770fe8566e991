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
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stapelberg/tricard/internal/mask"
	"github.com/stapelberg/tricard/internal/tone"
)

type ditherFunc func(*tone.Luma, Options) *mask.Mask

var algorithms = []struct {
	name string
	fn   ditherFunc
}{
	{"none", None},
	{"bayer", Bayer},
	{"floyd_steinberg", FloydSteinberg},
	{"atkinson", Atkinson},
}

func uniform(w, h int, s tone.Scale, v float32) *tone.Luma {
	l := tone.NewLuma(w, h, s)
	for i := range l.Pix {
		l.Pix[i] = v
	}
	return l
}

func random(w, h int, seed int64) *tone.Luma {
	rnd := rand.New(rand.NewSource(seed))
	l := tone.NewLuma(w, h, tone.Gray8)
	for i := range l.Pix {
		l.Pix[i] = float32(rnd.Intn(256))
	}
	return l
}

func TestKernelSums(t *testing.T) {
	if got, want := FloydSteinbergKernel.Sum(), 1.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("Floyd–Steinberg kernel sum: got %v, want %v", got, want)
	}
	// Atkinson deliberately drops 2/8 of the residual.
	if got, want := AtkinsonKernel.Sum(), 6.0/8; math.Abs(got-want) > 1e-9 {
		t.Errorf("Atkinson kernel sum: got %v, want %v", got, want)
	}
}

// extremesThreshold returns a threshold at which white stays paper and black
// stays ink. Bayer adds the threshold to the matrix, so only 0 keeps white
// free of ink.
func extremesThreshold(alg string) uint8 {
	if alg == "bayer" {
		return 0
	}
	return 128
}

func TestUniformExtremes(t *testing.T) {
	for _, alg := range algorithms {
		for _, scale := range []tone.Scale{tone.Gray8, tone.Linear} {
			for _, serpentine := range []bool{false, true} {
				name := fmt.Sprintf("%s/%v/serpentine=%v", alg.name, scale, serpentine)
				t.Run(name, func(t *testing.T) {
					o := Options{Threshold: extremesThreshold(alg.name), Serpentine: serpentine}
					if got := alg.fn(uniform(17, 9, scale, scale.Max()), o).Count(); got != 0 {
						t.Errorf("white image: got %d ink pixels, want 0", got)
					}
					if got, want := alg.fn(uniform(17, 9, scale, 0), o).Count(), 17*9; got != want {
						t.Errorf("black image: got %d ink pixels, want %d", got, want)
					}
				})
			}
		}
	}
}

func TestMidGrayDensity(t *testing.T) {
	for _, alg := range algorithms[1:] {
		t.Run(alg.name, func(t *testing.T) {
			m := alg.fn(uniform(64, 64, tone.Linear, 0.5), Options{Threshold: extremesThreshold(alg.name), Serpentine: true})
			frac := float64(m.Count()) / float64(len(m.Bits))
			if frac < 0.3 || frac > 0.7 {
				t.Errorf("ink fraction for 50%% gray: got %.2f, want roughly 0.5", frac)
			}
		})
	}
}

func TestBayerCells(t *testing.T) {
	// At 0.6 and threshold 128, a cell is paper iff 0.6 > idx/64*0.85 + 128/255,
	// i.e. for matrix indices 0 to 7.
	m := Bayer(uniform(8, 8, tone.Linear, 0.6), Options{Threshold: 128})
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			idx := int(bayer8[y][x] * 64)
			if got, want := m.At(x, y), idx >= 8; got != want {
				t.Errorf("cell (%d,%d) index %d: got ink=%v, want %v", x, y, idx, got, want)
			}
		}
	}
	if got, want := m.Count(), 56; got != want {
		t.Errorf("ink cells: got %d, want %d", got, want)
	}

	// The same decision holds on the 8-bit scale, and the tile repeats.
	g := Bayer(uniform(16, 16, tone.Gray8, 0.6*255), Options{Threshold: 128})
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if got, want := g.At(x, y), m.At(x%8, y%8); got != want {
				t.Errorf("8-bit cell (%d,%d): got ink=%v, want %v", x, y, got, want)
			}
		}
	}
}

func TestDeterministicAndInputUntouched(t *testing.T) {
	for _, alg := range algorithms {
		t.Run(alg.name, func(t *testing.T) {
			l := random(23, 19, 1)
			orig := l.Clone()
			o := Options{Threshold: 140, Serpentine: true}
			a := alg.fn(l, o)
			b := alg.fn(l, o)
			if !a.Equal(b) {
				t.Errorf("two runs on the same input differ")
			}
			for i := range l.Pix {
				if l.Pix[i] != orig.Pix[i] {
					t.Fatalf("input modified at %d: got %v, want %v", i, l.Pix[i], orig.Pix[i])
				}
			}
		})
	}
}

func TestBoundarySafety(t *testing.T) {
	for _, alg := range algorithms {
		for _, size := range [][2]int{{1, 1}, {1, 7}, {7, 1}, {2, 2}, {3, 5}} {
			t.Run(fmt.Sprintf("%s/%dx%d", alg.name, size[0], size[1]), func(t *testing.T) {
				l := random(size[0], size[1], 2)
				for _, serpentine := range []bool{false, true} {
					m := alg.fn(l, Options{Threshold: 128, Serpentine: serpentine})
					if got, want := len(m.Bits), size[0]*size[1]; got != want {
						t.Errorf("unexpected mask size: got %d, want %d", got, want)
					}
				}
			})
		}
	}
}

// serpentineSetup returns a 3×3 image in which only (2,1) and (1,2) are not
// protected. (2,1) is ink with a residual of +100; (1,2) sits just below the
// threshold and flips to paper if it receives more than 13 of that residual.
func serpentineSetup() (*tone.Luma, *mask.Mask) {
	l := uniform(3, 3, tone.Gray8, 255)
	l.Pix[1*3+2] = 100
	l.Pix[2*3+1] = 115
	p := mask.New(3, 3)
	for i := range p.Bits {
		p.Bits[i] = true
	}
	p.Set(2, 1, false)
	p.Set(1, 2, false)
	return l, p
}

func TestFloydSteinbergSerpentineMirrorsWeights(t *testing.T) {
	l, p := serpentineSetup()

	// Left to right: (1,2) is below-left of (2,1) and receives 3/16*100.
	m := FloydSteinberg(l, Options{Threshold: 128, Protect: p})
	if m.At(1, 2) {
		t.Errorf("left-to-right: (1,2) = ink, want paper (115 + 18.75 >= 128)")
	}

	// Right to left on the odd row: (1,2) is below-with-direction and receives
	// only 1/16*100.
	m = FloydSteinberg(l, Options{Threshold: 128, Serpentine: true, Protect: p})
	if !m.At(1, 2) {
		t.Errorf("serpentine: (1,2) = paper, want ink (115 + 6.25 < 128)")
	}
	if !m.At(2, 1) {
		t.Errorf("(2,1) = paper, want ink")
	}
}

func TestAtkinsonSerpentineReachesTwoAhead(t *testing.T) {
	// On a right-to-left row, (0,1) is two pixels ahead of (2,1) and receives
	// 1/8 of its residual.
	l := uniform(3, 2, tone.Gray8, 255)
	l.Pix[1*3+2] = 100
	l.Pix[1*3+0] = 120
	p := mask.New(3, 2)
	for i := range p.Bits {
		p.Bits[i] = true
	}
	p.Set(2, 1, false)
	p.Set(0, 1, false)

	m := Atkinson(l, Options{Threshold: 128, Protect: p})
	if !m.At(0, 1) {
		t.Errorf("left-to-right: (0,1) = paper, want ink (visited before (2,1))")
	}
	m = Atkinson(l, Options{Threshold: 128, Serpentine: true, Protect: p})
	if m.At(0, 1) {
		t.Errorf("serpentine: (0,1) = ink, want paper (120 + 12.5 >= 128)")
	}
}

func checkerboardProtect(w, h, cell int) *mask.Mask {
	p := mask.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Set(x, y, (x/cell+y/cell)%2 == 0)
		}
	}
	return p
}

func TestProtectedPixels(t *testing.T) {
	const w, h = 32, 24
	p := checkerboardProtect(w, h, 4)
	for _, alg := range algorithms {
		for _, serpentine := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/serpentine=%v", alg.name, serpentine), func(t *testing.T) {
				o := Options{Threshold: 100, Serpentine: serpentine, Protect: p}
				a := random(w, h, 3)
				ma := alg.fn(a, o)

				// Protected pixels equal the direct threshold of their input,
				// whatever error arrived from upstream.
				for i, prot := range p.Bits {
					if !prot {
						continue
					}
					if got, want := ma.Bits[i], a.Pix[i] < TextThreshold; got != want {
						t.Fatalf("protected pixel %d (value %v): got %v, want %v", i, a.Pix[i], got, want)
					}
				}

				// Protected pixels emit nothing: changing their values must
				// not change any unprotected decision.
				b := a.Clone()
				rnd := rand.New(rand.NewSource(4))
				for i, prot := range p.Bits {
					if prot {
						b.Pix[i] = float32(rnd.Intn(256))
					}
				}
				mb := alg.fn(b, o)
				for i, prot := range p.Bits {
					if prot {
						continue
					}
					if ma.Bits[i] != mb.Bits[i] {
						t.Fatalf("unprotected pixel %d changed when protected pixels changed", i)
					}
				}
			})
		}
	}
}

func TestNoneThreshold(t *testing.T) {
	l := tone.NewLuma(3, 1, tone.Linear)
	copy(l.Pix, []float32{0.2, 0.5, 0.9})
	m := None(l, Options{Threshold: 128})
	want := []bool{true, true, false} // 128/255 = 0.502
	for i := range want {
		if m.Bits[i] != want[i] {
			t.Errorf("pixel %d: got %v, want %v", i, m.Bits[i], want[i])
		}
	}
}

func BenchmarkFloydSteinberg(b *testing.B) {
	l := random(480, 670, 5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FloydSteinberg(l, Options{Threshold: 128, Serpentine: true})
	}
}
