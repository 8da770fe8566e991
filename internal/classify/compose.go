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

package classify

import (
	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/mask"
)

// Regions is the per-pixel policy decision of one conversion.
type Regions struct {
	// Red is the red ink plane as detected.
	Red *mask.Mask

	// Text marks pixels rendered by plain threshold without error diffusion.
	// Nil if text protection is disabled.
	Text *mask.Mask

	// Reserved marks pixels which the black plane must leave as paper. With
	// RedOverBlack this is Red; with BlackOverRed it is empty.
	Reserved *mask.Mask
}

// Protect returns the mask of pixels that must not take part in error
// diffusion, or nil. Reserved pixels are not protected: they are whitened
// before dithering, so they absorb and pass on error like any paper pixel.
func (r *Regions) Protect() *mask.Mask {
	return r.Text
}

// NewRegions applies precedence to the red mask.
func NewRegions(red, text *mask.Mask, p tricard.Precedence) *Regions {
	r := &Regions{Red: red, Text: text}
	if p == tricard.RedOverBlack {
		r.Reserved = red
	} else {
		r.Reserved = mask.New(red.W, red.H)
	}
	return r
}

// Planes resolves the final black and red planes from the black binarization
// result. They are disjoint: with RedOverBlack black is cleared on reserved
// pixels, with BlackOverRed red is cleared wherever black is set.
func (r *Regions) Planes(black *mask.Mask, p tricard.Precedence) (blackPlane, redPlane *mask.Mask) {
	if p == tricard.BlackOverRed {
		return black, r.Red.AndNot(black)
	}
	return black.AndNot(r.Reserved), r.Red
}
