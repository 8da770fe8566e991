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

package tricard

import (
	"flag"
	"io/ioutil"
	"net/url"
)

// RegisterFlags defines one flag per field of p on fs, with the current
// values of p as defaults. The same names are accepted as HTTP query
// parameters by ParamsFromValues.
func (p *Params) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&p.Width, "w", p.Width, "target width in pixels (panel width)")
	fs.IntVar(&p.Height, "h", p.Height, "target height in pixels (panel height). Inputs of a different size are scaled to fit and centered on white")
	fs.Float64Var(&p.Contrast, "contrast", p.Contrast, "contrast factor, 1 leaves the image unchanged")
	fs.Float64Var(&p.Sharpness, "sharpness", p.Sharpness, "sharpness factor, 1 leaves the image unchanged, 0 blurs, >1 sharpens")
	fs.Float64Var(&p.Gamma, "gamma", p.Gamma, "gamma applied to 8-bit gray values (legacy tone only)")
	fs.TextVar(&p.Tone, "tone", p.Tone, "tone pipeline: linear (sRGB to linear light luma) or legacy (8-bit grayscale)")
	fs.TextVar(&p.Method, "method", p.Method, "binarization without dithering: fixed or adaptive (Sauvola)")
	fs.IntVar(&p.Threshold, "threshold", p.Threshold, "threshold in [0, 255] for fixed binarization and dithering")
	fs.IntVar(&p.AdaptiveWindow, "adaptive_window", p.AdaptiveWindow, "Sauvola window size in pixels (odd, >= 3)")
	fs.Float64Var(&p.AdaptiveK, "adaptive_k", p.AdaptiveK, "Sauvola k in [0, 1]")
	fs.TextVar(&p.Dither, "dither", p.Dither, "dithering: none, floyd_steinberg, atkinson or bayer")
	fs.BoolVar(&p.Serpentine, "serpentine", p.Serpentine, "scan odd rows right to left when diffusing errors")
	fs.TextVar(&p.RedMode, "red_mode", p.RedMode, "red plane: auto (detect by RGB thresholds) or none")
	fs.IntVar(&p.Red.RMin, "red_r_min", p.Red.RMin, "minimum red channel value of red ink")
	fs.IntVar(&p.Red.GMax, "red_g_max", p.Red.GMax, "maximum green channel value of red ink")
	fs.IntVar(&p.Red.BMax, "red_b_max", p.Red.BMax, "maximum blue channel value of red ink")
	fs.BoolVar(&p.ProtectText, "protect_text", p.ProtectText, "render detected text with a plain threshold instead of dithering it")
	fs.TextVar(&p.Precedence, "precedence", p.Precedence, "which plane wins where both would be inked: red_over_black or black_over_red")
	fs.BoolVar(&p.Background.Enabled, "remove_bg", p.Background.Enabled, "flood-fill dark background from the image border and paint it white")
	fs.IntVar(&p.Background.DarkThreshold, "bg_threshold", p.Background.DarkThreshold, "luma at or below which a pixel counts as background")
	fs.IntVar(&p.Background.Feather, "feather", p.Background.Feather, "number of 4-connected dilations applied to the background mask")
}

// ParamsFromValues starts from DefaultParams, applies v (as sent in an HTTP
// query string) and validates the result. Unknown names are rejected.
func ParamsFromValues(v url.Values) (Params, error) {
	p := DefaultParams()
	fs := flag.NewFlagSet("params", flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	p.RegisterFlags(fs)
	for name, vals := range v {
		if len(vals) == 0 {
			continue
		}
		if fs.Lookup(name) == nil {
			return Params{}, invalid("unknown parameter %q", name)
		}
		if err := fs.Set(name, vals[len(vals)-1]); err != nil {
			return Params{}, invalid("%s: %v", name, err)
		}
	}
	return NewParams(p)
}
