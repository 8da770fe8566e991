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

// Program tri-convert converts images into TRI artifacts for tricolor
// (black/white/red) e-paper panels, or renders existing TRI artifacts as PNG.
//
// # Example Usage
//
//	tri-convert -dither=atkinson -preview card1.png card2.jpg
//	tri-convert -view_tri -zoom=2 card1.tri
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/canvas"
	"github.com/stapelberg/tricard/internal/convert"
	"github.com/stapelberg/tricard/internal/tri"
	"golang.org/x/image/draw"
	"golang.org/x/net/trace"
	"golang.org/x/sync/errgroup"
)

type outputOptions struct {
	out     string // explicit output path, single input only
	outDir  string
	preview bool
	zoom    int
}

func outputPath(in string, o outputOptions, ext string) string {
	if o.out != "" {
		if ext == ".tri" {
			return o.out
		}
		return strings.TrimSuffix(o.out, filepath.Ext(o.out)) + ext
	}
	base := strings.TrimSuffix(in, filepath.Ext(in))
	if o.outDir != "" {
		base = filepath.Join(o.outDir, filepath.Base(base))
	}
	return base + ext
}

func zoomed(img *image.RGBA, zoom int) image.Image {
	if zoom <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*zoom, b.Dy()*zoom))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func writePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return tri.WriteFile(path, buf.Bytes())
}

// convertFile converts the image at path and writes the artifact (and
// optionally a preview) next to it. A zero width or height in p is replaced
// by the size of the input image.
func convertFile(path string, p tricard.Params, o outputOptions) error {
	tr := trace.New("tri-convert", path)
	defer tr.Finish()

	c, err := canvas.Load(path)
	if err != nil {
		return err
	}
	img, err := c.Image()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if p.Width == 0 {
		p.Width = img.Bounds().Dx()
	}
	if p.Height == 0 {
		p.Height = img.Bounds().Dy()
	}
	res, err := convert.Convert(tr, img, p)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	b, err := res.Marshal()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	out := outputPath(path, o, ".tri")
	if err := tri.WriteFile(out, b); err != nil {
		return err
	}
	log.Printf("%s -> %s (%dx%d, %d bytes, %d black, %d red)",
		path, out, p.Width, p.Height, len(b), res.Black.Count(), res.Red.Count())
	if o.preview {
		fn := outputPath(path, o, ".preview.png")
		if err := writePNG(fn, zoomed(res.Preview(), o.zoom)); err != nil {
			return err
		}
		log.Printf("preview -> %s", fn)
	}
	return nil
}

// viewFile renders the TRI artifact at path as PNG.
func viewFile(path string, o outputOptions) error {
	a, err := tri.ReadFile(path)
	if err != nil {
		return err
	}
	fn := outputPath(path, outputOptions{outDir: o.outDir}, ".png")
	if o.out != "" {
		fn = o.out
	}
	if err := writePNG(fn, zoomed(a.Preview(), o.zoom)); err != nil {
		return err
	}
	log.Printf("%s (%dx%d) -> %s", path, a.Width, a.Height, fn)
	return nil
}

func logic() error {
	p := tricard.DefaultParams()
	p.RegisterFlags(flag.CommandLine)

	var o outputOptions
	flag.StringVar(&o.out, "out",
		"",
		"Output path. Only valid with a single input. Defaults to the input path with extension .tri (or .png with -view_tri)")
	flag.StringVar(&o.outDir, "out_dir",
		"",
		"If non-empty, directory in which to place output files instead of next to their inputs")
	flag.BoolVar(&o.preview, "preview",
		false,
		"Additionally write a PNG preview of each artifact to <base>.preview.png")
	flag.IntVar(&o.zoom, "zoom",
		1,
		"Integer scale factor for PNG previews")

	viewTri := flag.Bool("view_tri",
		false,
		"Treat the arguments as TRI artifacts and render them as PNG instead of converting images")

	jobs := flag.Int("jobs",
		runtime.NumCPU(),
		"Number of files to convert concurrently")

	flag.Parse()

	if flag.NArg() < 1 {
		return fmt.Errorf("syntax: tri-convert [flags] <image>...")
	}
	if o.out != "" && flag.NArg() > 1 {
		return fmt.Errorf("-out can only be used with a single input, got %d", flag.NArg())
	}
	if *jobs < 1 {
		*jobs = 1
	}

	process := func(path string) error { return convertFile(path, p, o) }
	if *viewTri {
		process = func(path string) error { return viewFile(path, o) }
	}

	eg, ctx := errgroup.WithContext(context.Background())
	eg.SetLimit(*jobs)
	for _, path := range flag.Args() {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err // another conversion failed
			}
			return process(path)
		})
	}
	return eg.Wait()
}

func main() {
	if err := logic(); err != nil {
		log.Fatal(err)
	}
}
