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

// Package httpconvert implements an HTTP API around the conversion pipeline.
//
// # Example Usage
//
// You can use this API with curl on the command line like so:
//
//	curl --data-binary "@card.png" -o card.tri 'http://localhost:7130/api/convert?dither=atkinson'
//	curl --data-binary "@card.png" -o preview.png 'http://localhost:7130/api/preview?method=adaptive'
//	curl --data-binary "@card.tri" -o preview.png http://localhost:7130/api/view
package httpconvert

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/artifactstore"
	"github.com/stapelberg/tricard/internal/canvas"
	"github.com/stapelberg/tricard/internal/convert"
	"github.com/stapelberg/tricard/internal/httperr"
	"github.com/stapelberg/tricard/internal/tri"
	"golang.org/x/net/trace"
)

// DefaultMaxBodyBytes limits uploaded images and artifacts.
const DefaultMaxBodyBytes = 32 << 20

// shiftPath from
// https://blog.merovius.de/2017/06/18/how-not-to-use-an-http-router.html:

// shiftPath splits off the first component of p, which will be cleaned of
// relative components before processing. head will never contain a slash and
// tail will always be a rooted path without trailing slash.
func shiftPath(p string) (head, tail string) {
	p = path.Clean("/" + p)
	i := strings.Index(p[1:], "/") + 1
	if i <= 0 {
		return p[1:], "/"
	}
	return p[1:i], p[i:]
}

type Options struct {
	// Store, if non-nil, persists every render of /convert.
	Store *artifactstore.Store

	// OnRender, if non-nil, is called after a render was stored.
	OnRender func(*artifactstore.Render)

	// MaxBodyBytes defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

func requirePost(r *http.Request) error {
	if got, want := r.Method, "POST"; got != want {
		return httperr.Error(
			http.StatusMethodNotAllowed,
			fmt.Errorf("unexpected HTTP method: got %v, want %v", got, want))
	}
	return nil
}

func writePNG(w http.ResponseWriter, enc func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := enc(&buf); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "image/png")
	_, err := io.Copy(w, &buf)
	return err
}

func ServeMux(opts Options) *http.ServeMux {
	maxBody := opts.MaxBodyBytes
	if maxBody == 0 {
		maxBody = DefaultMaxBodyBytes
	}

	// convertRequest decodes the uploaded image and converts it with the
	// parameters from the query string.
	convertRequest := func(w http.ResponseWriter, r *http.Request) (*convert.Result, error) {
		if err := requirePost(r); err != nil {
			return nil, err
		}
		p, err := tricard.ParamsFromValues(r.URL.Query())
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			return nil, httperr.Error(http.StatusRequestEntityTooLarge, err)
		}
		img, err := canvas.FromBytes(b).Image()
		if err != nil {
			return nil, err
		}
		tr := trace.New("Convert", r.URL.Path)
		defer tr.Finish()
		tr.LazyPrintf("%d byte upload, params %+v", len(b), p)
		res, err := convert.Convert(tr, img, p)
		if err != nil {
			tr.LazyPrintf("%v", err)
			tr.SetError()
			return nil, err
		}
		return res, nil
	}

	serveMux := http.NewServeMux()

	serveMux.Handle("/convert", httperr.Handle(func(w http.ResponseWriter, r *http.Request) error {
		res, err := convertRequest(w, r)
		if err != nil {
			return err
		}
		card, err := res.Marshal()
		if err != nil {
			return err
		}
		if opts.Store != nil {
			render, err := opts.Store.Add(res)
			if err != nil {
				return err
			}
			w.Header().Set("X-Render-Id", render.ID())
			if opts.OnRender != nil {
				opts.OnRender(render)
			}
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="card.tri"`)
		_, err = w.Write(card)
		return err
	}))

	serveMux.Handle("/preview", httperr.Handle(func(w http.ResponseWriter, r *http.Request) error {
		res, err := convertRequest(w, r)
		if err != nil {
			return err
		}
		return writePNG(w, func(wr io.Writer) error {
			return png.Encode(wr, res.Preview())
		})
	}))

	serveMux.Handle("/view", httperr.Handle(func(w http.ResponseWriter, r *http.Request) error {
		if err := requirePost(r); err != nil {
			return err
		}
		a, err := tri.Decode(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			return err
		}
		if int64(a.Width)*int64(a.Height) > canvas.MaxPixels {
			return fmt.Errorf("preview of %dx%d pixels exceeds %d: %w",
				a.Width, a.Height, canvas.MaxPixels, tricard.ErrDimensionOverflow)
		}
		return writePNG(w, func(wr io.Writer) error {
			return png.Encode(wr, a.Preview())
		})
	}))

	serveMux.Handle("/render/", httperr.Handle(func(w http.ResponseWriter, r *http.Request) error {
		if opts.Store == nil {
			return httperr.Error(
				http.StatusNotFound,
				fmt.Errorf("no artifact store configured"))
		}
		var id, file string
		id, r.URL.Path = shiftPath(strings.TrimPrefix(r.URL.Path, "/render/"))
		file, _ = shiftPath(r.URL.Path)
		render, err := opts.Store.ByID(id)
		if err != nil {
			return err
		}
		if render.State() != artifactstore.Complete {
			return httperr.Error(
				http.StatusNotFound,
				fmt.Errorf("render %s is %v", id, render.State()))
		}
		switch file {
		case artifactstore.CardFile:
			w.Header().Set("Content-Type", "application/octet-stream")
		case artifactstore.PreviewFile, artifactstore.CanvasFile:
			w.Header().Set("Content-Type", "image/png")
		case artifactstore.ParamsFile:
			w.Header().Set("Content-Type", "application/json")
		default:
			return httperr.Error(
				http.StatusNotFound,
				fmt.Errorf("file %q not found", file))
		}
		http.ServeFile(w, r, render.Path(file))
		return nil
	}))

	return serveMux
}
