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

// Package httperr implements middleware which serves returned errors with an
// HTTP status code derived from the error kind.
package httperr

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/artifactstore"
	"github.com/stapelberg/tricard/internal/canvas"
)

type Err struct {
	Code int
	Err  error
}

func (h *Err) Error() string {
	return h.Err.Error()
}

func (h *Err) Unwrap() error {
	return h.Err
}

func Error(code int, err error) error {
	return &Err{code, err}
}

// Code returns the HTTP status code for err. An explicit *Err wins, otherwise
// the error kind decides.
func Code(err error) int {
	var he *Err
	if errors.As(err, &he) {
		return he.Code
	}
	switch {
	case errors.Is(err, tricard.ErrInvalidParameters),
		errors.Is(err, tricard.ErrMalformedArtifact),
		errors.Is(err, tricard.ErrDimensionOverflow):
		return http.StatusBadRequest
	case errors.Is(err, canvas.ErrUndecodable):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, artifactstore.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func Handle(h func(http.ResponseWriter, *http.Request) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path // will be modified during request processing
		err := h(w, r)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) {
			return // client canceled the request
		}
		code := Code(err)
		log.Printf("%s: HTTP %d %s", path, code, err)
		http.Error(w, err.Error(), code)
	})
}
