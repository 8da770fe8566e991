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

// Package artifactstore persists renders (the fitted canvas, parameters, TRI
// artifact and preview) to the file system. Every file is written atomically
// and a render only counts as complete once its marker file exists.
package artifactstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/convert"
	"github.com/stapelberg/tricard/internal/tri"
)

// ErrNotFound is returned for ids which do not name a render in the store.
var ErrNotFound = errors.New("render not found")

// File names within a render directory.
const (
	CanvasFile  = "canvas.png"
	ParamsFile  = "params.json"
	CardFile    = "card.tri"
	PreviewFile = "preview.png"
)

type Store struct {
	Dir string
}

type State int

func (s State) String() string {
	switch s {
	case Incomplete:
		return "Incomplete"
	case Complete:
		return "Complete"
	default:
		return "<unknown>"
	}
}

const (
	Incomplete State = iota
	Complete
)

type Render struct {
	id     string
	dir    string
	state  State
	Params tricard.Params

	// Published is set once the render was announced via MQTT.
	Published bool

	// Completed is the modification time of the completion marker.
	Completed time.Time
}

// Add stores res under a new random id.
func (s *Store) Add(res *convert.Result) (*Render, error) {
	id := uuid.New().String()
	dir := filepath.Join(s.Dir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	r := &Render{id: id, dir: dir, Params: res.Params}

	card, err := res.Marshal()
	if err != nil {
		return nil, err
	}
	params, err := json.MarshalIndent(res.Params, "", "  ")
	if err != nil {
		return nil, err
	}
	var canvas, preview bytes.Buffer
	if err := png.Encode(&canvas, res.Canvas); err != nil {
		return nil, err
	}
	if err := png.Encode(&preview, res.Preview()); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		name     string
		contents []byte
	}{
		{CanvasFile, canvas.Bytes()},
		{ParamsFile, params},
		{CardFile, card},
		{PreviewFile, preview.Bytes()},
	} {
		if err := tri.WriteFile(filepath.Join(dir, f.name), f.contents); err != nil {
			return nil, err
		}
	}
	if err := r.CommitMarker("render"); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns all renders in the store, including incomplete ones.
func (s *Store) List() ([]*Render, error) {
	entries, err := ioutil.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	renders := make([]*Render, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		r, err := s.ByID(entry.Name())
		if err != nil {
			return nil, err
		}
		renders = append(renders, r)
	}
	return renders, nil
}

// ByID loads the render named id. It returns an error wrapping ErrNotFound if
// id is not a valid render id or no such render exists.
func (s *Store) ByID(id string) (*Render, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("render id %q: %w", id, ErrNotFound)
	}
	r := &Render{
		id:  id,
		dir: filepath.Join(s.Dir, id),
	}
	if err := r.readStateFromDir(); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("render %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return r, nil
}

func (r *Render) readStateFromDir() error {
	entries, err := ioutil.ReadDir(r.dir)
	if err != nil {
		return err
	}
	r.state = Incomplete // zero value
	for _, entry := range entries {
		switch entry.Name() {
		case "COMPLETE.render":
			r.state = Complete
			r.Completed = entry.ModTime()
		case "COMPLETE.publish":
			r.Published = true
		case ParamsFile:
			b, err := ioutil.ReadFile(filepath.Join(r.dir, ParamsFile))
			if err != nil {
				return err
			}
			if err := json.Unmarshal(b, &r.Params); err != nil {
				return fmt.Errorf("%s: %v", filepath.Join(r.dir, ParamsFile), err)
			}
		}
	}
	return nil
}

func (r *Render) ID() string {
	return r.id
}

func (r *Render) State() State {
	return r.state
}

// Path returns the path of the named file within the render directory.
func (r *Render) Path(name string) string {
	return filepath.Join(r.dir, name)
}

// Card returns the encoded TRI artifact.
func (r *Render) Card() ([]byte, error) {
	return ioutil.ReadFile(r.Path(CardFile))
}

func (r *Render) Artifact() (*tri.Artifact, error) {
	return tri.ReadFile(r.Path(CardFile))
}

func (r *Render) CommitMarker(name string) error {
	if err := tri.WriteFile(filepath.Join(r.dir, "COMPLETE."+name), nil); err != nil {
		return err
	}
	return r.readStateFromDir()
}
