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

// Package webui implements the tricard web user interface: an upload form and
// a gallery of stored renders, backed by the HTTP API.
package webui

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/http/pprof"
	"sort"

	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/artifactstore"
	"github.com/stapelberg/tricard/internal/httperr"
	"golang.org/x/net/trace"
)

//go:embed assets/*
var assetsDir embed.FS

type Config struct {
	Store *artifactstore.Store

	// APIPrefix is the path under which the httpconvert API is mounted.
	APIPrefix string
}

type UI struct {
	store *artifactstore.Store
	tmpl  *template.Template
	api   string
}

func Init(cfg *Config) (http.Handler, error) {
	tmpl, err := template.ParseFS(assetsDir, "assets/*.tmpl")
	if err != nil {
		return nil, err
	}
	ui := &UI{
		store: cfg.Store,
		tmpl:  tmpl,
		api:   cfg.APIPrefix,
	}
	mux := http.NewServeMux()
	mux.Handle("/", httperr.Handle(ui.indexHandler))

	mux.Handle("/debug/requests", localOnly(func(w http.ResponseWriter, r *http.Request) {
		_, sensitive := AuthRequest(r)
		trace.Render(w, r, sensitive)
	}))

	mux.Handle("/debug/pprof/", localOnly(pprof.Index))
	mux.Handle("/debug/pprof/cmdline", localOnly(pprof.Cmdline))
	mux.Handle("/debug/pprof/profile", localOnly(pprof.Profile))
	mux.Handle("/debug/pprof/symbol", localOnly(pprof.Symbol))
	mux.Handle("/debug/pprof/trace", localOnly(pprof.Trace))
	return mux, nil
}

// AuthRequest admits loopback and private-network clients to the debug
// handlers. Its signature matches trace.AuthRequest.
func AuthRequest(req *http.Request) (any, sensitive bool) {
	// RemoteAddr is commonly in the form "IP" or "IP:port".
	// If it is in the form "IP:port", split off the port.
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false, false
	}
	if ip.IsLoopback() || ip.IsPrivate() {
		return true, true
	}
	return false, false
}

func localOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok, _ := AuthRequest(r); !ok {
			http.Error(w, "not allowed", http.StatusForbidden)
			return
		}
		h(w, r)
	})
}

func (ui *UI) indexHandler(w http.ResponseWriter, r *http.Request) error {
	if r.URL.Path != "/" {
		http.Error(w, "not found", http.StatusNotFound)
		return nil
	}

	var renders []*artifactstore.Render
	if ui.store != nil {
		all, err := ui.store.List()
		if err != nil {
			return err
		}
		for _, render := range all {
			if render.State() != artifactstore.Complete {
				continue
			}
			renders = append(renders, render)
		}
	}
	// newest first
	sort.Slice(renders, func(i, j int) bool {
		return renders[i].Completed.After(renders[j].Completed)
	})

	var buf bytes.Buffer
	err := ui.tmpl.ExecuteTemplate(&buf, "index.html.tmpl", map[string]interface{}{
		"api":     ui.api,
		"renders": renders,
		"ditherings": []tricard.Dither{
			tricard.NoDither,
			tricard.FloydSteinberg,
			tricard.Atkinson,
			tricard.Bayer,
		},
	})
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = io.Copy(w, &buf)
	return err
}
