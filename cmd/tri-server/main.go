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

// Program tri-server serves the conversion API and a web user interface, and
// keeps every render in an on-disk store.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stapelberg/tricard/internal/artifactstore"
	"github.com/stapelberg/tricard/internal/httpconvert"
	"github.com/stapelberg/tricard/internal/mayqtt"
	"github.com/stapelberg/tricard/internal/webui"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"
)

// baseDir is the default parent of -state_dir and -renders_dir.
func baseDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "tricard"
	}
	return filepath.Join(dir, "tricard")
}

func logic() error {
	stateDir := flag.String("state_dir",
		filepath.Join(baseDir(), "state"),
		"Directory containing state such as TLS certificates")

	rendersDir := flag.String("renders_dir",
		filepath.Join(baseDir(), "renders"),
		"Directory in which every render (canvas, parameters, TRI artifact, preview) is stored")

	httpListenAddr := flag.String("http_listen_address",
		"localhost:7130",
		"[host]:port to listen on for HTTP requests")

	httpsListenAddr := flag.String("https_listen_address",
		":https",
		"[host]:port to listen on for HTTPS requests. This is a no-op unless -tls_autocert_hosts is non-empty.")

	autocertHostList := flag.String("tls_autocert_hosts",
		"",
		"If non-empty, a comma-separated list of hostnames to obtain TLS certificates for. If non-empty, a TLS listener will be enabled on -https_listen_address")

	mqttBroker := flag.String("mqtt_broker",
		"",
		"If non-empty, MQTT broker (e.g. tcp://dr.lan:1883) on which new renders are announced")

	maxBodyBytes := flag.Int64("max_body_bytes",
		httpconvert.DefaultMaxBodyBytes,
		"Maximum size of uploaded images and artifacts")

	flag.Parse()

	log.Printf("tri-server starting")

	if err := os.MkdirAll(*rendersDir, 0755); err != nil {
		return err
	}
	store := &artifactstore.Store{Dir: *rendersDir}

	eg, ctx := errgroup.WithContext(context.Background())

	var onRender func(*artifactstore.Render)
	if *mqttBroker != "" {
		pub := mayqtt.New(mayqtt.Config{
			Broker:       *mqttBroker,
			OnlineStatus: "ready",
		})
		eg.Go(func() error {
			if err := pub.Run(ctx); err != nil && err != context.Canceled {
				// MQTT is best-effort, keep serving without it
				log.Print(err)
			}
			return nil
		})
		onRender = func(r *artifactstore.Render) {
			pub.PublishRender(r)
			pub.Publishf("last render %s", r.ID())
		}
	}

	type serveFunc struct {
		serve    func() error
		shutdown func() error
	}
	var serveFuncs []serveFunc

	// A dedicated mux: importing net/http/pprof and x/net/trace registers
	// unauthenticated debug handlers on http.DefaultServeMux.
	mux := http.NewServeMux()

	if *autocertHostList != "" {
		// Start HTTPS listener with autocert
		var hosts []string
		for _, host := range strings.Split(*autocertHostList, ",") {
			host = strings.TrimSpace(host)
			if host == "" {
				continue
			}
			hosts = append(hosts, host)
		}

		m := &autocert.Manager{
			Cache:      autocert.DirCache(filepath.Join(*stateDir, "autocert")),
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(hosts...),
		}
		s := &http.Server{
			Addr:      *httpsListenAddr,
			Handler:   mux,
			TLSConfig: m.TLSConfig(),
		}
		for _, host := range hosts {
			log.Printf("listening on https://%s", host)
		}

		ln, err := net.Listen("tcp", s.Addr)
		if err != nil {
			return err
		}
		serveFuncs = append(serveFuncs, serveFunc{
			serve: func() error {
				defer ln.Close()

				return s.ServeTLS(ln, "", "")
			},
			shutdown: func() error {
				timeout, canc := context.WithTimeout(context.Background(), 250*time.Millisecond)
				defer canc()
				return s.Shutdown(timeout)
			},
		})
	}

	// HTTP listener (local network)
	ln, err := net.Listen("tcp", *httpListenAddr)
	if err != nil {
		return err
	}
	log.Printf("listening on http://%s", ln.Addr())
	httpServer := &http.Server{Handler: mux}
	serveFuncs = append(serveFuncs, serveFunc{
		serve: func() error {
			return httpServer.Serve(ln)
		},
		shutdown: func() error {
			timeout, canc := context.WithTimeout(context.Background(), 250*time.Millisecond)
			defer canc()
			return httpServer.Shutdown(timeout)
		},
	})

	// HTTP API
	{
		serveMux := httpconvert.ServeMux(httpconvert.Options{
			Store:        store,
			OnRender:     onRender,
			MaxBodyBytes: *maxBodyBytes,
		})
		mux.Handle("/api/", http.StripPrefix("/api", serveMux))
	}

	// Web user interface
	webuiHandler, err := webui.Init(&webui.Config{
		Store:     store,
		APIPrefix: "/api",
	})
	if err != nil {
		return err
	}
	mux.Handle("/", webuiHandler)

	for _, sf := range serveFuncs {
		sf := sf // copy
		eg.Go(func() error {
			errC := make(chan error)
			go func() {
				errC <- sf.serve()
			}()
			select {
			case err := <-errC:
				return err
			case <-ctx.Done():
				if err := sf.shutdown(); err != nil {
					log.Printf("shutting down listener: %v", err)
				}
				return ctx.Err()
			}
		})
	}

	return eg.Wait()
}

func main() {
	if err := logic(); err != nil {
		log.Fatal(err)
	}
}
