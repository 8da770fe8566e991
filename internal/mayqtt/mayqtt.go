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

// Package mayqtt implements an MQTT client which announces new renders on
// tricard/render and publishes status to tricard/status. Publishing is best
// effort: messages are dropped while the broker is unreachable.
package mayqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stapelberg/tricard/internal/artifactstore"
	"github.com/stapelberg/tricard/internal/tri"
	"golang.org/x/net/trace"
)

const (
	RenderTopic = "tricard/render"
	StatusTopic = "tricard/status"
)

type Config struct {
	Broker   string // e.g. tcp://dr.lan:1883
	ClientID string

	// OnlineStatus, if non-empty, is published (retained) on StatusTopic
	// each time the connection to the broker is established.
	OnlineStatus string
}

// RenderMessage is the payload published on RenderTopic.
type RenderMessage struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
}

type publishRequest struct {
	Topic    string
	Qos      byte
	Retained bool
	Payload  interface{}

	// render is marked as published once the broker acknowledged.
	render *artifactstore.Render
}

type Publisher struct {
	cfg      Config
	requests chan publishRequest

	mu         sync.Mutex
	lastStatus string
}

func New(cfg Config) *Publisher {
	if cfg.ClientID == "" {
		cfg.ClientID = "tricard"
	}
	return &Publisher{
		cfg:      cfg,
		requests: make(chan publishRequest),
	}
}

// Run connects to the broker and publishes requests until ctx is canceled.
func (p *Publisher) Run(ctx context.Context) error {
	tr := trace.New("MQTT", "Loop")
	defer tr.Finish()

	tr.LazyPrintf("Connecting to MQTT broker %s", p.cfg.Broker)
	opts := mqtt.NewClientOptions().AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	opts.SetConnectRetry(true)
	opts.OnConnect = p.onConnect
	mqttClient := mqtt.NewClient(opts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connection failed: %v", token.Error())
	}
	defer mqttClient.Disconnect(250 /* ms */)
	tr.LazyPrintf("Connected to MQTT broker %s", p.cfg.Broker)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-p.requests:
			tr.LazyPrintf("publishing on topic %s: %q", r.Topic, r.Payload)
			token := mqttClient.Publish(r.Topic, r.Qos, r.Retained, r.Payload)
			if r.render == nil {
				// discard Token, status publishing is best-effort
				continue
			}
			go func(render *artifactstore.Render) {
				// may outlive Run, so log instead of tracing
				if token.Wait() && token.Error() != nil {
					log.Printf("publishing render %s failed: %v", render.ID(), token.Error())
					return
				}
				if err := render.CommitMarker("publish"); err != nil {
					log.Printf("marking render %s as published: %v", render.ID(), err)
				}
			}(r.render)
		}
	}
}

func (p *Publisher) onConnect(c mqtt.Client) {
	log.Printf("connected to MQTT broker %s", p.cfg.Broker)
	if p.cfg.OnlineStatus == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// The request loop is not running yet on the first connect, so publish
	// directly.
	c.Publish(StatusTopic, 0, true, []byte(p.cfg.OnlineStatus))
	p.lastStatus = p.cfg.OnlineStatus
}

func (p *Publisher) offer(r publishRequest) bool {
	select {
	case p.requests <- r:
		return true
	default:
		// drop message if MQTT is not connected
		return false
	}
}

// Message returns the announcement for r.
func Message(r *artifactstore.Render) RenderMessage {
	return RenderMessage{
		ID:     r.ID(),
		Width:  r.Params.Width,
		Height: r.Params.Height,
		Bytes:  tri.Size(r.Params.Width, r.Params.Height),
	}
}

// PublishRender announces r on RenderTopic.
func (p *Publisher) PublishRender(r *artifactstore.Render) {
	b, err := json.Marshal(Message(r))
	if err != nil {
		log.Print(err)
		return
	}
	p.offer(publishRequest{
		Topic:   RenderTopic,
		Qos:     1,
		Payload: b,
		render:  r,
	})
}

func (p *Publisher) Publishf(format string, args ...interface{}) {
	status := fmt.Sprintf(format, args...)
	p.mu.Lock()
	defer p.mu.Unlock()
	// Prevent duplicate messages if status has not changed
	if p.lastStatus == status {
		return
	}
	if p.offer(publishRequest{
		Topic:    StatusTopic,
		Retained: true,
		Payload:  []byte(status),
	}) {
		p.lastStatus = status
	}
}
