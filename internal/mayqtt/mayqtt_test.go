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

package mayqtt

import (
	"encoding/json"
	"image"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stapelberg/tricard"
	"github.com/stapelberg/tricard/internal/artifactstore"
	"github.com/stapelberg/tricard/internal/convert"
)

func storedRender(t *testing.T) *artifactstore.Render {
	t.Helper()
	p := tricard.DefaultParams()
	p.Width, p.Height = 10, 3
	res, err := convert.Convert(nil, image.NewRGBA(image.Rect(0, 0, 10, 3)), p)
	if err != nil {
		t.Fatal(err)
	}
	r, err := (&artifactstore.Store{Dir: t.TempDir()}).Add(res)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestMessage(t *testing.T) {
	r := storedRender(t)
	b, err := json.Marshal(Message(r))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]interface{}{
		"id":     r.ID(),
		"width":  float64(10),
		"height": float64(3),
		"bytes":  float64(8 + 2*2*3),
	} {
		if got[key] != want {
			t.Errorf("%s = %v, want %v", key, got[key], want)
		}
	}
}

func TestPublishDropsWhenDisconnected(t *testing.T) {
	p := New(Config{Broker: "tcp://localhost:1"})
	r := storedRender(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.PublishRender(r)
		p.Publishf("idle")
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("publishing blocked without a connected broker")
	}
	// dropped status messages are retried
	if p.lastStatus != "" {
		t.Errorf("lastStatus = %q, want empty", p.lastStatus)
	}
}

func TestPublishfDeduplicates(t *testing.T) {
	p := New(Config{})
	received := make(chan publishRequest, 10)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case r := <-p.requests:
				received <- r
			case <-stop:
				return
			}
		}
	}()
	defer close(stop)

	send := func(status string) {
		// the receiver may not be ready yet; retry until the offer is taken
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			p.Publishf("%s", status)
			p.mu.Lock()
			taken := p.lastStatus == status
			p.mu.Unlock()
			if taken {
				return
			}
			time.Sleep(time.Millisecond)
		}
		t.Fatalf("status %q never taken", status)
	}
	send("converting")
	p.Publishf("converting") // duplicate, not offered
	send("idle")

	for _, want := range []string{"converting", "idle"} {
		r := <-received
		if got := string(r.Payload.([]byte)); got != want {
			t.Errorf("unexpected payload: got %q, want %q", got, want)
		}
		if got, want := r.Topic, StatusTopic; got != want {
			t.Errorf("unexpected topic: got %q, want %q", got, want)
		}
	}
	select {
	case r := <-received:
		t.Errorf("unexpected extra message %q", r.Payload)
	default:
	}
}

type recordingClient struct {
	mqtt.Client // unused methods panic

	published []publishRequest
}

func (c *recordingClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, publishRequest{
		Topic:    topic,
		Qos:      qos,
		Retained: retained,
		Payload:  payload,
	})
	return nil
}

func TestOnConnectPublishesOnlineStatus(t *testing.T) {
	p := New(Config{OnlineStatus: "ready"})
	c := &recordingClient{}
	// Every reconnect announces the status again.
	p.onConnect(c)
	p.onConnect(c)
	if got, want := len(c.published), 2; got != want {
		t.Fatalf("published %d messages, want %d", got, want)
	}
	for _, r := range c.published {
		if r.Topic != StatusTopic || !r.Retained || string(r.Payload.([]byte)) != "ready" {
			t.Errorf("unexpected message: %+v", r)
		}
	}
	if got, want := p.lastStatus, "ready"; got != want {
		t.Errorf("lastStatus = %q, want %q", got, want)
	}

	quiet := New(Config{})
	c = &recordingClient{}
	quiet.onConnect(c)
	if got := len(c.published); got != 0 {
		t.Errorf("published %d messages without OnlineStatus, want 0", got)
	}
}
