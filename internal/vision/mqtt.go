// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTCamera receives detections published by the front-end on an MQTT topic.
// Only the newest unread detection is kept: a consumer that falls behind skips
// frames instead of replaying stale ones.
type MQTTCamera struct {
	client mqtt.Client
	topic  string

	mu      sync.Mutex
	latest  *Detection
	ready   chan struct{}
	dropped uint64
}

// NewMQTTCamera creates a camera on an already connected client.
// Call Start to subscribe.
func NewMQTTCamera(client mqtt.Client, topic string) *MQTTCamera {
	return &MQTTCamera{
		client: client,
		topic:  topic,
		ready:  make(chan struct{}, 1),
	}
}

// Configure publishes the segmentation requests, retained, so the front-end
// picks them up whenever it (re)connects.
func (c *MQTTCamera) Configure(topic string, reqs []Request) error {
	payload, err := json.Marshal(reqs)
	if err != nil {
		return fmt.Errorf("vision: marshal requests: %w", err)
	}
	if token := c.client.Publish(topic, 1, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("vision: publish requests: %w", token.Error())
	}
	log.Printf("vision: published %d segmentation requests on %s", len(reqs), topic)
	return nil
}

// Start subscribes to the detection topic.
func (c *MQTTCamera) Start() error {
	token := c.client.Subscribe(c.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		c.handle(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("vision: subscribe %s: %w", c.topic, token.Error())
	}
	log.Printf("vision: subscribed to %s", c.topic)
	return nil
}

func (c *MQTTCamera) handle(payload []byte) {
	var d Detection
	if err := json.Unmarshal(payload, &d); err != nil {
		log.Printf("vision: detection unmarshal error: %v", err)
		return
	}
	c.mu.Lock()
	if c.latest != nil {
		c.dropped++
	}
	c.latest = &d
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Snapshot blocks until a detection newer than the last one returned arrives.
func (c *MQTTCamera) Snapshot(ctx context.Context) (Frame, error) {
	for {
		c.mu.Lock()
		d := c.latest
		c.latest = nil
		c.mu.Unlock()
		if d != nil {
			return d, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.ready:
		}
	}
}

// Dropped reports how many detections were overwritten before being read.
func (c *MQTTCamera) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
