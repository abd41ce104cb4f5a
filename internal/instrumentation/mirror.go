// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package instrumentation

import (
	"encoding/json"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vision_telemetry/internal/telemetry"
)

// Publisher is the part of mqtt.Client the mirror needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Mirror republishes every transmitted frame as JSON on an MQTT topic.
// It never waits for the broker, so a slow or absent broker cannot delay
// the serial link.
type Mirror struct {
	pub   Publisher
	topic string
}

// NewMirror creates a mirror publishing on topic.
func NewMirror(pub Publisher, topic string) *Mirror {
	return &Mirror{pub: pub, topic: topic}
}

func (m *Mirror) Observe(r telemetry.Report) {
	payload, err := json.Marshal(r)
	if err != nil {
		log.Printf("mirror: marshal error: %v", err)
		return
	}
	token := m.pub.Publish(m.topic, 0, false, payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			log.Printf("mirror: publish error: %v", err)
		}
	}()
}
