// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vision_telemetry/internal/telemetry"
)

func connectMQTT(component, broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("%s: MQTT connect %s: %w", component, broker, token.Error())
	}
	log.Printf("%s: connected to MQTT broker at %s", component, broker)
	return client, nil
}

// subscribeTrack delivers every mirrored telemetry report on topic to fn.
func subscribeTrack(client mqtt.Client, component, topic string, fn func(telemetry.Report)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		r, err := decodeReport(msg.Payload())
		if err != nil {
			log.Printf("%s: track unmarshal error: %v", component, err)
			return
		}
		fn(r)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("%s: subscribe %s: %w", component, topic, token.Error())
	}
	log.Printf("%s: subscribed to %s", component, topic)
	return nil
}

func decodeReport(payload []byte) (telemetry.Report, error) {
	var r telemetry.Report
	err := json.Unmarshal(payload, &r)
	return r, err
}
