// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/vision_telemetry/internal/config"
	"github.com/relabs-tech/vision_telemetry/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// trackHub fans mirrored frames out to websocket clients and keeps the
// latest one for the JSON endpoint.
type trackHub struct {
	state trackState

	mu      sync.Mutex
	clients map[chan telemetry.Report]struct{}
}

func newTrackHub() *trackHub {
	return &trackHub{clients: make(map[chan telemetry.Report]struct{})}
}

// publish records r and offers it to every client. Slow clients miss frames.
func (h *trackHub) publish(r telemetry.Report) {
	h.state.update(r)

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- r:
		default:
		}
	}
}

func (h *trackHub) subscribe() chan telemetry.Report {
	ch := make(chan telemetry.Report, 8)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *trackHub) unsubscribe(ch chan telemetry.Report) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// handleTrack serves the latest frame as JSON.
func (h *trackHub) handleTrack(w http.ResponseWriter, r *http.Request) {
	last, have, _ := h.state.get()
	if !have {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(last); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleWS streams every frame to a websocket client.
func (h *trackHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// Reader goroutine: detect client close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case rep := <-ch:
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteJSON(rep); err != nil {
				return
			}
		}
	}
}

func (h *trackHub) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/track", h.handleTrack)
	mux.HandleFunc("/ws/track", h.handleWS)
	// Static files from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// RunWeb serves the mirrored telemetry over HTTP and websocket.
func RunWeb(cfg *config.Config) error {
	hub := newTrackHub()

	client, err := connectMQTT("web", cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeTrack(client, "web", cfg.TopicTrack, hub.publish); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, hub.routes())
}
