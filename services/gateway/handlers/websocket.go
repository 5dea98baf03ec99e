// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/seizeval/seizeval/services/gateway/progress"
)

const (
	// heartbeatInterval is how long a connection may sit idle before the
	// server emits a heartbeat event.
	heartbeatInterval = 30 * time.Second

	// wsWriteTimeout bounds a single frame write to a slow client.
	wsWriteTimeout = 10 * time.Second

	// wsSendBuffer is the per-client outbound queue. A client that falls
	// this far behind is dropped.
	wsSendBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// errSlowClient marks a subscriber whose outbound queue overflowed.
var errSlowClient = errors.New("websocket client is too slow")

// wsClient adapts one WebSocket connection to progress.Subscriber. Hub
// sends enqueue onto a buffered channel drained by the write loop, so a
// stalled connection never blocks the broadcast.
type wsClient struct {
	send chan []byte
}

// Send implements progress.Subscriber.
func (w *wsClient) Send(payload []byte) error {
	select {
	case w.send <- payload:
		return nil
	default:
		return errSlowClient
	}
}

// WatchJob handles WS /ws/:job_id. On connect the server sends an
// initial event carrying the job's current status, then streams
// progress events until the client disconnects. Idle gaps produce
// heartbeat events; a client "ping" text frame elicits "pong".
func (h *Handler) WatchJob(c *gin.Context) {
	id := c.Param("job_id")
	job, err := h.manager.Get(id)
	if err != nil {
		h.fail(c, http.StatusNotFound, "job_not_found", err.Error())
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "job_id", id, "error", err)
		return
	}
	defer ws.Close()
	h.logger.Info("websocket client connected", "job_id", id)

	client := &wsClient{send: make(chan []byte, wsSendBuffer)}

	initial, err := json.Marshal(progress.Event{
		Type:      progress.EventInitial,
		JobID:     id,
		Status:    string(job.Status),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := writeFrame(ws, initial); err != nil {
		return
	}

	h.hub.Subscribe(id, client)
	defer h.hub.Unsubscribe(id, client)

	// Read side: detect disconnects and answer pings. Closes done to
	// stop the write loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				h.logger.Info("websocket client disconnected", "job_id", id, "error", err.Error())
				return
			}
			if strings.TrimSpace(string(msg)) == "ping" {
				client.Send(pongPayload(id))
			}
		}
	}()

	// Write side: drain the subscriber queue, heartbeat on idle.
	timer := time.NewTimer(heartbeatInterval)
	defer timer.Stop()
	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(heartbeatInterval)

		select {
		case <-done:
			return
		case payload := <-client.send:
			if err := writeFrame(ws, payload); err != nil {
				return
			}
		case <-timer.C:
			heartbeat, err := json.Marshal(progress.Event{
				Type:      progress.EventHeartbeat,
				JobID:     id,
				Timestamp: time.Now().UTC(),
			})
			if err != nil {
				return
			}
			if err := writeFrame(ws, heartbeat); err != nil {
				return
			}
		}
	}
}

func writeFrame(ws *websocket.Conn, payload []byte) error {
	ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return ws.WriteMessage(websocket.TextMessage, payload)
}

func pongPayload(jobID string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"type":      "pong",
		"job_id":    jobID,
		"timestamp": time.Now().UTC(),
	})
	return payload
}
