// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianMQTT/services/manager/supervisor"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The API listens on loopback; dashboards connect from file://
		// or localhost origins that a strict check would reject.
		return true
	},
}

// statusStreamInterval is how often the stream pushes a snapshot.
const statusStreamInterval = 2 * time.Second

// StatusStream pushes supervisor snapshots over a websocket until the
// client disconnects. Dashboards use this instead of polling the
// status endpoint.
func StatusStream(sup *supervisor.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("status stream client connected", "remote", ws.RemoteAddr().String())

		// Detect client disconnect; the read pump discards messages.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(statusStreamInterval)
		defer ticker.Stop()

		// First snapshot goes out immediately.
		if err := ws.WriteJSON(sup.Snapshot()); err != nil {
			return
		}
		for {
			select {
			case <-done:
				slog.Info("status stream client disconnected")
				return
			case <-c.Request.Context().Done():
				return
			case <-ticker.C:
				if err := ws.WriteJSON(sup.Snapshot()); err != nil {
					slog.Info("status stream write failed", "error", err)
					return
				}
			}
		}
	}
}
