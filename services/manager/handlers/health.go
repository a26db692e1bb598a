// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianMQTT/services/manager/supervisor"
)

// Health reports the manager's own liveness plus the broker condition.
// The manager answers 200 even when the broker is down; a dead broker
// is a degraded deployment, not a dead manager.
func Health(sup *supervisor.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := sup.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"broker": gin.H{
				"state":   snap.State,
				"running": snap.Broker.Running,
			},
		})
	}
}
