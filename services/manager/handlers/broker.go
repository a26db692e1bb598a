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

	"github.com/AleutianAI/AleutianMQTT/services/manager/supervisor"
)

type supervisorConfigRequest struct {
	StatusIntervalSeconds int `json:"statusIntervalSeconds"`
	HealthIntervalSeconds int `json:"healthIntervalSeconds"`
	MaxRestartAttempts    int `json:"maxRestartAttempts"`
}

type supervisorConfigView struct {
	StatusIntervalSeconds int `json:"statusIntervalSeconds"`
	HealthIntervalSeconds int `json:"healthIntervalSeconds"`
	MaxRestartAttempts    int `json:"maxRestartAttempts"`
}

func configView(cfg supervisor.Config) supervisorConfigView {
	return supervisorConfigView{
		StatusIntervalSeconds: int(cfg.StatusInterval / time.Second),
		HealthIntervalSeconds: int(cfg.HealthInterval / time.Second),
		MaxRestartAttempts:    cfg.MaxRestartAttempts,
	}
}

// GetBrokerStatus returns the supervisor's latest snapshot.
func GetBrokerStatus(sup *supervisor.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, sup.Snapshot())
	}
}

// restartView is the restart response: the post-restart snapshot plus
// whether the request coalesced with an attempt already in flight.
type restartView struct {
	Coalesced bool `json:"coalesced,omitempty"`
	supervisor.Snapshot
}

// RestartBroker forces a restart. This always runs, even from the
// failed-permanently state, and resets the automatic retry budget. A
// request arriving while a restart is already in flight does not stack
// a second one; the response says so instead of pretending it ran.
func RestartBroker(sup *supervisor.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("operator requested broker restart")
		restarted := sup.ForceRestart(c.Request.Context())
		c.JSON(http.StatusOK, restartView{
			Coalesced: !restarted,
			Snapshot:  sup.Snapshot(),
		})
	}
}

func GetSupervisorConfig(sup *supervisor.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, configView(sup.ConfigSnapshot()))
	}
}

// UpdateSupervisorConfig applies a new polling policy. Out-of-range
// values are clamped, and the response reports what was actually
// applied.
func UpdateSupervisorConfig(sup *supervisor.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req supervisorConfigRequest
		if !bindJSON(c, &req) {
			return
		}
		current := sup.ConfigSnapshot()
		applied := sup.Reconfigure(supervisor.Config{
			StatusInterval:     time.Duration(req.StatusIntervalSeconds) * time.Second,
			HealthInterval:     time.Duration(req.HealthIntervalSeconds) * time.Second,
			MaxRestartAttempts: req.MaxRestartAttempts,
			SettleDelay:        current.SettleDelay,
		})
		c.JSON(http.StatusOK, configView(applied))
	}
}

// GetInstallInfo reports whether the broker binary is installed.
func GetInstallInfo(installer supervisor.Installer) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := installer.Detect(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}
