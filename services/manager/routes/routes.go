// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianMQTT/services/manager/bridge"
	"github.com/AleutianAI/AleutianMQTT/services/manager/certs"
	"github.com/AleutianAI/AleutianMQTT/services/manager/handlers"
	"github.com/AleutianAI/AleutianMQTT/services/manager/observability"
	"github.com/AleutianAI/AleutianMQTT/services/manager/store"
	"github.com/AleutianAI/AleutianMQTT/services/manager/supervisor"
)

// Deps carries everything the route table wires into handlers.
type Deps struct {
	Store       *store.Store
	Supervisor  *supervisor.Supervisor
	Installer   supervisor.Installer
	Issuer      *certs.Issuer
	Tester      *bridge.Tester
	Metrics     *observability.Metrics
	BindAddress string
}

// SetupRoutes registers the manager's HTTP surface. ctx scopes the
// rate limiter's background sweep to the daemon lifetime.
func SetupRoutes(ctx context.Context, router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.Health(deps.Supervisor))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(handlers.RateLimit(ctx))
	{
		// User administration routes
		users := v1.Group("/users")
		{
			users.GET("", handlers.ListUsers(deps.Store))
			users.POST("", handlers.CreateUser(deps.Store))
			users.PUT("/:username", handlers.UpdateUser(deps.Store))
			users.PUT("/:username/password", handlers.ChangePassword(deps.Store))
			users.DELETE("/:username", handlers.DeleteUser(deps.Store))
		}

		// Access rule routes; deletion targets the identity tuple in
		// the body, so DELETE binds on the collection.
		acls := v1.Group("/acls")
		{
			acls.GET("", handlers.ListRules(deps.Store))
			acls.POST("", handlers.CreateRule(deps.Store))
			acls.DELETE("", handlers.DeleteRule(deps.Store))
		}

		// Bridge administration routes
		bridges := v1.Group("/bridges")
		{
			bridges.GET("", handlers.ListBridges(deps.Store))
			bridges.POST("", handlers.CreateBridge(deps.Store))
			bridges.GET("/:id", handlers.GetBridge(deps.Store))
			bridges.PUT("/:id", handlers.UpdateBridge(deps.Store))
			bridges.DELETE("/:id", handlers.DeleteBridge(deps.Store))
			bridges.POST("/:id/enable", handlers.EnableBridge(deps.Store))
			bridges.POST("/:id/disable", handlers.DisableBridge(deps.Store))
			bridges.POST("/:id/duplicate", handlers.DuplicateBridge(deps.Store))
			bridges.POST("/:id/test", handlers.TestBridge(deps.Store, deps.Tester))
		}

		// Broker and supervisor routes
		broker := v1.Group("/broker")
		{
			broker.GET("/status", handlers.GetBrokerStatus(deps.Supervisor))
			broker.GET("/status/ws", handlers.StatusStream(deps.Supervisor))
			broker.POST("/restart", handlers.RestartBroker(deps.Supervisor))
			broker.GET("/install", handlers.GetInstallInfo(deps.Installer))
		}
		v1.GET("/supervisor/config", handlers.GetSupervisorConfig(deps.Supervisor))
		v1.PUT("/supervisor/config", handlers.UpdateSupervisorConfig(deps.Supervisor))

		// Certificate routes
		v1.GET("/certs/status", handlers.GetCertStatus(deps.Issuer))
		v1.POST("/certs/regenerate", handlers.RegenerateCerts(deps.Issuer, deps.BindAddress))

		// Bulk configuration routes
		v1.GET("/config/export", handlers.ExportConfig(deps.Store))
		v1.POST("/config/import", handlers.ImportConfig(deps.Store))
	}
}
