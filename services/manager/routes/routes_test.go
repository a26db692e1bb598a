// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
	"github.com/AleutianAI/AleutianMQTT/services/manager/bridge"
	"github.com/AleutianAI/AleutianMQTT/services/manager/certs"
	"github.com/AleutianAI/AleutianMQTT/services/manager/config"
	"github.com/AleutianAI/AleutianMQTT/services/manager/observability"
	"github.com/AleutianAI/AleutianMQTT/services/manager/store"
	"github.com/AleutianAI/AleutianMQTT/services/manager/supervisor"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	logger := logging.New(logging.Config{Quiet: true})
	t.Cleanup(func() { logger.Close() })

	paths := config.Paths{DataDir: t.TempDir()}
	s := store.New(paths, config.BrokerConfig{Binary: "mosquitto", Port: 1883}, logger)
	require.NoError(t, s.Load())

	sup := supervisor.New(&supervisor.MockBrokerControl{}, supervisor.Config{
		StatusInterval: 5 * time.Second,
		HealthInterval: 30 * time.Second,
	}, nil, logger)

	return Deps{
		Store:      s,
		Supervisor: sup,
		Installer:  &supervisor.MockInstaller{},
		Issuer:     certs.NewIssuer(paths, logger),
		Tester:     bridge.NewTester(logger),
		Metrics:    observability.NewMetrics(),
	}
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestSetupRoutes_CoreEndpoints(t *testing.T) {
	router := gin.New()
	SetupRoutes(context.Background(), router, newTestDeps(t))

	assert.Equal(t, http.StatusOK, get(router, "/health").Code)
	assert.Equal(t, http.StatusOK, get(router, "/metrics").Code)
	assert.Equal(t, http.StatusOK, get(router, "/v1/users").Code)
	assert.Equal(t, http.StatusOK, get(router, "/v1/acls").Code)
	assert.Equal(t, http.StatusOK, get(router, "/v1/bridges").Code)
	assert.Equal(t, http.StatusOK, get(router, "/v1/broker/status").Code)
	assert.Equal(t, http.StatusOK, get(router, "/v1/broker/install").Code)
	assert.Equal(t, http.StatusOK, get(router, "/v1/supervisor/config").Code)
	assert.Equal(t, http.StatusOK, get(router, "/v1/certs/status").Code)
	assert.Equal(t, http.StatusOK, get(router, "/v1/config/export").Code)
}

func TestSetupRoutes_WithoutMetrics(t *testing.T) {
	router := gin.New()
	deps := newTestDeps(t)
	deps.Metrics = nil

	// Should not panic and should not register the scrape endpoint.
	SetupRoutes(context.Background(), router, deps)
	assert.Equal(t, http.StatusNotFound, get(router, "/metrics").Code)
	assert.Equal(t, http.StatusOK, get(router, "/health").Code)
}

func TestSetupRoutes_UnknownRoute(t *testing.T) {
	router := gin.New()
	SetupRoutes(context.Background(), router, newTestDeps(t))
	assert.Equal(t, http.StatusNotFound, get(router, "/v1/nope").Code)
}
