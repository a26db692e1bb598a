// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
	"github.com/AleutianAI/AleutianMQTT/services/manager/supervisor"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestRecordStatus_PublishesGauges(t *testing.T) {
	m := NewMetrics()
	m.RecordStatus(datatypes.BrokerStatus{
		Running:           true,
		ConnectedClients:  7,
		MessagesReceived:  1200,
		MessagesPublished: 1180,
		BytesReceived:     50000,
		BytesPublished:    49000,
	})

	body := scrape(t, m)
	assert.Contains(t, body, "mqtt_manager_broker_up 1")
	assert.Contains(t, body, "mqtt_manager_connected_clients 7")
	assert.Contains(t, body, "mqtt_manager_messages_received_total 1200")

	m.RecordStatus(datatypes.BrokerStatus{Running: false})
	assert.Contains(t, scrape(t, m), "mqtt_manager_broker_up 0")
}

func TestRecordState_NumericScale(t *testing.T) {
	m := NewMetrics()

	m.RecordState(supervisor.StateRunning)
	assert.Contains(t, scrape(t, m), "mqtt_manager_supervisor_state 2")

	m.RecordState(supervisor.StateFailedPermanently)
	assert.Contains(t, scrape(t, m), "mqtt_manager_supervisor_state 5")
}

func TestRecordRestart_Counts(t *testing.T) {
	m := NewMetrics()
	m.RecordRestart()
	m.RecordRestart()

	body := scrape(t, m)
	assert.True(t, strings.Contains(body, "mqtt_manager_restarts_total 2"))
}
