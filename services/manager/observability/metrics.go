// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability exposes the manager's Prometheus metrics: the
// broker's traffic counters re-published as gauges, the supervisor
// state, and the restart counter. All metrics use the "mqtt_manager_"
// prefix.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
	"github.com/AleutianAI/AleutianMQTT/services/manager/supervisor"
)

// stateValues maps supervisor states onto a stable numeric scale for
// the state gauge. Alerting rules key off these values.
var stateValues = map[supervisor.State]float64{
	supervisor.StateStopped:           0,
	supervisor.StateStarting:          1,
	supervisor.StateRunning:           2,
	supervisor.StateDegraded:          3,
	supervisor.StateRestarting:        4,
	supervisor.StateFailedPermanently: 5,
}

// Metrics contains the manager's pre-defined metrics.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// BrokerUp is 1 while the broker process is running.
	BrokerUp prometheus.Gauge

	// SupervisorState is the lifecycle state as a numeric code
	// (0=stopped 1=starting 2=running 3=degraded 4=restarting 5=failed).
	SupervisorState prometheus.Gauge

	// RestartsTotal counts restart attempts, automatic and forced.
	RestartsTotal prometheus.Counter

	// ConnectedClients mirrors $SYS/broker/clients/connected.
	ConnectedClients prometheus.Gauge

	// MessagesReceived and MessagesPublished mirror the broker's
	// cumulative message counters.
	MessagesReceived  prometheus.Gauge
	MessagesPublished prometheus.Gauge

	// BytesReceived and BytesPublished mirror the broker's cumulative
	// byte counters.
	BytesReceived  prometheus.Gauge
	BytesPublished prometheus.Gauge

	registry *prometheus.Registry
}

var _ supervisor.Recorder = (*Metrics)(nil)

// NewMetrics creates and registers the metric set on a private
// registry, keeping the endpoint free of default Go runtime noise from
// other libraries' global registrations.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mqtt_manager", Name: name, Help: help,
		})
		registry.MustRegister(g)
		return g
	}

	m := &Metrics{
		BrokerUp:          factory("broker_up", "Whether the broker process is running."),
		SupervisorState:   factory("supervisor_state", "Supervisor lifecycle state code."),
		ConnectedClients:  factory("connected_clients", "Currently connected MQTT clients."),
		MessagesReceived:  factory("messages_received_total", "Messages received by the broker."),
		MessagesPublished: factory("messages_published_total", "Messages published by the broker."),
		BytesReceived:     factory("bytes_received_total", "Bytes received by the broker."),
		BytesPublished:    factory("bytes_published_total", "Bytes published by the broker."),
		registry:          registry,
	}
	m.RestartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mqtt_manager", Name: "restarts_total",
		Help: "Broker restart attempts, automatic and forced.",
	})
	registry.MustRegister(m.RestartsTotal)
	registry.MustRegister(collectors.NewGoCollector())
	return m
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordStatus publishes a broker status snapshot.
func (m *Metrics) RecordStatus(status datatypes.BrokerStatus) {
	if status.Running {
		m.BrokerUp.Set(1)
	} else {
		m.BrokerUp.Set(0)
	}
	m.ConnectedClients.Set(float64(status.ConnectedClients))
	m.MessagesReceived.Set(float64(status.MessagesReceived))
	m.MessagesPublished.Set(float64(status.MessagesPublished))
	m.BytesReceived.Set(float64(status.BytesReceived))
	m.BytesPublished.Set(float64(status.BytesPublished))
}

// RecordState publishes a supervisor state transition.
func (m *Metrics) RecordState(state supervisor.State) {
	m.SupervisorState.Set(stateValues[state])
}

// RecordRestart counts a restart attempt.
func (m *Metrics) RecordRestart() {
	m.RestartsTotal.Inc()
}
