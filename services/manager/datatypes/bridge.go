// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// RouteDirection is the direction topics flow across a bridge.
type RouteDirection string

const (
	DirectionIn   RouteDirection = "in"
	DirectionOut  RouteDirection = "out"
	DirectionBoth RouteDirection = "both"
)

// MinKeepAliveSeconds is the floor for bridge keepalive intervals.
const MinKeepAliveSeconds = 5

// TopicRoute forwards one topic pattern across a bridge.
type TopicRoute struct {
	// Pattern is the MQTT filter to forward.
	Pattern string `json:"pattern" validate:"required,topicfilter"`

	// Direction is in (remote to local), out (local to remote), or both.
	Direction RouteDirection `json:"direction" validate:"required,oneof=in out both"`

	// QoS is the MQTT quality-of-service level for the route.
	QoS int `json:"qos" validate:"min=0,max=2"`

	// LocalPrefix is prepended to the pattern on the local side.
	LocalPrefix string `json:"localPrefix,omitempty"`

	// RemotePrefix is prepended to the pattern on the remote side.
	RemotePrefix string `json:"remotePrefix,omitempty"`
}

// BridgeTLS holds optional TLS material paths for a bridge connection.
type BridgeTLS struct {
	CAFile   string `json:"caFile,omitempty" validate:"omitempty,safepath"`
	CertFile string `json:"certFile,omitempty" validate:"omitempty,safepath"`
	KeyFile  string `json:"keyFile,omitempty" validate:"omitempty,safepath"`
}

// Enabled reports whether any TLS material is configured.
func (t BridgeTLS) Enabled() bool {
	return t.CAFile != "" || t.CertFile != "" || t.KeyFile != ""
}

// BridgeDefinition is a link forwarding topics between the local broker
// and a remote one.
//
// ID is assigned on creation and immutable except through explicit
// rename; all other fields may change through the registry's update
// operation. A definition must carry at least one topic route.
type BridgeDefinition struct {
	// ID is the unique identifier (a uuid assigned by the registry).
	ID string `json:"id"`

	// Name is the operator-facing label.
	Name string `json:"name" validate:"required"`

	// Enabled controls whether the bridge is rendered into the broker
	// config. Duplicated bridges always start disabled.
	Enabled bool `json:"enabled"`

	// RemoteHost and RemotePort identify the remote broker endpoint.
	RemoteHost string `json:"remoteHost" validate:"required"`
	RemotePort int    `json:"remotePort" validate:"min=1,max=65535"`

	// RemoteUsername and RemotePassword are optional remote credentials.
	RemoteUsername string `json:"remoteUsername,omitempty"`
	RemotePassword string `json:"remotePassword,omitempty"`

	// TLS is the optional TLS material for the connection.
	TLS BridgeTLS `json:"tls"`

	// KeepAliveSeconds is the MQTT keepalive (floor: 5 seconds).
	KeepAliveSeconds int `json:"keepAliveSeconds" validate:"min=5"`

	// CleanSession controls the MQTT clean-session flag.
	CleanSession bool `json:"cleanSession"`

	// Topics is the ordered list of routes. At least one is required.
	Topics []TopicRoute `json:"topics" validate:"min=1,dive"`
}
