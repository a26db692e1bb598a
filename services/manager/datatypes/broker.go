// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// BrokerStatus is a point-in-time snapshot of the supervised broker
// process, as reported by the broker process handle.
//
// Running and PID come from the process itself; the traffic counters are
// best-effort values read from the broker's $SYS status topics and are
// zero when the broker is down or unreachable.
type BrokerStatus struct {
	Running bool `json:"running"`

	// PID is the broker process id, 0 when unknown or not running.
	PID int `json:"pid,omitempty"`

	// Uptime is how long the process has been up, 0 when unknown.
	Uptime time.Duration `json:"uptime,omitempty"`

	// Version is the broker's reported version string, if available.
	Version string `json:"version,omitempty"`

	ConnectedClients  int64 `json:"connectedClients"`
	TotalConnections  int64 `json:"totalConnections"`
	MessagesReceived  int64 `json:"messagesReceived"`
	MessagesPublished int64 `json:"messagesPublished"`
	BytesReceived     int64 `json:"bytesReceived"`
	BytesPublished    int64 `json:"bytesPublished"`
}
