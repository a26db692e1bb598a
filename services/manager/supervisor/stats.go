// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package supervisor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
)

// $SYS topics sampled for the status snapshot. Retained by the broker,
// so a short-lived subscription sees current values immediately.
var sysTopics = map[string]func(*BrokerStats, int64){
	"$SYS/broker/clients/connected":       func(s *BrokerStats, v int64) { s.ConnectedClients = v },
	"$SYS/broker/clients/total":           func(s *BrokerStats, v int64) { s.TotalConnections = v },
	"$SYS/broker/messages/received":       func(s *BrokerStats, v int64) { s.MessagesReceived = v },
	"$SYS/broker/messages/sent":           func(s *BrokerStats, v int64) { s.MessagesPublished = v },
	"$SYS/broker/bytes/received":          func(s *BrokerStats, v int64) { s.BytesReceived = v },
	"$SYS/broker/bytes/sent":              func(s *BrokerStats, v int64) { s.BytesPublished = v },
}

const (
	statsConnectTimeout = 3 * time.Second
	statsCollectWindow  = 500 * time.Millisecond
)

// SysStatsReader reads broker counters from the retained $SYS topics
// over a short-lived local MQTT connection.
//
// With allow_anonymous off and no credentials configured the connection
// is refused; counters then stay zero, which status reporting treats as
// a valid (if uninformative) result.
type SysStatsReader struct {
	brokerURL string
	username  string
	password  string
	logger    *logging.Logger
}

var _ StatsReader = (*SysStatsReader)(nil)

// NewSysStatsReader creates a reader against the local broker listener.
func NewSysStatsReader(host string, port int, username, password string, logger *logging.Logger) *SysStatsReader {
	if host == "" {
		host = "127.0.0.1"
	}
	return &SysStatsReader{
		brokerURL: fmt.Sprintf("tcp://%s:%d", host, port),
		username:  username,
		password:  password,
		logger:    logger,
	}
}

// ReadStats connects, drains the retained $SYS values, and disconnects.
func (r *SysStatsReader) ReadStats(ctx context.Context) (BrokerStats, error) {
	var (
		mu    sync.Mutex
		stats BrokerStats
	)

	opts := mqtt.NewClientOptions().
		AddBroker(r.brokerURL).
		SetClientID(fmt.Sprintf("aleutian-mqtt-stats-%d", time.Now().UnixNano())).
		SetConnectTimeout(statsConnectTimeout).
		SetAutoReconnect(false)
	if r.username != "" {
		opts.SetUsername(r.username).SetPassword(r.password)
	}
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		assign, ok := sysTopics[msg.Topic()]
		if !ok {
			return
		}
		v, err := strconv.ParseInt(string(msg.Payload()), 10, 64)
		if err != nil {
			return
		}
		mu.Lock()
		assign(&stats, v)
		mu.Unlock()
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(statsConnectTimeout) {
		return BrokerStats{}, fmt.Errorf("connect %s: timeout", r.brokerURL)
	}
	if err := token.Error(); err != nil {
		return BrokerStats{}, fmt.Errorf("connect %s: %w", r.brokerURL, err)
	}
	defer client.Disconnect(250)

	filters := make(map[string]byte, len(sysTopics))
	for topic := range sysTopics {
		filters[topic] = 0
	}
	sub := client.SubscribeMultiple(filters, nil)
	if !sub.WaitTimeout(statsConnectTimeout) || sub.Error() != nil {
		return BrokerStats{}, fmt.Errorf("subscribe $SYS: %v", sub.Error())
	}

	// Retained values arrive immediately after SUBACK; a short window
	// is enough to collect all six.
	select {
	case <-ctx.Done():
		return BrokerStats{}, ctx.Err()
	case <-time.After(statsCollectWindow):
	}

	mu.Lock()
	defer mu.Unlock()
	return stats, nil
}
