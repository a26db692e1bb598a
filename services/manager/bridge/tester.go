// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package bridge probes bridge remote endpoints. The broker itself
// owns the long-lived bridge connections; this package only answers
// "would this definition connect right now" for the API's test
// operation.
package bridge

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

// connectTimeout bounds the whole probe, DNS and TLS included.
const connectTimeout = 10 * time.Second

// Tester opens short-lived client connections to bridge remotes.
type Tester struct {
	logger *logging.Logger

	// dial is stubbed in tests; production uses the paho client.
	dial func(ctx context.Context, opts *mqtt.ClientOptions) error
}

// NewTester creates a connection tester.
func NewTester(logger *logging.Logger) *Tester {
	t := &Tester{logger: logger}
	t.dial = t.pahoDial
	return t
}

// TestConnection reports whether a client connection to the bridge's
// remote endpoint succeeds with its configured credentials and TLS
// material. Failure and timeout collapse to false; the reason is
// logged, not returned, because the caller only renders a verdict.
func (t *Tester) TestConnection(ctx context.Context, def datatypes.BridgeDefinition) bool {
	opts, err := t.clientOptions(def)
	if err != nil {
		t.logger.Warn("bridge test: bad definition",
			"bridge", def.ID, "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := t.dial(ctx, opts); err != nil {
		t.logger.Warn("bridge test: connect failed",
			"bridge", def.ID, "remote", def.RemoteHost, "error", err)
		return false
	}
	t.logger.Info("bridge test: connected",
		"bridge", def.ID, "remote", def.RemoteHost)
	return true
}

// clientOptions builds paho options mirroring what the broker's bridge
// connection would use.
func (t *Tester) clientOptions(def datatypes.BridgeDefinition) (*mqtt.ClientOptions, error) {
	scheme := "tcp"
	var tlsConfig *tls.Config
	if def.TLS.Enabled() {
		cfg, err := buildTLSConfig(def.TLS)
		if err != nil {
			return nil, err
		}
		scheme = "ssl"
		tlsConfig = cfg
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, def.RemoteHost, def.RemotePort)).
		SetClientID("aleutian-mqtt-test-" + uuid.NewString()[:8]).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(false).
		SetCleanSession(true).
		SetKeepAlive(time.Duration(def.KeepAliveSeconds) * time.Second)
	if def.RemoteUsername != "" {
		opts.SetUsername(def.RemoteUsername).SetPassword(def.RemotePassword)
	}
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}
	return opts, nil
}

// buildTLSConfig loads the bridge's CA and optional client keypair.
func buildTLSConfig(bt datatypes.BridgeTLS) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if bt.CAFile != "" {
		pemData, err := os.ReadFile(bt.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, fmt.Errorf("ca file %s: no usable certificates", bt.CAFile)
		}
		cfg.RootCAs = pool
	}

	// Client cert and key travel together or not at all.
	if (bt.CertFile == "") != (bt.KeyFile == "") {
		return nil, fmt.Errorf("client cert and key must both be set")
	}
	if bt.CertFile != "" {
		pair, err := tls.LoadX509KeyPair(bt.CertFile, bt.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	return cfg, nil
}

// pahoDial performs a real connect/disconnect round trip.
func (t *Tester) pahoDial(ctx context.Context, opts *mqtt.ClientOptions) error {
	client := mqtt.NewClient(opts)
	token := client.Connect()

	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		client.Disconnect(0)
		return ctx.Err()
	case <-done:
	}
	if err := token.Error(); err != nil {
		return err
	}
	client.Disconnect(250)
	return nil
}
