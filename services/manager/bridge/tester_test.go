// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bridge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
	"github.com/AleutianAI/AleutianMQTT/services/manager/certs"
	"github.com/AleutianAI/AleutianMQTT/services/manager/config"
	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

func newTestTester(t *testing.T) *Tester {
	t.Helper()
	logger := logging.New(logging.Config{Quiet: true})
	t.Cleanup(func() { logger.Close() })
	return NewTester(logger)
}

func plainBridge() datatypes.BridgeDefinition {
	return datatypes.BridgeDefinition{
		ID:               "b-1",
		Name:             "shore-link",
		RemoteHost:       "remote.example.com",
		RemotePort:       1883,
		RemoteUsername:   "bridge-user",
		RemotePassword:   "bridge-pass",
		KeepAliveSeconds: 30,
		Topics: []datatypes.TopicRoute{
			{Pattern: "vessels/#", Direction: datatypes.DirectionOut, QoS: 1},
		},
	}
}

func TestTestConnection_SuccessAndFailure(t *testing.T) {
	tester := newTestTester(t)

	tester.dial = func(ctx context.Context, opts *mqtt.ClientOptions) error { return nil }
	assert.True(t, tester.TestConnection(context.Background(), plainBridge()))

	tester.dial = func(ctx context.Context, opts *mqtt.ClientOptions) error {
		return errors.New("connection refused")
	}
	assert.False(t, tester.TestConnection(context.Background(), plainBridge()))
}

func TestClientOptions_PlainTCP(t *testing.T) {
	tester := newTestTester(t)

	opts, err := tester.clientOptions(plainBridge())
	require.NoError(t, err)

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp", opts.Servers[0].Scheme)
	assert.Equal(t, "remote.example.com:1883", opts.Servers[0].Host)
	assert.Equal(t, "bridge-user", opts.Username)
	assert.Equal(t, "bridge-pass", opts.Password)
}

func TestClientOptions_TLSUsesSSLScheme(t *testing.T) {
	tester := newTestTester(t)

	// Issue a throwaway CA so the CA file is real PEM.
	logger := logging.New(logging.Config{Quiet: true})
	defer logger.Close()
	paths := config.Paths{DataDir: t.TempDir()}
	require.NoError(t, certs.NewIssuer(paths, logger).EnsureCertificates(""))

	def := plainBridge()
	def.RemotePort = 8883
	def.TLS = datatypes.BridgeTLS{CAFile: paths.CACertFile()}

	opts, err := tester.clientOptions(def)
	require.NoError(t, err)
	assert.Equal(t, "ssl", opts.Servers[0].Scheme)
	require.NotNil(t, opts.TLSConfig)
	assert.NotNil(t, opts.TLSConfig.RootCAs)
}

func TestBuildTLSConfig_Errors(t *testing.T) {
	_, err := buildTLSConfig(datatypes.BridgeTLS{CAFile: "/nonexistent/ca.pem"})
	assert.Error(t, err)

	dir := t.TempDir()
	badCA := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(badCA, []byte("not pem"), 0644))
	_, err = buildTLSConfig(datatypes.BridgeTLS{CAFile: badCA})
	assert.Error(t, err)

	// Cert without key is rejected before any file I/O.
	_, err = buildTLSConfig(datatypes.BridgeTLS{CertFile: "/some/cert.pem"})
	assert.Error(t, err)
}
