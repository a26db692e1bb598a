// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manager.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, 1884, cfg.HTTP.Port)
	assert.Equal(t, "mosquitto", cfg.Broker.Binary)
	assert.Equal(t, 1883, cfg.Broker.Port)
}

func TestLoad_ParsesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manager.yaml")
	yaml := `version: 1
data_dir: ` + dir + `
http:
  port: 9999
broker:
  binary: /usr/sbin/mosquitto
  port: 2883
supervisor:
  status_interval_seconds: 10
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.HTTP.Port)
	assert.Equal(t, "/usr/sbin/mosquitto", cfg.Broker.Binary)
	assert.Equal(t, 2883, cfg.Broker.Port)
	assert.Equal(t, 10, cfg.Supervisor.StatusIntervalSeconds)
	// Unspecified supervisor fields fall back to defaults.
	assert.Equal(t, 30, cfg.Supervisor.HealthIntervalSeconds)
	assert.Equal(t, 3, cfg.Supervisor.MaxRestartAttempts)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manager.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestNormalize_ClampsPollingFloors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Supervisor.StatusIntervalSeconds = -1
	cfg.Supervisor.HealthIntervalSeconds = 2
	cfg.Normalize()

	assert.Equal(t, MinStatusIntervalSeconds, cfg.Supervisor.StatusIntervalSeconds)
	assert.Equal(t, MinHealthIntervalSeconds, cfg.Supervisor.HealthIntervalSeconds)
}

func TestNormalize_TLSDefaultPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker.TLS.Enabled = true
	cfg.Broker.TLS.Port = 0
	cfg.Normalize()

	assert.Equal(t, 8883, cfg.Broker.TLS.Port)
}

func TestPaths_Layout(t *testing.T) {
	p := Paths{DataDir: "/var/lib/mqtt"}

	assert.Equal(t, "/var/lib/mqtt/users.json", p.UsersFile())
	assert.Equal(t, "/var/lib/mqtt/acls.json", p.ACLsFile())
	assert.Equal(t, "/var/lib/mqtt/bridges.json", p.BridgesFile())
	assert.Equal(t, "/var/lib/mqtt/passwd", p.PasswdFile())
	assert.Equal(t, "/var/lib/mqtt/acl", p.ACLFile())
	assert.Equal(t, "/var/lib/mqtt/mosquitto.conf", p.BrokerConfFile())
	assert.Equal(t, "/var/lib/mqtt/certs", p.CertsDir())
	assert.Equal(t, "/var/lib/mqtt/certs/ca-cert.pem", p.CACertFile())
	assert.Equal(t, "/var/lib/mqtt/certs/server-key.pem", p.ServerKeyFile())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), ExpandPath("~/x"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}
