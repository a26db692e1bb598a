// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config defines the manager's own configuration: where state
// lives on disk, how the broker listens, and how aggressively the
// supervisor polls. The config is an explicitly owned object passed into
// each component constructor; there is no package-level singleton.
package config

import "path/filepath"

// CurrentVersion is written into new config files; a future incompatible
// layout bumps it and migrates on load.
const CurrentVersion = 1

// Supervisor polling floors. Reconfiguration below these values is
// clamped to prevent pathological tight-looping.
const (
	MinStatusIntervalSeconds = 1
	MinHealthIntervalSeconds = 5
)

// ManagerConfig is the top-level configuration for the manager daemon.
type ManagerConfig struct {
	// Version of the config layout.
	Version int `yaml:"version"`

	// DataDir holds persisted entity records, compiled artifacts, and
	// the certs/ subdirectory.
	DataDir string `yaml:"data_dir"`

	// HTTP configures the manager's own API listener.
	HTTP HTTPConfig `yaml:"http"`

	// Broker configures the supervised broker's listener and binary.
	Broker BrokerConfig `yaml:"broker"`

	// Supervisor configures the polling/restart policy.
	Supervisor SupervisorConfig `yaml:"supervisor"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig configures the manager API listener.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// BrokerConfig configures the supervised broker.
type BrokerConfig struct {
	// Binary is the broker executable name or path.
	Binary string `yaml:"binary"`

	// Port and BindAddress configure the plaintext listener.
	Port        int    `yaml:"port"`
	BindAddress string `yaml:"bind_address"`

	// AllowAnonymous permits unauthenticated clients.
	AllowAnonymous bool `yaml:"allow_anonymous"`

	// PersistenceDir enables broker message persistence when non-empty.
	PersistenceDir string `yaml:"persistence_dir"`

	// TLS enables the TLS listener using manager-issued certificates.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures the broker's TLS listener.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// SupervisorConfig configures the supervisor's polling and restart policy.
type SupervisorConfig struct {
	// StatusIntervalSeconds is the short status poll period (floor 1s).
	StatusIntervalSeconds int `yaml:"status_interval_seconds"`

	// HealthIntervalSeconds is the deep health check period (floor 5s).
	HealthIntervalSeconds int `yaml:"health_interval_seconds"`

	// MaxRestartAttempts bounds automatic recovery before the
	// supervisor reports a fatal condition.
	MaxRestartAttempts int `yaml:"max_restart_attempts"`

	// SettleDelaySeconds is the wait between a restart and its
	// verification check.
	SettleDelaySeconds int `yaml:"settle_delay_seconds"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *ManagerConfig {
	return &ManagerConfig{
		Version: CurrentVersion,
		DataDir: "~/.aleutian-mqtt/data",
		HTTP:    HTTPConfig{Port: 1884},
		Broker: BrokerConfig{
			Binary:         "mosquitto",
			Port:           1883,
			BindAddress:    "127.0.0.1",
			AllowAnonymous: false,
		},
		Supervisor: SupervisorConfig{
			StatusIntervalSeconds: 5,
			HealthIntervalSeconds: 30,
			MaxRestartAttempts:    3,
			SettleDelaySeconds:    2,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// =============================================================================
// Persisted State Layout
// =============================================================================

// Paths resolves the fixed file layout inside the data directory:
// structured records (users.json, acls.json, bridges.json), compiled
// outputs (passwd, acl, broker config), and the certs/ subdirectory.
type Paths struct {
	DataDir string
}

func (p Paths) UsersFile() string   { return filepath.Join(p.DataDir, "users.json") }
func (p Paths) ACLsFile() string    { return filepath.Join(p.DataDir, "acls.json") }
func (p Paths) BridgesFile() string { return filepath.Join(p.DataDir, "bridges.json") }

func (p Paths) PasswdFile() string     { return filepath.Join(p.DataDir, "passwd") }
func (p Paths) ACLFile() string        { return filepath.Join(p.DataDir, "acl") }
func (p Paths) BrokerConfFile() string { return filepath.Join(p.DataDir, "mosquitto.conf") }

func (p Paths) CertsDir() string       { return filepath.Join(p.DataDir, "certs") }
func (p Paths) CAKeyFile() string      { return filepath.Join(p.CertsDir(), "ca-key.pem") }
func (p Paths) CACertFile() string     { return filepath.Join(p.CertsDir(), "ca-cert.pem") }
func (p Paths) ServerKeyFile() string  { return filepath.Join(p.CertsDir(), "server-key.pem") }
func (p Paths) ServerCertFile() string { return filepath.Join(p.CertsDir(), "server-cert.pem") }
