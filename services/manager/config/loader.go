// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".aleutian-mqtt", "manager.yaml"), nil
}

// Load reads the config file at path, creating it with defaults on first
// run, and returns the parsed, normalized configuration.
//
// Unknown fields are ignored; missing fields fall back to defaults via
// Normalize. The returned object is owned by the caller and passed
// explicitly into component constructors.
func Load(path string) (*ManagerConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// createDefault writes the default config, creating parent directories.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Normalize fills unset fields with defaults and clamps the supervisor
// intervals to their floors. Called on every load and on every runtime
// reconfiguration before values are accepted.
func (c *ManagerConfig) Normalize() {
	def := DefaultConfig()

	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	c.DataDir = ExpandPath(c.DataDir)
	if c.HTTP.Port == 0 {
		c.HTTP.Port = def.HTTP.Port
	}
	if c.Broker.Binary == "" {
		c.Broker.Binary = def.Broker.Binary
	}
	if c.Broker.Port == 0 {
		c.Broker.Port = def.Broker.Port
	}
	if c.Broker.BindAddress == "" {
		c.Broker.BindAddress = def.Broker.BindAddress
	}
	if c.Broker.TLS.Enabled && c.Broker.TLS.Port == 0 {
		c.Broker.TLS.Port = 8883
	}

	c.Supervisor.Normalize()

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Normalize applies defaults and floors to the supervisor policy.
func (s *SupervisorConfig) Normalize() {
	def := DefaultConfig().Supervisor

	if s.StatusIntervalSeconds == 0 {
		s.StatusIntervalSeconds = def.StatusIntervalSeconds
	}
	if s.HealthIntervalSeconds == 0 {
		s.HealthIntervalSeconds = def.HealthIntervalSeconds
	}
	if s.MaxRestartAttempts == 0 {
		s.MaxRestartAttempts = def.MaxRestartAttempts
	}
	if s.SettleDelaySeconds == 0 {
		s.SettleDelaySeconds = def.SettleDelaySeconds
	}

	if s.StatusIntervalSeconds < MinStatusIntervalSeconds {
		s.StatusIntervalSeconds = MinStatusIntervalSeconds
	}
	if s.HealthIntervalSeconds < MinHealthIntervalSeconds {
		s.HealthIntervalSeconds = MinHealthIntervalSeconds
	}
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
