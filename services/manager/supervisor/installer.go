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
	"os/exec"
	"sync"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
)

// InstallInfo describes whether and where the broker binary was found.
type InstallInfo struct {
	Installed bool   `json:"installed"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
}

// Installer detects the broker installation and can be asked to
// install it.
type Installer interface {
	// Detect looks up the broker binary and its version.
	//
	// # Outputs
	//
	//   - InstallInfo: Installed=false with empty fields when the
	//     binary is not on PATH; absence is a result, not an error
	//   - error: Non-nil only when the probe itself fails
	Detect(ctx context.Context) (InstallInfo, error)

	// Install attempts to install the broker.
	//
	// # Outputs
	//
	//   - error: Non-nil when nothing was installed
	Install(ctx context.Context) error
}

// DefaultInstaller implements Installer with a PATH lookup.
type DefaultInstaller struct {
	// Binary is the executable name or path to probe.
	Binary string

	// Logger receives the installation guidance. May be nil.
	Logger *logging.Logger
}

var _ Installer = (*DefaultInstaller)(nil)

// Detect looks up the broker binary and its version.
func (d *DefaultInstaller) Detect(ctx context.Context) (InstallInfo, error) {
	path, err := exec.LookPath(d.Binary)
	if err != nil {
		return InstallInfo{}, nil
	}
	info := InstallInfo{Installed: true, Path: path}

	out, _ := exec.CommandContext(ctx, path, "-h").CombinedOutput()
	if match := versionPattern.FindSubmatch(out); match != nil {
		info.Version = string(match[1])
	}
	return info, nil
}

// Install explains how to install the broker and reports that nothing
// was installed. The manager never mutates the host's package state;
// installation is an operator action, and this method exists so
// callers have one collaborator for both questions.
func (d *DefaultInstaller) Install(ctx context.Context) error {
	if d.Logger != nil {
		d.Logger.Warn("automatic broker installation is not supported",
			"binary", d.Binary,
			"hint", "install it with the system package manager and restart the manager")
	}
	return fmt.Errorf("automatic installation of %s is not supported; install it with the system package manager", d.Binary)
}

// MockInstaller is a test double for Installer.
type MockInstaller struct {
	// DetectFunc is called when Detect is invoked
	DetectFunc func(ctx context.Context) (InstallInfo, error)

	// InstallFunc is called when Install is invoked
	InstallFunc func(ctx context.Context) error

	// Calls records all method invocations for verification
	Calls []string

	mu sync.Mutex
}

var _ Installer = (*MockInstaller)(nil)

func (m *MockInstaller) record(method string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, method)
	m.mu.Unlock()
}

// Detect delegates to DetectFunc and records the call.
func (m *MockInstaller) Detect(ctx context.Context) (InstallInfo, error) {
	m.record("Detect")
	if m.DetectFunc == nil {
		return InstallInfo{Installed: true, Path: "/usr/sbin/mosquitto"}, nil
	}
	return m.DetectFunc(ctx)
}

// Install delegates to InstallFunc and records the call.
func (m *MockInstaller) Install(ctx context.Context) error {
	m.record("Install")
	if m.InstallFunc == nil {
		return nil
	}
	return m.InstallFunc(ctx)
}

// CallCount returns the number of invocations of the given method.
func (m *MockInstaller) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.Calls {
		if call == method {
			count++
		}
	}
	return count
}
