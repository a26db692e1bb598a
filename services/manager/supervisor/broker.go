// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package supervisor keeps the broker process alive: a BrokerControl
abstracts starting, stopping, and inspecting the process, and the
Supervisor drives it through a polling state machine with bounded
automatic restarts.

All process interaction goes through the BrokerControl interface so the
state machine can be exercised in tests without a real broker binary.
*/
package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sync"
	"syscall"
	"time"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// BrokerControl handles broker process operations.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the supervisor's
// status and health loops call into the same handle.
//
// # Context Handling
//
// All methods accept a context.Context. Stop and Restart respect
// cancellation while waiting for process exit.
type BrokerControl interface {
	// Start launches the broker with the compiled configuration.
	//
	// # Description
	//
	// Spawns the broker process and returns once it is started. Starting
	// an already-running broker is a no-op, not an error.
	//
	// # Outputs
	//
	//   - error: Non-nil if the process fails to spawn
	Start(ctx context.Context) error

	// Stop terminates the broker process.
	//
	// # Description
	//
	// Sends SIGTERM and waits for exit; escalates to SIGKILL if the
	// process has not exited within the grace period. Stopping an
	// already-stopped broker is a no-op.
	Stop(ctx context.Context) error

	// Restart stops then starts the broker.
	//
	// # Description
	//
	// The stop half tolerates an already-dead process, so Restart also
	// serves as recovery from a crash.
	Restart(ctx context.Context) error

	// Status returns a point-in-time snapshot of the process.
	//
	// # Outputs
	//
	//   - datatypes.BrokerStatus: Running flag, PID, uptime, version,
	//     and best-effort traffic counters
	//   - error: Non-nil only when the probe itself fails, not when the
	//     broker is down (down is a valid status, not an error)
	Status(ctx context.Context) (datatypes.BrokerStatus, error)

	// Alive reports whether the tracked PID still answers a signal-0
	// probe. Returns false when no process is tracked.
	Alive() bool
}

// StatsReader supplies broker traffic counters. Implementations may
// fail freely; counters are decorative, liveness is not read from them.
type StatsReader interface {
	ReadStats(ctx context.Context) (BrokerStats, error)
}

// BrokerStats carries the $SYS counters merged into a status snapshot.
type BrokerStats struct {
	ConnectedClients  int64
	TotalConnections  int64
	MessagesReceived  int64
	MessagesPublished int64
	BytesReceived     int64
	BytesPublished    int64
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// stopGracePeriod is how long Stop waits after SIGTERM before SIGKILL.
const stopGracePeriod = 5 * time.Second

var versionPattern = regexp.MustCompile(`version (\d+[.\d]*)`)

// MosquittoControl implements BrokerControl over a mosquitto process.
//
// The broker runs in the foreground under this handle (no -d flag);
// a reaper goroutine collects the exit status so crashed processes
// never linger as zombies.
type MosquittoControl struct {
	binary   string
	confPath string
	logger   *logging.Logger
	stats    StatsReader

	mu        sync.Mutex
	cmd       *exec.Cmd
	startedAt time.Time
	version   string
}

var _ BrokerControl = (*MosquittoControl)(nil)

// NewMosquittoControl creates a handle for the given binary and
// compiled configuration file. stats may be nil; counters then stay
// zero in status snapshots.
func NewMosquittoControl(binary, confPath string, stats StatsReader, logger *logging.Logger) *MosquittoControl {
	return &MosquittoControl{
		binary:   binary,
		confPath: confPath,
		stats:    stats,
		logger:   logger,
	}
}

// Start launches the broker with the compiled configuration.
func (c *MosquittoControl) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil && c.alive() {
		c.logger.Debug("broker already running", "pid", c.cmd.Process.Pid)
		return nil
	}

	cmd := exec.Command(c.binary, "-c", c.confPath)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %v: %w", c.binary, err, datatypes.ErrExternalProcess)
	}
	c.cmd = cmd
	c.startedAt = time.Now()
	c.logger.Info("broker started", "pid", cmd.Process.Pid, "conf", c.confPath)

	// Reap the process when it exits so a crash does not leave a zombie.
	go func() {
		err := cmd.Wait()
		c.logger.Warn("broker process exited", "pid", cmd.Process.Pid, "error", err)
	}()
	return nil
}

// Stop terminates the broker process.
func (c *MosquittoControl) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd == nil || !c.alive() {
		c.cmd = nil
		return nil
	}
	pid := c.cmd.Process.Pid
	if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %v: %w", pid, err, datatypes.ErrExternalProcess)
	}

	deadline := time.After(stopGracePeriod)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for c.alive() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			c.logger.Warn("broker ignored SIGTERM, killing", "pid", pid)
			_ = c.cmd.Process.Kill()
		case <-tick.C:
		}
	}
	c.logger.Info("broker stopped", "pid", pid)
	c.cmd = nil
	return nil
}

// Restart stops then starts the broker.
func (c *MosquittoControl) Restart(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}
	return c.Start(ctx)
}

// Status returns a point-in-time snapshot of the process.
func (c *MosquittoControl) Status(ctx context.Context) (datatypes.BrokerStatus, error) {
	c.mu.Lock()
	running := c.cmd != nil && c.alive()
	status := datatypes.BrokerStatus{Running: running}
	if running {
		status.PID = c.cmd.Process.Pid
		status.Uptime = time.Since(c.startedAt).Truncate(time.Second)
	}
	stats := c.stats
	c.mu.Unlock()

	status.Version = c.brokerVersion(ctx)

	if running && stats != nil {
		counters, err := stats.ReadStats(ctx)
		if err != nil {
			c.logger.Debug("broker stats unavailable", "error", err)
		} else {
			status.ConnectedClients = counters.ConnectedClients
			status.TotalConnections = counters.TotalConnections
			status.MessagesReceived = counters.MessagesReceived
			status.MessagesPublished = counters.MessagesPublished
			status.BytesReceived = counters.BytesReceived
			status.BytesPublished = counters.BytesPublished
		}
	}
	return status, nil
}

// Alive reports whether the tracked PID still answers a signal-0 probe.
func (c *MosquittoControl) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cmd != nil && c.alive()
}

// alive probes the tracked process with signal 0. Caller holds c.mu.
func (c *MosquittoControl) alive() bool {
	if c.cmd == nil || c.cmd.Process == nil {
		return false
	}
	return c.cmd.Process.Signal(syscall.Signal(0)) == nil
}

// brokerVersion parses and caches the version from the binary's usage
// output. mosquitto prints "mosquitto version X.Y.Z" in -h output.
func (c *MosquittoControl) brokerVersion(ctx context.Context) string {
	c.mu.Lock()
	if c.version != "" {
		v := c.version
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	// -h exits non-zero on some builds; the output is still usable.
	out, _ := exec.CommandContext(ctx, c.binary, "-h").CombinedOutput()
	match := versionPattern.FindSubmatch(out)
	if match == nil {
		return ""
	}
	c.mu.Lock()
	c.version = string(match[1])
	c.mu.Unlock()
	return string(match[1])
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockBrokerControl is a test double for BrokerControl.
//
// Configure the mock by setting function fields before use. Unset
// fields make the corresponding method a benign no-op so state machine
// tests only stub what they assert on.
type MockBrokerControl struct {
	// StartFunc is called when Start is invoked
	StartFunc func(ctx context.Context) error

	// StopFunc is called when Stop is invoked
	StopFunc func(ctx context.Context) error

	// RestartFunc is called when Restart is invoked
	RestartFunc func(ctx context.Context) error

	// StatusFunc is called when Status is invoked
	StatusFunc func(ctx context.Context) (datatypes.BrokerStatus, error)

	// AliveFunc is called when Alive is invoked
	AliveFunc func() bool

	// Calls records all method invocations for verification
	Calls []string

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

var _ BrokerControl = (*MockBrokerControl)(nil)

func (m *MockBrokerControl) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, method)
}

// Start delegates to StartFunc and records the call.
func (m *MockBrokerControl) Start(ctx context.Context) error {
	m.record("Start")
	if m.StartFunc == nil {
		return nil
	}
	return m.StartFunc(ctx)
}

// Stop delegates to StopFunc and records the call.
func (m *MockBrokerControl) Stop(ctx context.Context) error {
	m.record("Stop")
	if m.StopFunc == nil {
		return nil
	}
	return m.StopFunc(ctx)
}

// Restart delegates to RestartFunc and records the call.
func (m *MockBrokerControl) Restart(ctx context.Context) error {
	m.record("Restart")
	if m.RestartFunc == nil {
		return nil
	}
	return m.RestartFunc(ctx)
}

// Status delegates to StatusFunc and records the call.
func (m *MockBrokerControl) Status(ctx context.Context) (datatypes.BrokerStatus, error) {
	m.record("Status")
	if m.StatusFunc == nil {
		return datatypes.BrokerStatus{}, nil
	}
	return m.StatusFunc(ctx)
}

// Alive delegates to AliveFunc and records the call.
func (m *MockBrokerControl) Alive() bool {
	m.record("Alive")
	if m.AliveFunc == nil {
		return false
	}
	return m.AliveFunc()
}

// CallCount returns how many times the given method was invoked.
func (m *MockBrokerControl) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == method {
			n++
		}
	}
	return n
}
