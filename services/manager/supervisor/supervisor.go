// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

// =============================================================================
// State Machine
// =============================================================================

// State is the supervisor's view of the broker lifecycle.
type State string

const (
	StateStopped           State = "stopped"
	StateStarting          State = "starting"
	StateRunning           State = "running"
	StateDegraded          State = "degraded"
	StateRestarting        State = "restarting"
	StateFailedPermanently State = "failed_permanently"
)

// Restart trigger thresholds. Two consecutive down observations is the
// earliest point a single missed poll cannot explain; probe errors get
// one extra observation because a slow status call is more often the
// manager's fault than the broker's.
const (
	notRunningThreshold = 2
	statusErrThreshold  = 3
)

// Recorder receives supervisor observations. Implemented by the
// observability layer; nil disables recording.
type Recorder interface {
	RecordStatus(status datatypes.BrokerStatus)
	RecordState(state State)
	RecordRestart()
}

// Config is the supervisor's polling and restart policy.
type Config struct {
	StatusInterval     time.Duration
	HealthInterval     time.Duration
	MaxRestartAttempts int
	SettleDelay        time.Duration
}

// Snapshot is the externally visible supervisor condition.
type Snapshot struct {
	State           State                  `json:"state"`
	RestartAttempts int                    `json:"restartAttempts"`
	Broker          datatypes.BrokerStatus `json:"broker"`
}

// Supervisor drives the broker through its lifecycle: a fast status
// poll watches process liveness, a slower health poll cross-checks the
// reported PID, and bounded automatic restarts recover from crashes.
//
// Restart execution is single-flight: the status loop, the health loop,
// and ForceRestart all funnel through one in-flight guard so
// overlapping triggers cannot double-restart the broker.
type Supervisor struct {
	broker   BrokerControl
	logger   *logging.Logger
	recorder Recorder

	mu              sync.Mutex
	cfg             Config
	state           State
	lastStatus      datatypes.BrokerStatus
	notRunningCount int
	statusErrCount  int
	restartAttempts int

	restartInFlight atomic.Bool

	statusTicker *time.Ticker
	healthTicker *time.Ticker
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// New creates a supervisor over the given broker handle. recorder may
// be nil. Intervals below the floors are clamped.
func New(broker BrokerControl, cfg Config, recorder Recorder, logger *logging.Logger) *Supervisor {
	clampConfig(&cfg)
	return &Supervisor{
		broker:   broker,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
		state:    StateStopped,
	}
}

func clampConfig(cfg *Config) {
	if cfg.StatusInterval < time.Second {
		cfg.StatusInterval = time.Second
	}
	if cfg.HealthInterval < 5*time.Second {
		cfg.HealthInterval = 5 * time.Second
	}
	if cfg.MaxRestartAttempts <= 0 {
		cfg.MaxRestartAttempts = 3
	}
}

// Start launches the broker and begins polling. Idempotent while
// running.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(StateStarting)
	s.mu.Unlock()

	if err := s.broker.Start(ctx); err != nil {
		s.mu.Lock()
		s.setStateLocked(StateStopped)
		s.mu.Unlock()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.statusTicker = time.NewTicker(s.cfg.StatusInterval)
	s.healthTicker = time.NewTicker(s.cfg.HealthInterval)
	s.setStateLocked(StateRunning)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(loopCtx)
	s.logger.Info("supervisor started",
		"status_interval", s.cfg.StatusInterval, "health_interval", s.cfg.HealthInterval)
	return nil
}

// Stop halts polling and shuts the broker down. An in-flight restart
// attempt completes before the loop exits; nothing new is scheduled.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	s.wg.Wait()

	err := s.broker.Stop(ctx)
	s.mu.Lock()
	s.setStateLocked(StateStopped)
	s.statusTicker.Stop()
	s.healthTicker.Stop()
	s.mu.Unlock()
	s.logger.Info("supervisor stopped")
	return err
}

// run is the polling loop. One goroutine owns both tickers so status
// and health checks never race each other.
func (s *Supervisor) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.statusTicker.C:
			s.runStatusCheck(ctx)
		case <-s.healthTicker.C:
			s.runHealthCheck(ctx)
		}
	}
}

// -----------------------------------------------------------------------------
// Checks
// -----------------------------------------------------------------------------

// runStatusCheck performs one status poll and triggers recovery when
// the consecutive-failure thresholds are crossed.
func (s *Supervisor) runStatusCheck(ctx context.Context) {
	status, err := s.broker.Status(ctx)

	s.mu.Lock()
	if s.state == StateFailedPermanently || s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.statusErrCount++
		s.logger.Warn("broker status check failed",
			"error", err, "consecutive", s.statusErrCount)
	} else {
		s.statusErrCount = 0
		s.lastStatus = status
		if s.recorder != nil {
			s.recorder.RecordStatus(status)
		}
		if status.Running {
			s.notRunningCount = 0
			s.setStateLocked(StateRunning)
		} else {
			s.notRunningCount++
			s.setStateLocked(StateDegraded)
			s.logger.Warn("broker not running",
				"consecutive", s.notRunningCount)
		}
	}
	trigger := s.notRunningCount >= notRunningThreshold ||
		s.statusErrCount >= statusErrThreshold
	s.mu.Unlock()

	if trigger {
		s.attemptRestart(ctx, false)
	}
}

// runHealthCheck cross-checks the broker's status report against a
// signal probe on the reported PID. The status is re-queried here
// rather than read from the status loop's cache, so the two checks
// observe the broker independently. A process that reports running but
// does not answer the probe is dead; no second observation can change
// that, so the restart attempt fires immediately while attempts
// remain.
func (s *Supervisor) runHealthCheck(ctx context.Context) {
	s.mu.Lock()
	state := s.state
	cached := s.lastStatus
	s.mu.Unlock()
	if state == StateFailedPermanently || state == StateStopped {
		return
	}

	status, err := s.broker.Status(ctx)
	if err != nil {
		s.logger.Warn("health check: status probe failed", "error", err)
		status = cached
	}

	if status.Running && !s.broker.Alive() {
		s.logger.Warn("health check: reported pid is not alive", "pid", status.PID)
		s.mu.Lock()
		s.setStateLocked(StateDegraded)
		s.notRunningCount++
		s.mu.Unlock()
		s.attemptRestart(ctx, false)
		return
	}
	s.logger.Debug("health check passed", "running", status.Running)
}

// -----------------------------------------------------------------------------
// Restart
// -----------------------------------------------------------------------------

// attemptRestart performs one guarded restart attempt. force bypasses
// the attempt cap (and the caller has already zeroed the counter).
// Returns false when no attempt ran: the cap is exhausted or another
// attempt is already in flight.
func (s *Supervisor) attemptRestart(ctx context.Context, force bool) bool {
	s.mu.Lock()
	if !force && s.restartAttempts >= s.cfg.MaxRestartAttempts {
		s.logger.Error("restart attempts exhausted, giving up",
			"attempts", s.restartAttempts, "max", s.cfg.MaxRestartAttempts)
		s.setStateLocked(StateFailedPermanently)
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	if !s.restartInFlight.CompareAndSwap(false, true) {
		return false
	}
	defer s.restartInFlight.Store(false)

	s.mu.Lock()
	s.restartAttempts++
	attempt := s.restartAttempts
	settle := s.cfg.SettleDelay
	s.setStateLocked(StateRestarting)
	s.mu.Unlock()

	s.logger.Info("restarting broker", "attempt", attempt, "forced", force)
	if s.recorder != nil {
		s.recorder.RecordRestart()
	}

	if err := s.broker.Restart(ctx); err != nil {
		s.logger.Error("broker restart failed", "attempt", attempt, "error", err)
		s.mu.Lock()
		s.setStateLocked(StateDegraded)
		s.mu.Unlock()
		return true
	}

	// Give the broker time to bind its listeners before judging it.
	if settle > 0 {
		select {
		case <-ctx.Done():
			return true
		case <-time.After(settle):
		}
	}

	status, err := s.broker.Status(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil && status.Running {
		s.lastStatus = status
		s.notRunningCount = 0
		s.statusErrCount = 0
		s.restartAttempts = 0
		s.setStateLocked(StateRunning)
		s.logger.Info("broker recovered", "pid", status.PID)
		return true
	}
	s.setStateLocked(StateDegraded)
	s.logger.Warn("broker did not settle after restart", "attempt", attempt)
	return true
}

// ForceRestart restarts the broker on operator demand. The attempt
// counter is zeroed first, so a force restart always runs even from
// FailedPermanently and gives automatic recovery a fresh budget.
// Returns false when the request coalesced with a restart already in
// flight instead of running its own attempt.
func (s *Supervisor) ForceRestart(ctx context.Context) bool {
	s.mu.Lock()
	s.restartAttempts = 0
	s.notRunningCount = 0
	s.statusErrCount = 0
	s.mu.Unlock()
	return s.attemptRestart(ctx, true)
}

// Reconfigure applies a new polling policy. Intervals below the floors
// are clamped; running tickers are reset in place so no poll is lost.
func (s *Supervisor) Reconfigure(cfg Config) Config {
	clampConfig(&cfg)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	if s.statusTicker != nil {
		s.statusTicker.Reset(cfg.StatusInterval)
	}
	if s.healthTicker != nil {
		s.healthTicker.Reset(cfg.HealthInterval)
	}
	s.logger.Info("supervisor reconfigured",
		"status_interval", cfg.StatusInterval,
		"health_interval", cfg.HealthInterval,
		"max_restart_attempts", cfg.MaxRestartAttempts)
	return cfg
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// Snapshot returns the current supervisor condition.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:           s.state,
		RestartAttempts: s.restartAttempts,
		Broker:          s.lastStatus,
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConfigSnapshot returns the active polling policy.
func (s *Supervisor) ConfigSnapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// setStateLocked transitions state and records it. Caller holds s.mu.
func (s *Supervisor) setStateLocked(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("supervisor state change", "from", s.state, "to", next)
	s.state = next
	if s.recorder != nil {
		s.recorder.RecordState(next)
	}
}
