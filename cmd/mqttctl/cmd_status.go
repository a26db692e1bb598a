// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type statusResponse struct {
	State           string `json:"state"`
	RestartAttempts int    `json:"restartAttempts"`
	Broker          struct {
		Running           bool          `json:"running"`
		PID               int           `json:"pid"`
		Uptime            time.Duration `json:"uptime"`
		Version           string        `json:"version"`
		ConnectedClients  int64         `json:"connectedClients"`
		MessagesReceived  int64         `json:"messagesReceived"`
		MessagesPublished int64         `json:"messagesPublished"`
	} `json:"broker"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the supervised broker's status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status statusResponse
		if err := client.get(cmd.Context(), "/v1/broker/status", &status); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(status)
		}

		fmt.Printf("%s  %s\n", bold("state:"), stateLabel(status.State))
		if status.Broker.Running {
			fmt.Printf("%s    %d\n", bold("pid:"), status.Broker.PID)
			fmt.Printf("%s %s\n", bold("uptime:"), status.Broker.Uptime)
			if status.Broker.Version != "" {
				fmt.Printf("%s mosquitto %s\n", bold("broker:"), status.Broker.Version)
			}
			fmt.Printf("%s %d connected, %d received, %d published\n", bold("clients:"),
				status.Broker.ConnectedClients,
				status.Broker.MessagesReceived,
				status.Broker.MessagesPublished)
		}
		if status.RestartAttempts > 0 {
			fmt.Printf("%s %s\n", bold("restarts:"),
				warn(fmt.Sprintf("%d attempts since last recovery", status.RestartAttempts)))
		}
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Force a broker restart",
	Long: `Force a broker restart. This resets the supervisor's automatic
retry budget and runs even when the supervisor has given up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var status struct {
			statusResponse
			Coalesced bool `json:"coalesced"`
		}
		if err := client.post(cmd.Context(), "/v1/broker/restart", nil, &status); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(status)
		}
		if status.Coalesced {
			fmt.Printf("a restart is already in progress, state is %s\n", stateLabel(status.State))
			return nil
		}
		fmt.Printf("restart requested, state is now %s\n", stateLabel(status.State))
		return nil
	},
}

var supervisorCmd = &cobra.Command{
	Use:   "supervisor",
	Short: "Inspect or change the supervisor's polling policy",
}

var supervisorGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the active polling policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg map[string]any
		if err := client.get(cmd.Context(), "/v1/supervisor/config", &cfg); err != nil {
			return err
		}
		return printJSON(cfg)
	},
}

var (
	statusIntervalFlag int
	healthIntervalFlag int
	maxRestartsFlag    int

	supervisorSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Apply a new polling policy (values below the floors are clamped)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var applied map[string]any
			body := map[string]int{
				"statusIntervalSeconds": statusIntervalFlag,
				"healthIntervalSeconds": healthIntervalFlag,
				"maxRestartAttempts":    maxRestartsFlag,
			}
			if err := client.put(cmd.Context(), "/v1/supervisor/config", body, &applied); err != nil {
				return err
			}
			return printJSON(applied)
		},
	}
)

func init() {
	supervisorSetCmd.Flags().IntVar(&statusIntervalFlag, "status-interval", 5,
		"status poll interval in seconds (floor 1)")
	supervisorSetCmd.Flags().IntVar(&healthIntervalFlag, "health-interval", 30,
		"health check interval in seconds (floor 5)")
	supervisorSetCmd.Flags().IntVar(&maxRestartsFlag, "max-restarts", 3,
		"automatic restart attempts before giving up")
}
