// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL  string
	jsonOutput bool

	client *apiClient

	rootCmd = &cobra.Command{
		Use:   "mqttctl",
		Short: "A cli to manage the AleutianMQTT broker manager",
		Long: `mqttctl talks to a running AleutianMQTT manager daemon to
administer broker users, access rules, bridges, certificates, and the
supervised broker process itself.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client = newAPIClient(serverURL)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		"http://127.0.0.1:1884", "manager API base URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"print raw JSON responses")

	// --- Broker / Supervisor ---
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(supervisorCmd)
	supervisorCmd.AddCommand(supervisorGetCmd)
	supervisorCmd.AddCommand(supervisorSetCmd)

	// --- Users / ACLs ---
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userRemoveCmd)
	userCmd.AddCommand(userEnableCmd)
	userCmd.AddCommand(userDisableCmd)
	userCmd.AddCommand(userPasswdCmd)

	rootCmd.AddCommand(aclCmd)
	aclCmd.AddCommand(aclListCmd)
	aclCmd.AddCommand(aclAddCmd)
	aclCmd.AddCommand(aclRemoveCmd)

	// --- Bridges ---
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.AddCommand(bridgeListCmd)
	bridgeCmd.AddCommand(bridgeAddCmd)
	bridgeCmd.AddCommand(bridgeRemoveCmd)
	bridgeCmd.AddCommand(bridgeEnableCmd)
	bridgeCmd.AddCommand(bridgeDisableCmd)
	bridgeCmd.AddCommand(bridgeDuplicateCmd)
	bridgeCmd.AddCommand(bridgeTestCmd)

	// --- Certificates ---
	rootCmd.AddCommand(certCmd)
	certCmd.AddCommand(certStatusCmd)
	certCmd.AddCommand(certRegenerateCmd)

	// --- Bulk config ---
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
