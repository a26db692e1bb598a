// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Manage the broker's TLS certificates",
}

var certStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the certificate chain is valid",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Valid bool `json:"valid"`
		}
		if err := client.get(cmd.Context(), "/v1/certs/status", &resp); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(resp)
		}
		if resp.Valid {
			fmt.Println(good("certificates valid"))
		} else {
			fmt.Println(bad("certificates missing or invalid"))
		}
		return nil
	},
}

var certRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Replace the CA and server certificate",
	Long: `Replace the CA and server certificate. Clients that pinned the
old CA must fetch the new one afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.post(cmd.Context(), "/v1/certs/regenerate", nil, nil); err != nil {
			return err
		}
		fmt.Println(good("certificates regenerated"))
		return nil
	},
}

// --- Bulk configuration ---

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export users, rules, and bridges (passwords redacted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var bundle json.RawMessage
		if err := client.get(cmd.Context(), "/v1/config/export", &bundle); err != nil {
			return err
		}
		var pretty map[string]any
		if err := json.Unmarshal(bundle, &pretty); err != nil {
			return err
		}
		data, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
		if len(args) == 0 {
			fmt.Print(string(data))
			return nil
		}
		return os.WriteFile(args[0], data, 0600)
	},
}

var (
	importOverwriteFlag bool

	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Import a previously exported bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var bundle map[string]any
			if err := json.Unmarshal(data, &bundle); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			path := "/v1/config/import"
			if importOverwriteFlag {
				path += "?overwrite=true"
			}
			var result map[string]any
			if err := client.post(cmd.Context(), path, bundle, &result); err != nil {
				return err
			}
			return printJSON(result)
		},
	}
)

func init() {
	importCmd.Flags().BoolVar(&importOverwriteFlag, "overwrite", false,
		"replace existing entries instead of skipping them")
}
