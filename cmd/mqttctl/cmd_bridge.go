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

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Manage broker-to-broker bridges",
}

var bridgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bridge definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Bridges []struct {
				ID         string `json:"id"`
				Name       string `json:"name"`
				Enabled    bool   `json:"enabled"`
				RemoteHost string `json:"remoteHost"`
				RemotePort int    `json:"remotePort"`
			} `json:"bridges"`
		}
		if err := client.get(cmd.Context(), "/v1/bridges", &resp); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(resp)
		}
		for _, b := range resp.Bridges {
			mark := good("enabled")
			if !b.Enabled {
				mark = warn("disabled")
			}
			fmt.Printf("%-36s %-24s %s:%d %s\n", b.ID, b.Name, b.RemoteHost, b.RemotePort, mark)
		}
		return nil
	},
}

// bridgeAddCmd takes a full definition as a JSON file; a bridge has too
// many knobs for flags.
var bridgeAddCmd = &cobra.Command{
	Use:   "add [definition.json]",
	Short: "Create a bridge from a JSON definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var def map[string]any
		if err := json.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		var created map[string]any
		if err := client.post(cmd.Context(), "/v1/bridges", def, &created); err != nil {
			return err
		}
		return printJSON(created)
	},
}

var bridgeRemoveCmd = &cobra.Command{
	Use:     "remove [id]",
	Aliases: []string{"rm"},
	Short:   "Delete a bridge",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.delete(cmd.Context(), "/v1/bridges/"+args[0], nil)
	},
}

var bridgeEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Enable a bridge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.post(cmd.Context(), "/v1/bridges/"+args[0]+"/enable", nil, nil)
	},
}

var bridgeDisableCmd = &cobra.Command{
	Use:   "disable [id]",
	Short: "Disable a bridge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.post(cmd.Context(), "/v1/bridges/"+args[0]+"/disable", nil, nil)
	},
}

var bridgeDuplicateCmd = &cobra.Command{
	Use:   "duplicate [id]",
	Short: "Copy a bridge under a new id (created disabled)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var dup map[string]any
		if err := client.post(cmd.Context(), "/v1/bridges/"+args[0]+"/duplicate", nil, &dup); err != nil {
			return err
		}
		return printJSON(dup)
	},
}

var bridgeTestCmd = &cobra.Command{
	Use:   "test [id]",
	Short: "Probe a bridge's remote endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			ID        string `json:"id"`
			Reachable bool   `json:"reachable"`
		}
		if err := client.post(cmd.Context(), "/v1/bridges/"+args[0]+"/test", nil, &result); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(result)
		}
		if result.Reachable {
			fmt.Println(good("remote endpoint reachable"))
		} else {
			fmt.Println(bad("remote endpoint unreachable (see manager log for the reason)"))
		}
		return nil
	},
}
