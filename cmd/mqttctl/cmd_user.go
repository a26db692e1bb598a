// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// --- Users ---

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage broker user accounts",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Users []struct {
				Username string `json:"username"`
				Enabled  bool   `json:"enabled"`
			} `json:"users"`
		}
		if err := client.get(cmd.Context(), "/v1/users", &resp); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(resp)
		}
		for _, u := range resp.Users {
			mark := good("enabled")
			if !u.Enabled {
				mark = warn("disabled")
			}
			fmt.Printf("%-24s %s\n", u.Username, mark)
		}
		return nil
	},
}

var (
	userPasswordFlag string
	userDisabledFlag bool

	userAddCmd = &cobra.Command{
		Use:   "add [username]",
		Short: "Add a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := resolvePassword()
			if err != nil {
				return err
			}
			body := map[string]any{
				"username": args[0],
				"password": password,
				"enabled":  !userDisabledFlag,
			}
			if err := client.post(cmd.Context(), "/v1/users", body, nil); err != nil {
				return err
			}
			fmt.Printf("user %s created\n", bold(args[0]))
			return nil
		},
	}
)

var userRemoveCmd = &cobra.Command{
	Use:     "remove [username]",
	Aliases: []string{"rm"},
	Short:   "Remove a user account",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.delete(cmd.Context(), "/v1/users/"+args[0], nil)
	},
}

var userEnableCmd = &cobra.Command{
	Use:   "enable [username]",
	Short: "Enable a user account",
	Args:  cobra.ExactArgs(1),
	RunE:  setUserEnabled(true),
}

var userDisableCmd = &cobra.Command{
	Use:   "disable [username]",
	Short: "Disable a user account without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE:  setUserEnabled(false),
}

func setUserEnabled(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		body := map[string]bool{"enabled": enabled}
		return client.put(cmd.Context(), "/v1/users/"+args[0], body, nil)
	}
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd [username]",
	Short: "Change a user's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := resolvePassword()
		if err != nil {
			return err
		}
		body := map[string]string{"password": password}
		return client.put(cmd.Context(), "/v1/users/"+args[0]+"/password", body, nil)
	},
}

// resolvePassword takes the --password flag when given, otherwise
// prompts without echo when attached to a terminal.
func resolvePassword() (string, error) {
	if userPasswordFlag != "" {
		return userPasswordFlag, nil
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", fmt.Errorf("no terminal for password prompt; use --password")
	}
	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func init() {
	for _, c := range []*cobra.Command{userAddCmd, userPasswdCmd} {
		c.Flags().StringVar(&userPasswordFlag, "password", "",
			"password (prompted when omitted)")
	}
	userAddCmd.Flags().BoolVar(&userDisabledFlag, "disabled", false,
		"create the account disabled")
}

// --- ACL rules ---

var aclCmd = &cobra.Command{
	Use:   "acl",
	Short: "Manage topic access rules",
}

var aclListCmd = &cobra.Command{
	Use:   "list",
	Short: "List access rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]any
		if err := client.get(cmd.Context(), "/v1/acls", &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var (
	aclUserFlag     string
	aclClientIDFlag string

	aclAddCmd = &cobra.Command{
		Use:   "add [pattern] [read|write|readwrite]",
		Short: "Add an access rule (global unless --user or --clientid is set)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.post(cmd.Context(), "/v1/acls", aclBody(args), nil); err != nil {
				return err
			}
			fmt.Println("rule added")
			return nil
		},
	}

	aclRemoveCmd = &cobra.Command{
		Use:     "remove [pattern] [read|write|readwrite]",
		Aliases: []string{"rm"},
		Short:   "Remove an access rule",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.delete(cmd.Context(), "/v1/acls", aclBody(args))
		},
	}
)

func aclBody(args []string) map[string]string {
	body := map[string]string{"topicPattern": args[0], "access": args[1]}
	if aclUserFlag != "" {
		body["username"] = aclUserFlag
	}
	if aclClientIDFlag != "" {
		body["clientId"] = aclClientIDFlag
	}
	return body
}

func init() {
	for _, c := range []*cobra.Command{aclAddCmd, aclRemoveCmd} {
		c.Flags().StringVar(&aclUserFlag, "user", "", "restrict the rule to a username")
		c.Flags().StringVar(&aclClientIDFlag, "clientid", "", "restrict the rule to a client id")
	}
}
