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

	"github.com/mattn/go-isatty"
)

// ANSI codes, emitted only when stdout is a real terminal.
const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiBold   = "\033[1m"
)

func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func colorize(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return code + s + ansiReset
}

func good(s string) string { return colorize(ansiGreen, s) }
func warn(s string) string { return colorize(ansiYellow, s) }
func bad(s string) string  { return colorize(ansiRed, s) }
func bold(s string) string { return colorize(ansiBold, s) }

// printJSON renders any API response as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// stateLabel colors a supervisor state for human output.
func stateLabel(state string) string {
	switch state {
	case "running":
		return good(state)
	case "degraded", "restarting", "starting":
		return warn(state)
	case "failed_permanently":
		return bad(state)
	default:
		return state
	}
}
