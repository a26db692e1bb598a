// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compiler

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

// confHeader mirrors the ACL header warning for the broker config.
const confHeader = `# Broker configuration generated by the AleutianMQTT manager.
# Do not edit by hand: changes are overwritten on the next configuration
# update.
`

// ConfParams are the inputs for the broker config render.
//
// Everything here is already validated and path-resolved by the caller;
// the render is purely mechanical.
type ConfParams struct {
	// Port and BindAddress configure the primary listener.
	Port        int
	BindAddress string

	// AllowAnonymous controls unauthenticated access.
	AllowAnonymous bool

	// PersistenceDir enables broker message persistence when non-empty.
	PersistenceDir string

	// PasswdFile and ACLFile are the compiled artifact paths.
	PasswdFile string
	ACLFile    string

	// TLS, when enabled, adds a second TLS listener.
	TLSEnabled  bool
	TLSPort     int
	TLSCAFile   string
	TLSCertFile string
	TLSKeyFile  string
}

// RenderBrokerConf renders the broker's own config file, including one
// `connection` section per enabled bridge. Disabled bridges are omitted.
//
// Like the other renders this is pure and byte-for-byte deterministic
// for identical input.
func RenderBrokerConf(params ConfParams, bridges []datatypes.BridgeDefinition) string {
	var b strings.Builder
	b.WriteString(confHeader)
	b.WriteByte('\n')

	if params.BindAddress != "" {
		fmt.Fprintf(&b, "listener %d %s\n", params.Port, params.BindAddress)
	} else {
		fmt.Fprintf(&b, "listener %d\n", params.Port)
	}
	fmt.Fprintf(&b, "allow_anonymous %s\n", boolWord(params.AllowAnonymous))
	fmt.Fprintf(&b, "password_file %s\n", params.PasswdFile)
	fmt.Fprintf(&b, "acl_file %s\n", params.ACLFile)

	if params.PersistenceDir != "" {
		b.WriteString("persistence true\n")
		fmt.Fprintf(&b, "persistence_location %s\n", params.PersistenceDir)
	}

	if params.TLSEnabled {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "listener %d\n", params.TLSPort)
		fmt.Fprintf(&b, "cafile %s\n", params.TLSCAFile)
		fmt.Fprintf(&b, "certfile %s\n", params.TLSCertFile)
		fmt.Fprintf(&b, "keyfile %s\n", params.TLSKeyFile)
	}

	for _, bridge := range bridges {
		if !bridge.Enabled {
			continue
		}
		writeBridgeSection(&b, bridge)
	}

	return b.String()
}

// writeBridgeSection renders one `connection` block.
func writeBridgeSection(b *strings.Builder, bridge datatypes.BridgeDefinition) {
	b.WriteByte('\n')
	fmt.Fprintf(b, "connection %s\n", bridge.ID)
	fmt.Fprintf(b, "address %s:%d\n", bridge.RemoteHost, bridge.RemotePort)

	for _, route := range bridge.Topics {
		// topic <pattern> <direction> <qos> [local-prefix] [remote-prefix]
		line := fmt.Sprintf("topic %s %s %d", route.Pattern, route.Direction, route.QoS)
		if route.LocalPrefix != "" || route.RemotePrefix != "" {
			line += fmt.Sprintf(" %s %s", emptyMark(route.LocalPrefix), emptyMark(route.RemotePrefix))
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if bridge.RemoteUsername != "" {
		fmt.Fprintf(b, "remote_username %s\n", bridge.RemoteUsername)
	}
	if bridge.RemotePassword != "" {
		fmt.Fprintf(b, "remote_password %s\n", bridge.RemotePassword)
	}
	if bridge.TLS.CAFile != "" {
		fmt.Fprintf(b, "bridge_cafile %s\n", bridge.TLS.CAFile)
	}
	if bridge.TLS.CertFile != "" {
		fmt.Fprintf(b, "bridge_certfile %s\n", bridge.TLS.CertFile)
	}
	if bridge.TLS.KeyFile != "" {
		fmt.Fprintf(b, "bridge_keyfile %s\n", bridge.TLS.KeyFile)
	}
	fmt.Fprintf(b, "keepalive_interval %d\n", bridge.KeepAliveSeconds)
	fmt.Fprintf(b, "cleansession %s\n", boolWord(bridge.CleanSession))
}

// boolWord renders a bool in the broker's config dialect.
func boolWord(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// emptyMark renders an empty prefix as the broker's "" placeholder so the
// positional prefix pair stays aligned.
func emptyMark(s string) string {
	if s == "" {
		return `""`
	}
	return s
}
