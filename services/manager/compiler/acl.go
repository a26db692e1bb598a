// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compiler

import (
	"strings"

	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

// aclHeader warns operators away from hand-editing a generated file.
const aclHeader = `# Access control list generated by the AleutianMQTT manager.
# Do not edit by hand: changes are overwritten on the next configuration
# update. Manage rules through the manager API instead.
`

// RenderACL renders the broker access-rule file.
//
// # Description
//
// Rules are partitioned into three deterministic groups:
//
//  1. Global rules (no principal), rendered first.
//  2. Per-username blocks, each introduced by a `user <name>` header.
//  3. Per-clientId blocks, each introduced by a `clientid <id>` header.
//
// Within a group, principals appear in first-appearance order of the
// input, and each rule renders as `topic <access> <pattern>`. Blocks are
// separated by blank lines. Given identical input the output is
// byte-identical.
func RenderACL(rules []datatypes.AccessRule) string {
	var global []datatypes.AccessRule
	byUser := make(map[string][]datatypes.AccessRule)
	byClient := make(map[string][]datatypes.AccessRule)
	var userOrder, clientOrder []string

	for _, r := range rules {
		switch {
		case r.Username != "":
			if _, seen := byUser[r.Username]; !seen {
				userOrder = append(userOrder, r.Username)
			}
			byUser[r.Username] = append(byUser[r.Username], r)
		case r.ClientID != "":
			if _, seen := byClient[r.ClientID]; !seen {
				clientOrder = append(clientOrder, r.ClientID)
			}
			byClient[r.ClientID] = append(byClient[r.ClientID], r)
		default:
			global = append(global, r)
		}
	}

	var b strings.Builder
	b.WriteString(aclHeader)

	if len(global) > 0 {
		b.WriteByte('\n')
		for _, r := range global {
			writeTopicLine(&b, r)
		}
	}

	for _, name := range userOrder {
		b.WriteByte('\n')
		b.WriteString("user ")
		b.WriteString(name)
		b.WriteByte('\n')
		for _, r := range byUser[name] {
			writeTopicLine(&b, r)
		}
	}

	for _, id := range clientOrder {
		b.WriteByte('\n')
		b.WriteString("clientid ")
		b.WriteString(id)
		b.WriteByte('\n')
		for _, r := range byClient[id] {
			writeTopicLine(&b, r)
		}
	}

	return b.String()
}

// writeTopicLine renders one `topic <access> <pattern>` line.
func writeTopicLine(b *strings.Builder, r datatypes.AccessRule) {
	b.WriteString("topic ")
	b.WriteString(string(r.Access))
	b.WriteByte(' ')
	b.WriteString(r.TopicPattern)
	b.WriteByte('\n')
}
