// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package compiler turns validated configuration entities into the text
// artifacts the broker consumes: the credential file, the access-rule
// file, and the broker's own config file.
//
// # Design
//
// Rendering is pure and idempotent: the same input always produces
// byte-identical output, so re-compiling unchanged state is a no-op at
// the file level. The compiler never validates; it trusts input that has
// already passed the datatypes validators. File writes go through
// WriteFileAtomic so the broker can never observe a half-written
// artifact.
package compiler

import (
	"strings"

	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

// RenderPasswd renders the broker credential file.
//
// One `username:hash` line per enabled user, in input order; callers
// keep that order deterministic. Disabled users are omitted entirely.
func RenderPasswd(users []datatypes.UserRecord) string {
	var b strings.Builder
	for _, u := range users {
		if !u.Enabled {
			continue
		}
		b.WriteString(u.Username)
		b.WriteByte(':')
		b.WriteString(u.PasswordHash)
		b.WriteByte('\n')
	}
	return b.String()
}
