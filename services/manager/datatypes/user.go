// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the entities the manager persists and compiles
// into broker artifacts: user records, access rules, bridge definitions,
// and the broker status snapshot, together with their validation rules
// and the error taxonomy shared across the service.
package datatypes

import "fmt"

// MaxUsernameLength is the maximum accepted username length.
const MaxUsernameLength = 64

// UserRecord is a broker credential entry.
//
// The password is hashed before a record is persisted; PasswordHash is a
// self-describing string of the form
// "PBKDF2$sha256$<iterations>$<salt-base64>$<hash-base64>" so the
// iteration count and salt travel with the hash. Plaintext passwords never
// leave the store layer.
type UserRecord struct {
	// Username is unique, at most 64 characters, charset [A-Za-z0-9_.-].
	Username string `json:"username" validate:"required,max=64,brokerusername"`

	// PasswordHash is the derived credential. Empty only transiently,
	// before the store hashes the incoming plaintext.
	PasswordHash string `json:"passwordHash"`

	// Enabled controls whether the user is rendered into the compiled
	// credential file. Disabled users keep their hash but cannot log in.
	Enabled bool `json:"enabled"`
}

// AccessLevel is the permission granted by an access rule.
type AccessLevel string

const (
	AccessRead      AccessLevel = "read"
	AccessWrite     AccessLevel = "write"
	AccessReadWrite AccessLevel = "readwrite"
)

// Valid reports whether the level is one of the three known values.
func (a AccessLevel) Valid() bool {
	switch a {
	case AccessRead, AccessWrite, AccessReadWrite:
		return true
	}
	return false
}

// AccessRule restricts which principal may read/write which topic pattern.
//
// The principal is exactly one of: a username, a client id, or global
// (both empty). Uniqueness is the (principal, pattern, access) tuple;
// the store rejects duplicates.
type AccessRule struct {
	// Username scopes the rule to a broker user. Mutually exclusive
	// with ClientID.
	Username string `json:"username,omitempty"`

	// ClientID scopes the rule to an MQTT client id. Mutually exclusive
	// with Username.
	ClientID string `json:"clientId,omitempty"`

	// TopicPattern is an MQTT filter string, optionally containing the
	// `+` and `#` wildcards.
	TopicPattern string `json:"topicPattern" validate:"required,topicfilter"`

	// Access is read, write, or readwrite.
	Access AccessLevel `json:"access" validate:"required,oneof=read write readwrite"`
}

// IsGlobal reports whether the rule applies to all principals.
func (r AccessRule) IsGlobal() bool {
	return r.Username == "" && r.ClientID == ""
}

// Key returns the uniqueness tuple for duplicate detection.
func (r AccessRule) Key() string {
	return fmt.Sprintf("u=%s|c=%s|t=%s|a=%s", r.Username, r.ClientID, r.TopicPattern, r.Access)
}
