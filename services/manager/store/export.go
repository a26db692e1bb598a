// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"

	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

// RedactedSecret replaces password material in exported bundles.
const RedactedSecret = "[REDACTED]"

// ConfigBundle is the portable export format: every record set in one
// document, secrets redacted. A bundle is suitable for sharing and for
// seeding a new deployment, but it can never restore credentials.
type ConfigBundle struct {
	Version int                          `json:"version"`
	Users   []datatypes.UserRecord       `json:"users"`
	Rules   []datatypes.AccessRule       `json:"rules"`
	Bridges []datatypes.BridgeDefinition `json:"bridges"`
}

// ImportResult counts what an import actually accepted. Skipped
// entries are reported, never silently dropped.
type ImportResult struct {
	UsersImported   int `json:"users_imported"`
	UsersSkipped    int `json:"users_skipped"`
	RulesImported   int `json:"rules_imported"`
	RulesSkipped    int `json:"rules_skipped"`
	BridgesImported int `json:"bridges_imported"`
	BridgesSkipped  int `json:"bridges_skipped"`
}

// ExportConfig snapshots all records with password material redacted.
func (s *Store) ExportConfig() ConfigBundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundle := ConfigBundle{
		Version: 1,
		Users:   make([]datatypes.UserRecord, len(s.users)),
		Rules:   make([]datatypes.AccessRule, len(s.rules)),
		Bridges: make([]datatypes.BridgeDefinition, len(s.bridges)),
	}
	copy(bundle.Rules, s.rules)
	for i, u := range s.users {
		u.PasswordHash = RedactedSecret
		bundle.Users[i] = u
	}
	for i, b := range s.bridges {
		if b.RemotePassword != "" {
			b.RemotePassword = RedactedSecret
		}
		bundle.Bridges[i] = b
	}
	return bundle
}

// ImportConfig merges a bundle into the store. Redacted users are
// skipped (their hashes are unrecoverable); everything accepted is
// re-validated. Existing entries are replaced only when overwrite is
// set, otherwise counted as skipped. One persist and recompile covers
// the whole merge.
func (s *Store) ImportConfig(bundle ConfigBundle, overwrite bool) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result ImportResult

	for _, u := range bundle.Users {
		if u.PasswordHash == RedactedSecret || u.PasswordHash == "" {
			result.UsersSkipped++
			continue
		}
		if err := datatypes.ValidateUsername(u.Username); err != nil {
			result.UsersSkipped++
			s.logger.Warn("import: user rejected", "username", u.Username, "error", err)
			continue
		}
		if idx := s.findUser(u.Username); idx >= 0 {
			if !overwrite {
				result.UsersSkipped++
				continue
			}
			s.users[idx] = u
		} else {
			s.users = append(s.users, u)
		}
		result.UsersImported++
	}

	for _, r := range bundle.Rules {
		if err := datatypes.ValidateRule(r); err != nil {
			result.RulesSkipped++
			s.logger.Warn("import: rule rejected", "rule", r.Key(), "error", err)
			continue
		}
		if s.findRuleKey(r.Key()) >= 0 {
			// Rules carry no mutable payload beyond their identity, so
			// an existing duplicate is a skip even with overwrite.
			result.RulesSkipped++
			continue
		}
		s.rules = append(s.rules, r)
		result.RulesImported++
	}

	for _, b := range bundle.Bridges {
		if b.RemotePassword == RedactedSecret {
			b.RemotePassword = ""
		}
		if err := datatypes.ValidateBridge(b); err != nil {
			result.BridgesSkipped++
			s.logger.Warn("import: bridge rejected", "id", b.ID, "error", err)
			continue
		}
		if idx := s.findBridge(b.ID); idx >= 0 {
			if !overwrite {
				result.BridgesSkipped++
				continue
			}
			s.bridges[idx] = b
		} else {
			s.bridges = append(s.bridges, b)
		}
		result.BridgesImported++
	}

	if err := s.saveJSON(s.paths.UsersFile(), s.users); err != nil {
		return result, fmt.Errorf("persist users: %w", err)
	}
	if err := s.saveJSON(s.paths.ACLsFile(), s.rules); err != nil {
		return result, fmt.Errorf("persist acl rules: %w", err)
	}
	if err := s.saveJSON(s.paths.BridgesFile(), s.bridges); err != nil {
		return result, fmt.Errorf("persist bridges: %w", err)
	}
	if err := s.compileAuth(); err != nil {
		return result, err
	}
	if err := s.compileConf(); err != nil {
		return result, err
	}

	s.logger.Info("config imported",
		"users", result.UsersImported, "rules", result.RulesImported,
		"bridges", result.BridgesImported, "overwrite", overwrite)
	return result, nil
}

// findRuleKey returns the index of the rule with the given identity
// tuple or -1. Caller holds s.mu.
func (s *Store) findRuleKey(key string) int {
	for i := range s.rules {
		if s.rules[i].Key() == key {
			return i
		}
	}
	return -1
}
