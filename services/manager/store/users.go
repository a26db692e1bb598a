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

// =============================================================================
// User Operations
// =============================================================================

// Users returns a copy of the user records in stored order.
func (s *Store) Users() []datatypes.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]datatypes.UserRecord, len(s.users))
	copy(out, s.users)
	return out
}

// AddUser validates, hashes the password, and appends a new user.
// Returns ConflictError if the username is already taken.
func (s *Store) AddUser(username, password string, enabled bool) (datatypes.UserRecord, error) {
	if err := datatypes.ValidateUsername(username); err != nil {
		return datatypes.UserRecord{}, err
	}
	if err := datatypes.ValidatePassword(password); err != nil {
		return datatypes.UserRecord{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return datatypes.UserRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findUser(username) >= 0 {
		return datatypes.UserRecord{}, fmt.Errorf("user %q: %w", username, datatypes.ErrConflict)
	}
	record := datatypes.UserRecord{Username: username, PasswordHash: hash, Enabled: enabled}
	s.users = append(s.users, record)
	if err := s.persistUsers(); err != nil {
		s.users = s.users[:len(s.users)-1]
		return datatypes.UserRecord{}, err
	}
	s.logger.Info("user added", "username", username, "enabled", enabled)
	return record, nil
}

// UpdateUser sets the enabled flag on an existing user.
func (s *Store) UpdateUser(username string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findUser(username)
	if idx < 0 {
		return fmt.Errorf("user %q: %w", username, datatypes.ErrNotFound)
	}
	prev := s.users[idx].Enabled
	s.users[idx].Enabled = enabled
	if err := s.persistUsers(); err != nil {
		s.users[idx].Enabled = prev
		return err
	}
	s.logger.Info("user updated", "username", username, "enabled", enabled)
	return nil
}

// EnableUser marks the user enabled so it appears in the passwd file.
func (s *Store) EnableUser(username string) error { return s.UpdateUser(username, true) }

// DisableUser removes the user from the passwd file without deleting
// the record or its hash.
func (s *Store) DisableUser(username string) error { return s.UpdateUser(username, false) }

// ChangePassword re-hashes and stores a new password for the user.
func (s *Store) ChangePassword(username, password string) error {
	if err := datatypes.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findUser(username)
	if idx < 0 {
		return fmt.Errorf("user %q: %w", username, datatypes.ErrNotFound)
	}
	prev := s.users[idx].PasswordHash
	s.users[idx].PasswordHash = hash
	if err := s.persistUsers(); err != nil {
		s.users[idx].PasswordHash = prev
		return err
	}
	s.logger.Info("password changed", "username", username)
	return nil
}

// RemoveUser deletes the user record. ACL rules that name the user are
// left in place; the broker simply never matches them until the name
// is recreated.
func (s *Store) RemoveUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findUser(username)
	if idx < 0 {
		return fmt.Errorf("user %q: %w", username, datatypes.ErrNotFound)
	}
	removed := s.users[idx]
	s.users = append(s.users[:idx], s.users[idx+1:]...)
	if err := s.persistUsers(); err != nil {
		s.users = append(s.users[:idx], append([]datatypes.UserRecord{removed}, s.users[idx:]...)...)
		return err
	}
	s.logger.Info("user removed", "username", username)
	return nil
}

// findUser returns the index of the user or -1. Caller holds s.mu.
func (s *Store) findUser(username string) int {
	for i := range s.users {
		if s.users[i].Username == username {
			return i
		}
	}
	return -1
}

// persistUsers saves the user records and recompiles the auth
// artifacts. Caller holds s.mu.
func (s *Store) persistUsers() error {
	if err := s.saveJSON(s.paths.UsersFile(), s.users); err != nil {
		return fmt.Errorf("persist users: %w", err)
	}
	return s.compileAuth()
}

// =============================================================================
// ACL Rule Operations
// =============================================================================

// Rules returns a copy of the access rules in stored order.
func (s *Store) Rules() []datatypes.AccessRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]datatypes.AccessRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// AddRule validates and appends a new access rule. Duplicate
// (principal, pattern, access) tuples are rejected with ConflictError.
func (s *Store) AddRule(rule datatypes.AccessRule) (datatypes.AccessRule, error) {
	if err := datatypes.ValidateRule(rule); err != nil {
		return datatypes.AccessRule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := rule.Key()
	for i := range s.rules {
		if s.rules[i].Key() == key {
			return datatypes.AccessRule{}, fmt.Errorf("rule %s: %w", key, datatypes.ErrConflict)
		}
	}
	s.rules = append(s.rules, rule)
	if err := s.persistRules(); err != nil {
		s.rules = s.rules[:len(s.rules)-1]
		return datatypes.AccessRule{}, err
	}
	s.logger.Info("acl rule added", "rule", key)
	return rule, nil
}

// RemoveRule deletes the rule matching the given tuple.
func (s *Store) RemoveRule(rule datatypes.AccessRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rule.Key()
	for i := range s.rules {
		if s.rules[i].Key() != key {
			continue
		}
		removed := s.rules[i]
		s.rules = append(s.rules[:i], s.rules[i+1:]...)
		if err := s.persistRules(); err != nil {
			s.rules = append(s.rules[:i], append([]datatypes.AccessRule{removed}, s.rules[i:]...)...)
			return err
		}
		s.logger.Info("acl rule removed", "rule", key)
		return nil
	}
	return fmt.Errorf("rule %s: %w", key, datatypes.ErrNotFound)
}

// persistRules saves the rule records and recompiles the auth
// artifacts. Caller holds s.mu.
func (s *Store) persistRules() error {
	if err := s.saveJSON(s.paths.ACLsFile(), s.rules); err != nil {
		return fmt.Errorf("persist acl rules: %w", err)
	}
	return s.compileAuth()
}
