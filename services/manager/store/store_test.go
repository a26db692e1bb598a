// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
	"github.com/AleutianAI/AleutianMQTT/services/manager/config"
	"github.com/AleutianAI/AleutianMQTT/services/manager/datatypes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := logging.New(logging.Config{Quiet: true})
	t.Cleanup(func() { logger.Close() })

	paths := config.Paths{DataDir: t.TempDir()}
	broker := config.BrokerConfig{Binary: "mosquitto", Port: 1883}
	s := New(paths, broker, logger)
	require.NoError(t, s.Load())
	return s
}

func testBridge(name string) datatypes.BridgeDefinition {
	return datatypes.BridgeDefinition{
		Name:             name,
		Enabled:          true,
		RemoteHost:       "remote.example.com",
		RemotePort:       8883,
		KeepAliveSeconds: 60,
		Topics: []datatypes.TopicRoute{
			{Pattern: "vessels/#", Direction: datatypes.DirectionOut, QoS: 1},
		},
	}
}

// -----------------------------------------------------------------------------
// Users
// -----------------------------------------------------------------------------

func TestAddUser_HashesAndCompiles(t *testing.T) {
	s := newTestStore(t)

	record, err := s.AddUser("sensor-gw", "s3cret", true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(record.PasswordHash, "PBKDF2$sha256$"))
	assert.True(t, VerifyPassword("s3cret", record.PasswordHash))

	passwd, err := os.ReadFile(s.paths.PasswdFile())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(passwd), "sensor-gw:PBKDF2$"))

	info, err := os.Stat(s.paths.PasswdFile())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestAddUser_Duplicate(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddUser("alice", "passw0rd", true)
	require.NoError(t, err)
	_, err = s.AddUser("alice", "different", false)
	assert.ErrorIs(t, err, datatypes.ErrConflict)
}

func TestAddUser_InvalidInput(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddUser("bad name!", "passw0rd", true)
	var verr *datatypes.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = s.AddUser("alice", "abc", true)
	assert.True(t, errors.As(err, &verr))
}

func TestDisableUser_DropsFromPasswd(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddUser("alice", "passw0rd", true)
	require.NoError(t, err)
	_, err = s.AddUser("bob", "passw0rd", true)
	require.NoError(t, err)

	require.NoError(t, s.DisableUser("alice"))

	passwd, err := os.ReadFile(s.paths.PasswdFile())
	require.NoError(t, err)
	assert.NotContains(t, string(passwd), "alice:")
	assert.Contains(t, string(passwd), "bob:")

	// The record and its hash survive; re-enabling restores the line.
	require.NoError(t, s.EnableUser("alice"))
	passwd, err = os.ReadFile(s.paths.PasswdFile())
	require.NoError(t, err)
	assert.Contains(t, string(passwd), "alice:")
}

func TestChangePassword(t *testing.T) {
	s := newTestStore(t)
	record, err := s.AddUser("alice", "oldpass", true)
	require.NoError(t, err)

	require.NoError(t, s.ChangePassword("alice", "newpass"))

	users := s.Users()
	require.Len(t, users, 1)
	assert.NotEqual(t, record.PasswordHash, users[0].PasswordHash)
	assert.True(t, VerifyPassword("newpass", users[0].PasswordHash))
	assert.False(t, VerifyPassword("oldpass", users[0].PasswordHash))

	assert.ErrorIs(t, s.ChangePassword("ghost", "whatever"), datatypes.ErrNotFound)
}

func TestRemoveUser(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddUser("alice", "passw0rd", true)
	require.NoError(t, err)

	require.NoError(t, s.RemoveUser("alice"))
	assert.Empty(t, s.Users())
	assert.ErrorIs(t, s.RemoveUser("alice"), datatypes.ErrNotFound)

	passwd, err := os.ReadFile(s.paths.PasswdFile())
	require.NoError(t, err)
	assert.Empty(t, string(passwd))
}

// -----------------------------------------------------------------------------
// ACL rules
// -----------------------------------------------------------------------------

func TestAddRule_CompilesACL(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddRule(datatypes.AccessRule{
		TopicPattern: "public/#", Access: datatypes.AccessRead,
	})
	require.NoError(t, err)
	_, err = s.AddRule(datatypes.AccessRule{
		Username: "alice", TopicPattern: "vessels/+/nav", Access: datatypes.AccessReadWrite,
	})
	require.NoError(t, err)

	acl, err := os.ReadFile(s.paths.ACLFile())
	require.NoError(t, err)
	assert.Contains(t, string(acl), "topic read public/#")
	assert.Contains(t, string(acl), "user alice")
	assert.Contains(t, string(acl), "topic readwrite vessels/+/nav")
}

func TestAddRule_DuplicateTuple(t *testing.T) {
	s := newTestStore(t)
	rule := datatypes.AccessRule{Username: "alice", TopicPattern: "a/b", Access: datatypes.AccessRead}

	_, err := s.AddRule(rule)
	require.NoError(t, err)
	_, err = s.AddRule(rule)
	assert.ErrorIs(t, err, datatypes.ErrConflict)

	// Same pattern with different access is a distinct rule.
	rule.Access = datatypes.AccessWrite
	_, err = s.AddRule(rule)
	assert.NoError(t, err)
}

func TestRemoveRule(t *testing.T) {
	s := newTestStore(t)
	rule := datatypes.AccessRule{ClientID: "gw-01", TopicPattern: "a/#", Access: datatypes.AccessWrite}
	_, err := s.AddRule(rule)
	require.NoError(t, err)

	require.NoError(t, s.RemoveRule(rule))
	assert.Empty(t, s.Rules())
	assert.ErrorIs(t, s.RemoveRule(rule), datatypes.ErrNotFound)
}

// -----------------------------------------------------------------------------
// Bridges
// -----------------------------------------------------------------------------

func TestAddBridge_AssignsIDAndCompiles(t *testing.T) {
	s := newTestStore(t)

	def, err := s.AddBridge(testBridge("shore-link"))
	require.NoError(t, err)
	assert.NotEmpty(t, def.ID)

	conf, err := os.ReadFile(s.paths.BrokerConfFile())
	require.NoError(t, err)
	assert.Contains(t, string(conf), "connection "+def.ID)
	assert.Contains(t, string(conf), "address remote.example.com:8883")
}

func TestAddBridge_Invalid(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddBridge(datatypes.BridgeDefinition{})
	var verr *datatypes.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestUpdateBridge_KeepsID(t *testing.T) {
	s := newTestStore(t)
	def, err := s.AddBridge(testBridge("shore-link"))
	require.NoError(t, err)

	changed := testBridge("renamed-link")
	changed.ID = "attempted-rename"
	updated, err := s.UpdateBridge(def.ID, changed)
	require.NoError(t, err)
	assert.Equal(t, def.ID, updated.ID)
	assert.Equal(t, "renamed-link", updated.Name)
}

func TestDisableBridge_DropsFromConf(t *testing.T) {
	s := newTestStore(t)
	def, err := s.AddBridge(testBridge("shore-link"))
	require.NoError(t, err)

	require.NoError(t, s.SetBridgeEnabled(def.ID, false))

	conf, err := os.ReadFile(s.paths.BrokerConfFile())
	require.NoError(t, err)
	assert.NotContains(t, string(conf), "connection "+def.ID)
}

func TestDuplicateBridge(t *testing.T) {
	s := newTestStore(t)
	def, err := s.AddBridge(testBridge("shore-link"))
	require.NoError(t, err)

	dup, err := s.DuplicateBridge(def.ID)
	require.NoError(t, err)
	assert.NotEqual(t, def.ID, dup.ID)
	assert.Equal(t, "shore-link (Copy)", dup.Name)
	assert.False(t, dup.Enabled)
	assert.Equal(t, def.Topics, dup.Topics)

	_, err = s.DuplicateBridge("ghost")
	assert.ErrorIs(t, err, datatypes.ErrNotFound)
}

// -----------------------------------------------------------------------------
// Persistence and export/import
// -----------------------------------------------------------------------------

func TestLoad_SurvivesRestart(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddUser("alice", "passw0rd", true)
	require.NoError(t, err)
	_, err = s.AddBridge(testBridge("shore-link"))
	require.NoError(t, err)

	reloaded := New(s.paths, s.broker, s.logger)
	require.NoError(t, reloaded.Load())
	assert.Len(t, reloaded.Users(), 1)
	assert.Len(t, reloaded.Bridges(), 1)
}

func TestExportConfig_RedactsSecrets(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddUser("alice", "passw0rd", true)
	require.NoError(t, err)
	b := testBridge("shore-link")
	b.RemoteUsername = "bridge-user"
	b.RemotePassword = "bridge-pass"
	_, err = s.AddBridge(b)
	require.NoError(t, err)

	bundle := s.ExportConfig()
	require.Len(t, bundle.Users, 1)
	assert.Equal(t, RedactedSecret, bundle.Users[0].PasswordHash)
	require.Len(t, bundle.Bridges, 1)
	assert.Equal(t, RedactedSecret, bundle.Bridges[0].RemotePassword)

	// Export must not mutate the store's own records.
	assert.True(t, strings.HasPrefix(s.Users()[0].PasswordHash, "PBKDF2$"))
}

func TestImportConfig_SkipsRedactedUsers(t *testing.T) {
	s := newTestStore(t)

	hash, err := HashPassword("passw0rd")
	require.NoError(t, err)
	bundle := ConfigBundle{
		Version: 1,
		Users: []datatypes.UserRecord{
			{Username: "redacted-user", PasswordHash: RedactedSecret, Enabled: true},
			{Username: "real-user", PasswordHash: hash, Enabled: true},
		},
		Rules: []datatypes.AccessRule{
			{Username: "real-user", TopicPattern: "a/#", Access: datatypes.AccessRead},
		},
	}

	result, err := s.ImportConfig(bundle, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.UsersImported)
	assert.Equal(t, 1, result.UsersSkipped)
	assert.Equal(t, 1, result.RulesImported)
	assert.Len(t, s.Users(), 1)
}

func TestImportConfig_OverwriteFlag(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddUser("alice", "original", true)
	require.NoError(t, err)

	hash, err := HashPassword("imported")
	require.NoError(t, err)
	bundle := ConfigBundle{
		Version: 1,
		Users:   []datatypes.UserRecord{{Username: "alice", PasswordHash: hash, Enabled: false}},
	}

	result, err := s.ImportConfig(bundle, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.UsersImported)
	assert.Equal(t, 1, result.UsersSkipped)
	assert.True(t, VerifyPassword("original", s.Users()[0].PasswordHash))

	result, err = s.ImportConfig(bundle, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.UsersImported)
	assert.True(t, VerifyPassword("imported", s.Users()[0].PasswordHash))
	assert.False(t, s.Users()[0].Enabled)
}

func TestExportImport_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddRule(datatypes.AccessRule{TopicPattern: "public/#", Access: datatypes.AccessRead})
	require.NoError(t, err)
	_, err = s.AddRule(datatypes.AccessRule{Username: "alice", TopicPattern: "a/b", Access: datatypes.AccessWrite})
	require.NoError(t, err)
	_, err = s.AddBridge(testBridge("shore-link"))
	require.NoError(t, err)

	bundle := s.ExportConfig()

	fresh := newTestStore(t)
	result, err := fresh.ImportConfig(bundle, true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RulesImported)
	assert.Equal(t, 1, result.BridgesImported)
	assert.Equal(t, s.Rules(), fresh.Rules())
	assert.Len(t, fresh.Bridges(), 1)
}
