// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Topic Filter Tests
// =============================================================================

func TestValidTopicFilter(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"vessels/+/navigation/#", true},
		{"vessels/+x", false},
		{"a/#/b", false},
		{"sensors/temperature", true},
		{"+", true},
		{"#", true},
		{"+/+/+", true},
		{"a/b/#", true},
		{"a/b#", false},
		{"a/#b", false},
		{"x+/y", false},
		{"", false},
		{"a//b", true}, // empty segments are legal MQTT
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTopicFilter(tt.pattern),
				"ValidTopicFilter(%q)", tt.pattern)
		})
	}
}

// =============================================================================
// User Validation Tests
// =============================================================================

func TestValidateUser_Valid(t *testing.T) {
	assert.NoError(t, ValidateUser("nav.station-1", "s3cret"))
}

func TestValidateUser_CollectsAllViolations(t *testing.T) {
	err := ValidateUser("no spaces allowed", "abc")
	require.Error(t, err)

	ve, ok := AsValidationError(err)
	require.True(t, ok, "expected a *ValidationError, got %T", err)
	assert.Len(t, ve.Violations, 2, "charset and password length should both be reported")
}

func TestValidateUser_EmptyUsername(t *testing.T) {
	err := ValidateUser("", "longenough")
	require.Error(t, err)

	ve, _ := AsValidationError(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Violations[0], "must not be empty")
}

func TestValidateUsername_TooLong(t *testing.T) {
	err := ValidateUsername(strings.Repeat("a", 65))
	require.Error(t, err)
}

func TestValidatePassword_Floor(t *testing.T) {
	assert.Error(t, ValidatePassword("abc"))
	assert.NoError(t, ValidatePassword("abcd"))
}

// =============================================================================
// Rule Validation Tests
// =============================================================================

func TestValidateRule_Valid(t *testing.T) {
	assert.NoError(t, ValidateRule(AccessRule{
		Username:     "skipper",
		TopicPattern: "vessels/+/navigation/#",
		Access:       AccessRead,
	}))
}

func TestValidateRule_GlobalIsValid(t *testing.T) {
	assert.NoError(t, ValidateRule(AccessRule{
		TopicPattern: "announcements/#",
		Access:       AccessRead,
	}))
}

func TestValidateRule_BothPrincipals(t *testing.T) {
	err := ValidateRule(AccessRule{
		Username:     "skipper",
		ClientID:     "client-1",
		TopicPattern: "a/b",
		Access:       AccessRead,
	})
	require.Error(t, err)

	ve, _ := AsValidationError(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Violations[0], "not both")
}

func TestValidateRule_BadPatternAndAccess(t *testing.T) {
	err := ValidateRule(AccessRule{
		TopicPattern: "a/#/b",
		Access:       AccessLevel("admin"),
	})
	require.Error(t, err)

	ve, _ := AsValidationError(err)
	require.NotNil(t, ve)
	assert.Len(t, ve.Violations, 2, "pattern and access violations should both be reported")
}

// =============================================================================
// Bridge Validation Tests
// =============================================================================

func validBridge() BridgeDefinition {
	return BridgeDefinition{
		ID:               "b-1",
		Name:             "upstream",
		RemoteHost:       "mqtt.example.com",
		RemotePort:       8883,
		KeepAliveSeconds: 30,
		Topics: []TopicRoute{
			{Pattern: "vessels/#", Direction: DirectionOut, QoS: 1},
		},
	}
}

func TestValidateBridge_Valid(t *testing.T) {
	assert.NoError(t, ValidateBridge(validBridge()))
}

func TestValidateBridge_EmptyDefinitionReportsEverything(t *testing.T) {
	err := ValidateBridge(BridgeDefinition{})
	require.Error(t, err)

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(ve.Violations), 3,
		"missing name, missing host, and zero topics must yield distinct messages: %v", ve.Violations)
}

func TestValidateBridge_KeepAliveFloor(t *testing.T) {
	b := validBridge()
	b.KeepAliveSeconds = 4
	err := ValidateBridge(b)
	require.Error(t, err)

	ve, _ := AsValidationError(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Violations[0], "keepalive")
}

func TestValidateBridge_PortRange(t *testing.T) {
	b := validBridge()
	b.RemotePort = 70000
	assert.Error(t, ValidateBridge(b))

	b.RemotePort = 0
	assert.Error(t, ValidateBridge(b))
}

func TestValidateBridge_UnsafeTLSPath(t *testing.T) {
	b := validBridge()
	b.TLS.CAFile = "certs/ca\x00.pem"
	err := ValidateBridge(b)
	require.Error(t, err)

	ve, _ := AsValidationError(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Violations[0], "illegal in a filesystem path")
}

func TestValidateBridge_RouteViolations(t *testing.T) {
	b := validBridge()
	b.Topics = []TopicRoute{
		{Pattern: "a/+x", Direction: RouteDirection("sideways"), QoS: 3},
	}
	err := ValidateBridge(b)
	require.Error(t, err)

	ve, _ := AsValidationError(err)
	require.NotNil(t, ve)
	assert.Len(t, ve.Violations, 3, "pattern, direction, and qos should all be reported: %v", ve.Violations)
}

// =============================================================================
// Error Taxonomy Tests
// =============================================================================

func TestValidationError_Message(t *testing.T) {
	err := NewValidationError([]string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, "validation failed: a; b", err.Error())
}

func TestNewValidationError_EmptyIsNil(t *testing.T) {
	assert.NoError(t, NewValidationError(nil))
}

func TestAccessLevel_Valid(t *testing.T) {
	assert.True(t, AccessRead.Valid())
	assert.True(t, AccessWrite.Valid())
	assert.True(t, AccessReadWrite.Valid())
	assert.False(t, AccessLevel("admin").Valid())
}

func TestAccessRule_Key_DistinguishesPrincipals(t *testing.T) {
	byUser := AccessRule{Username: "x", TopicPattern: "a/b", Access: AccessRead}
	byClient := AccessRule{ClientID: "x", TopicPattern: "a/b", Access: AccessRead}
	assert.NotEqual(t, byUser.Key(), byClient.Key())
}
