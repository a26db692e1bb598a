// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Format(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 5)
	assert.Equal(t, "PBKDF2", parts[0])
	assert.Equal(t, "sha256", parts[1])
	assert.Equal(t, "210000", parts[2])
	assert.NotEmpty(t, parts[3])
	assert.NotEmpty(t, parts[4])
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	a, err := HashPassword("same-password")
	require.NoError(t, err)
	b, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("wrong horse", hash))
	assert.False(t, VerifyPassword("", hash))
}

func TestVerifyPassword_LegacyIterationCount(t *testing.T) {
	// Hashes created with a lower iteration count must keep verifying:
	// the parameters come from the stored string, not the constant.
	// pbkdf2-sha256("pw", "saltsaltsalt", 1000 iterations, 32 bytes)
	legacy := "PBKDF2$sha256$1000$c2FsdHNhbHRzYWx0$" +
		"4uzIwmR5CBzbkuSnP3BSItaBwmu0UF1J/6zIhqZ6Auw="
	assert.True(t, VerifyPassword("pw", legacy))
	assert.False(t, VerifyPassword("other", legacy))
}

func TestVerifyPassword_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"wrong scheme", "BCRYPT$sha256$1000$AAAA$AAAA"},
		{"wrong digest", "PBKDF2$md5$1000$AAAA$AAAA"},
		{"missing fields", "PBKDF2$sha256$1000"},
		{"bad iteration count", "PBKDF2$sha256$zero$AAAA$AAAA"},
		{"negative iterations", "PBKDF2$sha256$-1$AAAA$AAAA"},
		{"bad salt base64", "PBKDF2$sha256$1000$!!!$AAAA"},
		{"bad hash base64", "PBKDF2$sha256$1000$AAAA$!!!"},
		{"empty hash", "PBKDF2$sha256$1000$AAAA$"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, VerifyPassword("anything", tc.stored))
		})
	}
}
