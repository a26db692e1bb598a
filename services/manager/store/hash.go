// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Password hashes are stored in a self-describing format so iteration
// counts can be raised later without invalidating existing records:
//
//	PBKDF2$sha256$<iterations>$<salt-b64>$<hash-b64>
//
// Verification reads the parameters out of the stored string, so old
// hashes keep verifying after the default changes.
const (
	hashScheme     = "PBKDF2"
	hashDigest     = "sha256"
	hashIterations = 210000
	hashSaltBytes  = 12
	hashKeyBytes   = 32
)

// HashPassword derives a PBKDF2-SHA256 hash from the given password
// with a fresh random salt.
func HashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, hashIterations, hashKeyBytes, sha256.New)
	return fmt.Sprintf("%s$%s$%d$%s$%s",
		hashScheme, hashDigest, hashIterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key)), nil
}

// VerifyPassword reports whether the password matches the stored hash.
// Malformed hashes verify as false rather than erroring; a corrupt
// record should deny access, not crash a login path.
func VerifyPassword(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 5 || parts[0] != hashScheme || parts[1] != hashDigest {
		return false
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
