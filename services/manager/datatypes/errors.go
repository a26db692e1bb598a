// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Error Taxonomy
// =============================================================================
//
// Five error categories cross package boundaries in this service:
//
//   - ValidationError: one or more constraint violations; recoverable,
//     surfaced to callers as a 400-equivalent with the complete list.
//   - ErrNotFound: a referenced entity is absent; surfaced, not retried.
//   - ErrConflict: duplicate id/username/rule; surfaced, not retried.
//   - ErrExternalProcess: the broker failed to start or respond; retried
//     by the supervisor up to its cap, then surfaced as a fatal health
//     condition.
//   - I/O failures are wrapped with fmt.Errorf("...: %w", err) and
//     surfaced, since they imply persisted state may be stale.
//
// Expected absence during a probe (e.g. a bridge connection test failing)
// is a boolean result, never an error.

// ErrNotFound indicates a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a duplicate id, username, or rule.
var ErrConflict = errors.New("already exists")

// ErrExternalProcess indicates the broker process failed to start,
// stop, or respond.
var ErrExternalProcess = errors.New("broker process error")

// ValidationError carries the complete list of violated constraints for
// a rejected mutation, so a caller can surface all problems at once.
type ValidationError struct {
	// Violations are human-readable constraint descriptions, one per
	// failed check. Never empty.
	Violations []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Violations, "; "))
}

// NewValidationError builds a ValidationError, or returns nil when the
// violation list is empty.
func NewValidationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
