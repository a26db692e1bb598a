// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Validator Instance
// =============================================================================

// entityValidate is the validator instance for manager entities.
// Initialized in init() with the custom broker rules.
var entityValidate *validator.Validate

func init() {
	entityValidate = validator.New()

	_ = entityValidate.RegisterValidation("brokerusername", validateBrokerUsername)
	_ = entityValidate.RegisterValidation("topicfilter", validateTopicFilterField)
	_ = entityValidate.RegisterValidation("safepath", validateSafePath)
}

// usernamePattern is the accepted broker username charset.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// validateBrokerUsername enforces the username charset.
func validateBrokerUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

// validateTopicFilterField adapts ValidTopicFilter for validator tags.
func validateTopicFilterField(fl validator.FieldLevel) bool {
	return ValidTopicFilter(fl.Field().String())
}

// unsafePathChars are characters rejected in configured TLS file paths.
const unsafePathChars = "\x00\n\r\"<>|?*"

// validateSafePath rejects paths containing characters illegal in a
// filesystem path.
func validateSafePath(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), unsafePathChars)
}

// =============================================================================
// Topic Filter Rules
// =============================================================================

// ValidTopicFilter reports whether pattern is a well-formed MQTT topic
// filter.
//
// # Description
//
// The wildcard rules follow the MQTT specification:
//   - `+` matches a single level and must occupy an entire path segment,
//     immediately bounded by `/` or string start/end.
//   - `#` matches all remaining levels and may appear only as the final
//     character, as its own trailing segment (preceded by `/` or nothing).
//
// # Examples
//
//	ValidTopicFilter("vessels/+/navigation/#")  // true
//	ValidTopicFilter("vessels/+x")              // false: + not a full segment
//	ValidTopicFilter("a/#/b")                   // false: # not trailing
func ValidTopicFilter(pattern string) bool {
	if pattern == "" {
		return false
	}
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if strings.Contains(seg, "+") && seg != "+" {
			return false
		}
		if strings.Contains(seg, "#") {
			if seg != "#" || i != len(segments)-1 {
				return false
			}
		}
	}
	return true
}

// =============================================================================
// Entity Validation
// =============================================================================
//
// Every mutation to a UserRecord, AccessRule, or BridgeDefinition passes
// through one of these validators before acceptance. Failures return a
// *ValidationError carrying the COMPLETE list of violated constraints,
// not just the first, so a caller can surface all problems at once.

// MinPasswordLength is a floor, not a strength guarantee.
const MinPasswordLength = 4

// ValidateUsername checks a username in isolation.
func ValidateUsername(username string) error {
	return NewValidationError(usernameViolations(username))
}

// ValidateUser checks a username and plaintext password pair, as supplied
// to add-user and change-password operations.
func ValidateUser(username, password string) error {
	violations := usernameViolations(username)
	violations = append(violations, passwordViolations(password)...)
	return NewValidationError(violations)
}

// ValidatePassword checks a plaintext password in isolation.
func ValidatePassword(password string) error {
	return NewValidationError(passwordViolations(password))
}

// ValidateRule checks an access rule, including principal exclusivity.
func ValidateRule(rule AccessRule) error {
	var violations []string
	if rule.Username != "" && rule.ClientID != "" {
		violations = append(violations, "rule principal must be a username, a client id, or global, not both")
	}
	if rule.Username != "" {
		violations = append(violations, usernameViolations(rule.Username)...)
	}
	if err := entityValidate.Struct(rule); err != nil {
		violations = append(violations, fieldViolations(err)...)
	}
	return NewValidationError(violations)
}

// ValidateBridge checks a bridge definition against all constraints:
// non-empty name and remote host, port in [1,65535], keepalive >= 5,
// at least one topic route, and safe TLS paths.
func ValidateBridge(bridge BridgeDefinition) error {
	var violations []string
	if err := entityValidate.Struct(bridge); err != nil {
		violations = append(violations, fieldViolations(err)...)
	}
	return NewValidationError(violations)
}

// usernameViolations collects username constraint failures.
func usernameViolations(username string) []string {
	var violations []string
	if username == "" {
		violations = append(violations, "username must not be empty")
		return violations
	}
	if len(username) > MaxUsernameLength {
		violations = append(violations, fmt.Sprintf("username must be at most %d characters", MaxUsernameLength))
	}
	if !usernamePattern.MatchString(username) {
		violations = append(violations, "username may only contain letters, digits, underscore, dot, and hyphen")
	}
	return violations
}

// passwordViolations collects password constraint failures.
func passwordViolations(password string) []string {
	if len(password) < MinPasswordLength {
		return []string{fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// fieldViolations maps validator field errors to human-readable messages.
func fieldViolations(err error) []string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, fieldMessage(fe))
	}
	return violations
}

// fieldMessage translates a single field error.
func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.Field() == "Name" && fe.Tag() == "required":
		return "bridge name must not be empty"
	case fe.Field() == "RemoteHost" && fe.Tag() == "required":
		return "remote host must not be empty"
	case fe.Field() == "RemotePort":
		return "remote port must be between 1 and 65535"
	case fe.Field() == "KeepAliveSeconds":
		return fmt.Sprintf("keepalive must be at least %d seconds", MinKeepAliveSeconds)
	case fe.Field() == "Topics" && fe.Tag() == "min":
		return "bridge must define at least one topic route"
	case fe.Field() == "Pattern" && fe.Tag() == "required",
		fe.Field() == "TopicPattern" && fe.Tag() == "required":
		return "topic pattern must not be empty"
	case fe.Tag() == "topicfilter":
		return fmt.Sprintf("topic pattern %q is not a valid MQTT filter", fe.Value())
	case fe.Field() == "Direction":
		return "route direction must be in, out, or both"
	case fe.Field() == "QoS":
		return "route qos must be 0, 1, or 2"
	case fe.Field() == "Access":
		return "access must be read, write, or readwrite"
	case fe.Tag() == "safepath":
		return fmt.Sprintf("%s contains characters illegal in a filesystem path", strings.ToLower(fe.Field()))
	case fe.Tag() == "brokerusername":
		return "username may only contain letters, digits, underscore, dot, and hyphen"
	default:
		return fmt.Sprintf("%s failed constraint %s", fe.Field(), fe.Tag())
	}
}
