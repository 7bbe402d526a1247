package core

import (
	"fmt"
	"strings"
)

// ValidateLimit validates a respond batch limit. Zero means "everything".
func ValidateLimit(limit int) error {
	if limit < 0 {
		return &Error{Code: "INVALID_LIMIT", Message: fmt.Sprintf("limit cannot be negative (got %d)", limit)}
	}
	return nil
}

// ValidateLevel validates a log level name.
func ValidateLevel(level string) error {
	if level == "" {
		return nil
	}
	if _, ok := levels[strings.ToUpper(level)]; !ok {
		return &Error{Code: "INVALID_LEVEL", Message: "unknown log level: " + level}
	}
	return nil
}

// FailFast panics with an error (fail-fast principle)
func FailFast(err error) {
	if err != nil {
		panic(fmt.Errorf("fail-fast: %w", err))
	}
}

// FailFastIf panics if condition is true
func FailFastIf(condition bool, message string) {
	if condition {
		panic(fmt.Errorf("fail-fast: %s", message))
	}
}
