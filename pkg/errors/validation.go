package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// reservedTypes are resource types owned by the graph normalizer.
var reservedTypes = map[string]bool{"SOURCE": true, "SINK": true}

// ValidateOperationID validates an operation identifier read from a problem
// file.
//
// The rules are conservative because ids end up in DOT output, result files
// and cache keys:
//   - No empty ids
//   - No control characters or whitespace
//   - Maximum length of 128 characters
func ValidateOperationID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidOperation, "operation id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidOperation, "operation id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidOperation, "operation id %q contains whitespace or control characters", id)
		}
	}

	return nil
}

// resourceTypeRegex matches resource class names (ALU, MUL, FP_ADD, ...).
var resourceTypeRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateResourceType validates a declared resource type key.
// The reserved anchor types SOURCE and SINK cannot carry an inventory.
func ValidateResourceType(name string) error {
	if name == "" {
		return New(ErrCodeInvalidResource, "resource type cannot be empty")
	}

	if reservedTypes[strings.ToUpper(name)] {
		return New(ErrCodeInvalidResource, "resource type %q is reserved", name)
	}

	if !resourceTypeRegex.MatchString(name) {
		return New(ErrCodeInvalidResource, "invalid resource type: %q", name)
	}

	return nil
}

// ValidateUnits validates the unit count declared for a resource type.
func ValidateUnits(name string, units int) error {
	if units <= 0 {
		return New(ErrCodeInvalidResource, "unit count for %s must be positive, got %d", name, units)
	}
	return nil
}

// ValidateLatency validates an operation latency.
func ValidateLatency(id string, latency int) error {
	if latency < 0 {
		return New(ErrCodeInvalidOperation, "latency of %s must be non-negative, got %d", id, latency)
	}
	return nil
}

// ValidatePath validates a relative file path inside a benchmark directory.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}
