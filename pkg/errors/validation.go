package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name for safety and correctness.
// It rejects names that could be used for path traversal or injection attacks.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
//
// Ecosystem-specific validation should be done separately, see
// [ValidateNpmPackageName].
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// npmPackageNameRegex matches valid npm package names, scoped or not.
var npmPackageNameRegex = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

// ValidateNpmPackageName validates an npm package name.
func ValidateNpmPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}

	// npm names must be lowercase
	if strings.ToLower(name) != name {
		return New(ErrCodeInvalidPackage, "npm package names must be lowercase: %q", name)
	}

	if !npmPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid npm package name: %q", name)
	}

	return nil
}

// ValidatePath validates a manifest path relative to a workspace root.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal outside the root (..)
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
		return New(ErrCodeInvalidPath, "path must be relative")
	}

	clean := filepath.ToSlash(filepath.Clean(path))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return New(ErrCodeInvalidPath, "path escapes the workspace root")
	}

	return nil
}
