package errors

import (
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "core", false},
		{"valid with dash", "my-package", false},
		{"valid with underscore", "my_package", false},
		{"valid with dot", "my.package", false},
		{"valid scoped npm", "@scope/package", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"path traversal ..", "foo/../bar", true},
		{"path traversal //", "foo//bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNpmPackageName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"lodash", false},
		{"@acme/ui-kit", false},
		{"left.pad", false},

		{"Lodash", true},
		{"@acme/", true},
		{"has space", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateNpmPackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNpmPackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPackage) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidPackage)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "packages/core/package.json", false},
		{"dot prefix", "./packages/core", false},
		{"inner dots resolved", "packages/core/../ui", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"escapes root", "../outside", true},
		{"escapes after clean", "packages/../../outside", true},
		{"control char", "pkg\x01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
