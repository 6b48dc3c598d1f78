package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a Cargo package name.
// It applies the crates.io naming rules plus conservative safety checks
// so names coming from the command line cannot smuggle path components.
//
// The validation rules are:
//   - No empty names
//   - No control characters
//   - Maximum length of 64 characters (the crates.io limit)
//   - Must match [A-Za-z][A-Za-z0-9_-]*
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidPackage, "package name too long (max 64 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	if !cratesPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid package name: %q", name)
	}

	return nil
}

// cratesPackageNameRegex matches valid crates.io package names.
var cratesPackageNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// featureNameRegex matches valid Cargo feature names.
// Cargo permits alphanumerics plus '_', '-', '+', and '.'.
var featureNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_+.-]+$`)

// ValidateFeatureName validates a Cargo feature name.
func ValidateFeatureName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidFeature, "feature name cannot be empty")
	}

	if !featureNameRegex.MatchString(name) {
		return New(ErrCodeInvalidFeature, "invalid feature name: %q", name)
	}

	return nil
}

// ValidateLeafSpec validates a leaf feature argument of the form
// "feature" or "package/feature".
func ValidateLeafSpec(spec string) error {
	if spec == "" {
		return New(ErrCodeInvalidInput, "leaf feature cannot be empty")
	}

	if strings.Count(spec, "/") > 1 {
		return New(ErrCodeInvalidInput, "leaf feature %q has more than one '/'", spec)
	}

	pkg, feat, found := strings.Cut(spec, "/")
	if !found {
		return ValidateFeatureName(pkg)
	}
	if err := ValidatePackageName(pkg); err != nil {
		return err
	}
	return ValidateFeatureName(feat)
}

// ValidateFeatureParam validates an extra feature array entry supplied by
// the operator. Forwarding ("dep/feature") and dependency ("dep:name")
// forms are allowed; anything with whitespace or control characters is not.
func ValidateFeatureParam(param string) error {
	if param == "" {
		return New(ErrCodeInvalidInput, "feature param cannot be empty")
	}

	for _, r := range param {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "feature param %q contains whitespace or control characters", param)
		}
	}

	if strings.Count(param, "/") > 1 {
		return New(ErrCodeInvalidInput, "feature param %q has more than one '/'", param)
	}

	return nil
}

// ValidateManifestPath validates a --manifest-path argument.
// Cargo requires the path to point at a file named Cargo.toml.
func ValidateManifestPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "manifest path cannot be empty")
	}

	if strings.ContainsRune(path, '\x00') {
		return New(ErrCodeInvalidPath, "manifest path contains invalid characters")
	}

	if filepath.Base(path) != "Cargo.toml" {
		return New(ErrCodeInvalidPath, "manifest path must point at a Cargo.toml file: %q", path)
	}

	return nil
}
