package errors

import "fmt"

// Message constructors for common specmark failure cases. Keeping these in
// one place makes the remediation wording consistent across commands.

// MissingValidatePaths is returned when validate is invoked with no files.
func MissingValidatePaths() *CLIError {
	return NewArgumentErrorWithUsage(
		"no artifact files given",
		"specmark validate <file>...",
		"Pass one or more artifact files or directories to validate",
	)
}

// RegistryNotFound is returned when the configured registry file is absent.
func RegistryNotFound(path string) *CLIError {
	return NewPrerequisiteError(
		fmt.Sprintf("registry file not found at %s", path),
		"Create a registry document describing your kits and systems",
		"Point the registry config key (or SPECMARK_REGISTRY) at it",
	)
}

// ConstraintsNotFound is returned when the configured constraint document is absent.
func ConstraintsNotFound(path string) *CLIError {
	return NewPrerequisiteError(
		fmt.Sprintf("constraint document not found at %s", path),
		"Create the constraint document, or clear the constraints config key to skip strict checks",
	)
}

// TemplateFileNotFound is returned when a named template file is missing.
func TemplateFileNotFound(path string) *CLIError {
	return NewPrerequisiteError(
		fmt.Sprintf("template file not found at %s", path),
		"Check the path; templates live at artifacts/{kind}/template.md",
	)
}

// ConfigFileNotFound is returned for an explicitly named but missing config file.
func ConfigFileNotFound(path string) *CLIError {
	return NewConfigError(
		fmt.Sprintf("config file not found at %s", path),
		"Check the --config path",
	)
}

// ConfigParseError wraps a config load failure.
func ConfigParseError(path string, err error) *CLIError {
	return &CLIError{
		Category: Configuration,
		Message:  fmt.Sprintf("failed to parse config at %s: %v", path, err),
		Remediation: []string{
			"Check the file for JSON syntax errors",
			"Compare against the defaults printed by specmark version",
		},
	}
}

// InvalidResolveToken is returned when resolve gets a token without the
// configured scheme prefix.
func InvalidResolveToken(token, scheme string) *CLIError {
	return NewArgumentErrorWithUsage(
		fmt.Sprintf("token %q does not start with scheme %q", token, scheme),
		"specmark resolve <token> --kind <kind>",
		"Identifiers look like scheme-system-kind-slug",
	)
}

// DirectoryNotFound is returned when an expected directory is missing.
func DirectoryNotFound(path string) *CLIError {
	return NewPrerequisiteError(
		fmt.Sprintf("directory not found: %s", path),
		"Check the artifacts_dir config key",
	)
}
