/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/

// Package exitcode provides standardized exit codes for projpatch
package exitcode

import (
	"errors"

	"github.com/fulmenhq/projpatch/pkg/manifest"
	"github.com/fulmenhq/projpatch/pkg/patch"
)

// Exit codes for the projpatch CLI
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	ParseError      = 3
	IntentError     = 4
	IntegrityError  = 5
	FileSystemError = 6
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case ParseError:
		return "Malformed manifest"
	case IntentError:
		return "Intent resolution error"
	case IntegrityError:
		return "Referential integrity error"
	case FileSystemError:
		return "File system error"
	default:
		return "Unknown error"
	}
}

// FromError maps the engine's typed errors to exit codes. Unknown errors
// map to GeneralError.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	var malformed *manifest.MalformedManifestError
	if errors.As(err, &malformed) {
		return ParseError
	}
	var targetMissing *patch.TargetNotFoundError
	var ambiguous *patch.AmbiguousTargetError
	var notFound *manifest.NotFoundError
	if errors.As(err, &targetMissing) || errors.As(err, &ambiguous) || errors.As(err, &notFound) {
		return IntentError
	}
	var collision *manifest.IdentifierCollisionError
	var dangling *manifest.DanglingReferenceError
	if errors.As(err, &collision) || errors.As(err, &dangling) {
		return IntegrityError
	}
	return GeneralError
}
