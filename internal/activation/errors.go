// SPDX-License-Identifier: MPL-2.0

package activation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is the sentinel error wrapped by NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrMissingConfiguration is the sentinel error wrapped by MissingConfigurationError.
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrUntrustedWorkspace is the sentinel error wrapped by UntrustedWorkspaceError.
	ErrUntrustedWorkspace = errors.New("untrusted workspace")
	// ErrParseFailure is the sentinel error wrapped by ParseFailureError.
	ErrParseFailure = errors.New("activation payload parse failure")
	// ErrCancelled is the sentinel error wrapped by CancelledError.
	ErrCancelled = errors.New("activation cancelled")
	// ErrVersionFileInvalid is the sentinel error wrapped by VersionFileError.
	ErrVersionFileInvalid = errors.New("invalid version file")
)

type (
	// NotFoundError is returned when a tool, script, or configured executable
	// does not exist at any expected location. Searched always carries every
	// path that was checked so failures stay diagnosable.
	NotFoundError struct {
		// Tool names what was being looked for (e.g. "rbenv", "ruby").
		Tool string
		// Searched lists every path that was checked, in priority order.
		Searched []string
	}

	// MissingConfigurationError is returned when a required setting was
	// never set (e.g. the devcontainer strategy without a container name).
	MissingConfigurationError struct {
		Setting string
	}

	// UntrustedWorkspaceError is returned when the manager refuses to run
	// until the workspace is explicitly trusted. It is recoverable: the
	// orchestrator prompts for trust and retries activation once.
	UntrustedWorkspaceError struct {
		Dir string
	}

	// ParseFailureError is returned when the probe ran but its captured
	// payload could not be decoded.
	ParseFailureError struct {
		Reason  string
		Payload string
	}

	// CancelledError is returned when a human cancelled a fallback offer
	// without supplying an alternative.
	CancelledError struct {
		Reason string
	}

	// VersionFileError is returned when a version marker file exists but is
	// empty or unparsable. An explicit pin that cannot be honored is a
	// misconfiguration, never something to skip over.
	VersionFileError struct {
		// Path is the marker file that failed to parse.
		Path string
		// Entry is the trimmed file content.
		Entry string
	}
)

func (e *NotFoundError) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("%s not found", e.Tool)
	}
	return fmt.Sprintf("%s not found (searched: %s)", e.Tool, strings.Join(e.Searched, ", "))
}

// Unwrap makes errors.Is(err, ErrNotFound) work.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("required setting %q is not configured", e.Setting)
}

// Unwrap makes errors.Is(err, ErrMissingConfiguration) work.
func (e *MissingConfigurationError) Unwrap() error { return ErrMissingConfiguration }

func (e *UntrustedWorkspaceError) Error() string {
	return fmt.Sprintf("workspace %s is not trusted by the version manager", e.Dir)
}

// Unwrap makes errors.Is(err, ErrUntrustedWorkspace) work.
func (e *UntrustedWorkspaceError) Unwrap() error { return ErrUntrustedWorkspace }

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("could not decode activation payload: %s", e.Reason)
}

// Unwrap makes errors.Is(err, ErrParseFailure) work.
func (e *ParseFailureError) Unwrap() error { return ErrParseFailure }

func (e *CancelledError) Error() string {
	if e.Reason == "" {
		return "activation cancelled"
	}
	return fmt.Sprintf("activation cancelled: %s", e.Reason)
}

// Unwrap makes errors.Is(err, ErrCancelled) work.
func (e *CancelledError) Unwrap() error { return ErrCancelled }

func (e *VersionFileError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("version file %s is empty", e.Path)
	}
	return fmt.Sprintf("version file %s has an unparsable entry %q", e.Path, e.Entry)
}

// Unwrap makes errors.Is(err, ErrVersionFileInvalid) work.
func (e *VersionFileError) Unwrap() error { return ErrVersionFileInvalid }
