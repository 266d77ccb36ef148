// SPDX-License-Identifier: MPL-2.0

package procexec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCommandNotFound is the sentinel error wrapped by CommandNotFoundError.
	ErrCommandNotFound = errors.New("command not found")

	// ErrCommandFailed is the sentinel error wrapped by ExitError.
	ErrCommandFailed = errors.New("command failed")
)

type (
	// CommandNotFoundError is returned when the executable itself could not
	// be located. Callers treat this distinctly from a failing process so
	// they can offer install guidance.
	CommandNotFoundError struct {
		Name string
	}

	// ExitError is returned when a process ran but exited non-zero. The
	// captured stderr is carried so activation failures stay diagnosable.
	ExitError struct {
		Path     string
		ExitCode int
		Stderr   string
	}
)

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("command not found: %s", e.Name)
}

// Unwrap makes errors.Is(err, ErrCommandNotFound) work.
func (e *CommandNotFoundError) Unwrap() error { return ErrCommandNotFound }

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Path, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Unwrap makes errors.Is(err, ErrCommandFailed) work.
func (e *ExitError) Unwrap() error { return ErrCommandFailed }
