// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities.
//
// This package centralizes the platform-specific concerns of runtime
// activation: GOOS string constants, the Windows spelling quirks of the
// executable search path variable, and the shell selection policy for
// activation command lines.
package platform

import "runtime"

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// IsWindows reports whether the current process is running on Windows.
func IsWindows() bool {
	return runtime.GOOS == Windows
}
