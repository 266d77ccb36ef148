// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for rubyup.
//
// This package implements the Cobra command hierarchy for the rubyup CLI:
// the root command, runtime activation, version-manager detection, version
// pinning, and configuration inspection.
package cmd
