// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/issue"
)

func TestGetVersionString(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = origVersion, origCommit, origDate })

	Version = "dev"
	if got := getVersionString(); got != "dev (built from source)" {
		t.Errorf("getVersionString() = %q", got)
	}

	Version, Commit, BuildDate = "1.2.3", "abc123", "2026-08-28"
	got := getVersionString()
	for _, want := range []string{"1.2.3", "abc123", "2026-08-28"} {
		if !strings.Contains(got, want) {
			t.Errorf("getVersionString() = %q, missing %q", got, want)
		}
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := &ExitError{Code: 3, Err: cause}
	if err.Error() != "boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() did not reach the cause")
	}

	bare := &ExitError{Code: 2}
	if bare.Error() != "exit status 2" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	plain := errors.New("plain failure")
	if got := formatErrorForDisplay(plain, false); got != "plain failure" {
		t.Errorf("formatErrorForDisplay() = %q", got)
	}

	actionable := issue.NewErrorContext().
		WithOperation("activate ruby runtime").
		WithSuggestion("Pin a version first").
		Build()
	got := formatErrorForDisplay(actionable, false)
	if !strings.Contains(got, "Pin a version first") {
		t.Errorf("formatErrorForDisplay() = %q, missing suggestion", got)
	}
}

func TestActivationSuggestions(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "untrusted points at --trust",
			err:  &activation.UntrustedWorkspaceError{Dir: "/ws"},
			want: "--trust",
		},
		{
			name: "invalid marker points at version-file",
			err:  &activation.VersionFileError{Path: "/ws/.ruby-version", Entry: "latest"},
			want: "version-file",
		},
		{
			name: "not found points at detect",
			err:  &activation.NotFoundError{Tool: "ruby", Searched: []string{"/opt/rubies"}},
			want: "rubyup detect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sugs := activationSuggestions(tt.err)
			if len(sugs) == 0 {
				t.Fatal("activationSuggestions() returned none")
			}
			if !strings.Contains(strings.Join(sugs, "\n"), tt.want) {
				t.Errorf("activationSuggestions() = %v, missing %q", sugs, tt.want)
			}
		})
	}

	if sugs := activationSuggestions(errors.New("opaque")); sugs != nil {
		t.Errorf("activationSuggestions() = %v for an opaque error, want none", sugs)
	}
}

func TestShellAssignments(t *testing.T) {
	lines, err := shellAssignments(map[string]string{
		"GEM_HOME": "/gems",
		"ODD":      "a b'c",
	})
	if err != nil {
		t.Fatalf("shellAssignments() error: %v", err)
	}
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "export GEM_HOME=") {
		t.Fatalf("shellAssignments() = %v, want sorted export lines", lines)
	}
	// Values with shell metacharacters must round-trip through quoting.
	if !strings.HasPrefix(lines[1], "export ODD=") || lines[1] == "export ODD=a b'c" {
		t.Errorf("shellAssignments() = %q, want a quoted value", lines[1])
	}
}
