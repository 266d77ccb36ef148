// SPDX-License-Identifier: MPL-2.0

// Package procexec runs external commands for runtime activation.
//
// It is a thin, injectable wrapper over os/exec that adds the three things
// every activation call needs: an explicit environment overlay (the ambient
// process environment is never mutated), a shell selection policy for
// command lines that assume shell init files, and typed classification of
// "the executable does not exist" separately from "the command failed".
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/rubyup/rubyup/internal/platform"

	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Command describes one external invocation.
	Command struct {
		// Path is the executable to run (absolute path or PATH-relative name).
		Path string
		// Args are the arguments passed to the executable.
		Args []string
		// Dir is the working directory. Empty means the caller's cwd.
		Dir string
		// Env is overlaid onto the inherited process environment.
		Env map[string]string
		// UseShell routes the command line through the user's interactive
		// shell when one is configured. Activation snippets frequently rely
		// on shell-specific init behavior (sourcing chruby.sh, asdf.sh, or
		// rvm functions), so strategies opt in per invocation.
		// On Windows the shell is never used regardless of this flag.
		UseShell bool
	}

	// Output holds the captured streams of a completed invocation.
	Output struct {
		Stdout string
		Stderr string
	}

	// RunnerOption configures a Runner.
	RunnerOption func(*Runner)

	// Runner executes Commands. The zero value is not usable; construct with
	// NewRunner.
	Runner struct {
		execCommand ExecCommandFunc
		baseEnv     func() []string
	}
)

// NewRunner creates a Runner backed by exec.CommandContext and the current
// process environment.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		execCommand: exec.CommandContext,
		baseEnv:     os.Environ,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithExecCommand replaces the exec.Cmd factory. Tests use this with the
// helper-process pattern to simulate manager binaries.
func WithExecCommand(fn ExecCommandFunc) RunnerOption {
	return func(r *Runner) { r.execCommand = fn }
}

// WithBaseEnv replaces the inherited-environment source.
func WithBaseEnv(fn func() []string) RunnerOption {
	return func(r *Runner) { r.baseEnv = fn }
}

// Run executes cmd and waits for it to exit, capturing both streams.
//
// A missing executable is reported as a CommandNotFoundError so callers can
// offer install guidance instead of a raw process error. A non-zero exit is
// reported as an ExitError carrying the captured stderr.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Output, error) {
	name, args, err := r.resolveInvocation(cmd)
	if err != nil {
		return nil, err
	}

	c := r.execCommand(ctx, name, args...)
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	c.Env = append(r.baseEnv(), EnvToSlice(cmd.Env)...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	runErr := c.Run()
	out := &Output{Stdout: stdout.String(), Stderr: stderr.String()}

	switch {
	case runErr == nil:
		return out, nil
	case errors.Is(runErr, exec.ErrNotFound):
		return out, &CommandNotFoundError{Name: name}
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return out, &ExitError{
				Path:     name,
				ExitCode: exitErr.ExitCode(),
				Stderr:   out.Stderr,
			}
		}
		return out, fmt.Errorf("running %s: %w", name, runErr)
	}
}

// resolveInvocation applies the shell selection policy: when the command asks
// for a shell and the platform allows one, the whole command line is quoted
// and handed to `$SHELL -i -c`. Otherwise argv is used directly.
func (r *Runner) resolveInvocation(cmd Command) (name string, args []string, err error) {
	if !cmd.UseShell {
		return cmd.Path, cmd.Args, nil
	}
	shell, ok := platform.PreferredShell(cmd.Env)
	if !ok {
		return cmd.Path, cmd.Args, nil
	}
	line, err := QuoteCommandLine(append([]string{cmd.Path}, cmd.Args...))
	if err != nil {
		return "", nil, fmt.Errorf("quoting command line for %s: %w", shell, err)
	}
	return shell, []string{"-i", "-c", line}, nil
}

// QuoteCommandLine renders argv as a single POSIX shell command line with
// each word safely quoted.
func QuoteCommandLine(argv []string) (string, error) {
	words := make([]string, 0, len(argv))
	for _, a := range argv {
		quoted, err := syntax.Quote(a, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("word %q is not representable: %w", a, err)
		}
		words = append(words, quoted)
	}
	return strings.Join(words, " "), nil
}

// SplitCommandLine splits a user-supplied command string into argv using
// POSIX shell word rules (quotes and escapes honored). Variable references
// resolve against env so configured command strings may use e.g. $HOME.
func SplitCommandLine(line string, env map[string]string) ([]string, error) {
	fields, err := shell.Fields(line, func(name string) string { return env[name] })
	if err != nil {
		return nil, fmt.Errorf("parsing command line %q: %w", line, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("parsing command line %q: no words", line)
	}
	return fields, nil
}

// EnvToSlice converts an environment map to KEY=VALUE form, sorted by key so
// resulting command invocations are deterministic.
func EnvToSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
