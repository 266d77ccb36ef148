// SPDX-License-Identifier: MPL-2.0

package container

import "sort"

type (
	// ExecCommand is a raw command description: what a dependent tool wants
	// to run, before any execution-context rewriting.
	ExecCommand struct {
		Name string
		Args []string
		Env  map[string]string
	}

	// CommandWrapper rewrites a raw command so it runs inside a remote
	// execution context. The identity wrapper is a nil CommandWrapper;
	// use Wrap to apply either transparently.
	CommandWrapper func(ExecCommand) ExecCommand
)

// Wrap applies w to cmd, treating a nil wrapper as identity.
func (w CommandWrapper) Wrap(cmd ExecCommand) ExecCommand {
	if w == nil {
		return cmd
	}
	return w(cmd)
}

// NewExecWrapper returns a CommandWrapper that rewrites commands to run
// through `<engine> exec` inside containerName. The wrapper's own required
// env entries are merged after the caller's, so they cannot be shadowed.
func NewExecWrapper(e *Engine, containerName, workDir string, required map[string]string) CommandWrapper {
	return func(cmd ExecCommand) ExecCommand {
		args := e.BuildExecArgs(containerName, workDir, cmd, required)
		return ExecCommand{
			Name: e.BinaryPath(),
			Args: args,
			// The engine receives env via -e flags; the wrapper invocation
			// itself inherits the caller's environment untouched.
			Env: nil,
		}
	}
}

// envFlags renders an env map as KEY=VALUE strings in sorted key order so
// generated argument lists are deterministic.
func envFlags(env map[string]string) []string {
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
