// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/platform"
	"github.com/rubyup/rubyup/internal/procexec"
)

// runProbe executes the environment probe through an invocation prefix
// (e.g. ["rbenv", "exec", "ruby"]) and normalizes the captured payload.
// The probe writes its payload to stderr; both streams are searched because
// some managers redirect or merge them.
func (h *Host) runProbe(ctx context.Context, prefix []string, useShell bool) (*activation.Result, error) {
	if len(prefix) == 0 {
		return nil, fmt.Errorf("empty activation command")
	}
	args := append(append([]string(nil), prefix[1:]...), activation.ProbeArgs()...)

	cmd := procexec.Command{
		Path:     prefix[0],
		Args:     args,
		Dir:      h.BundleRoot,
		UseShell: useShell,
	}
	if useShell {
		// The runner resolves the shell from the command env; thread the
		// host's shell through so activation never depends on the ambient
		// process environment.
		if shell, ok := platform.PreferredShell(h.BaseEnv()); ok {
			cmd.Env = map[string]string{"SHELL": shell}
		}
	}

	out, err := h.Runner.Run(ctx, cmd)
	if err != nil {
		var notFound *procexec.CommandNotFoundError
		if errors.As(err, &notFound) {
			return nil, &activation.NotFoundError{Tool: notFound.Name, Searched: []string{notFound.Name}}
		}
		return nil, err
	}

	return h.normalizeProbeOutput(out)
}

// runProbeLine executes a shell command line that must end by invoking ruby,
// with the probe arguments appended. Used by strategies whose activation
// requires sourcing init scripts (asdf) and by the custom strategy.
func (h *Host) runProbeLine(ctx context.Context, prefixLine string) (*activation.Result, error) {
	probeLine, err := procexec.QuoteCommandLine(activation.ProbeArgs())
	if err != nil {
		return nil, err
	}
	line := prefixLine + " " + probeLine

	shell, ok := platform.PreferredShell(h.BaseEnv())
	if !ok {
		return nil, &activation.NotFoundError{Tool: "shell", Searched: []string{"$SHELL"}}
	}

	out, err := h.Runner.Run(ctx, procexec.Command{
		Path: shell,
		Args: []string{"-i", "-c", line},
		Dir:  h.BundleRoot,
	})
	if err != nil {
		return nil, err
	}
	return h.normalizeProbeOutput(out)
}

// normalizeProbeOutput extracts and decodes the payload, then assembles the
// merged result.
func (h *Host) normalizeProbeOutput(out *procexec.Output) (*activation.Result, error) {
	report, err := activation.ParseProbeOutput(out.Stderr + "\n" + out.Stdout)
	if err != nil {
		return nil, err
	}
	return activation.NewResult(h.baseEnv(), report), nil
}

// stderrMentionsUntrusted reports whether a manager failure looks like a
// trust refusal rather than a hard error.
func stderrMentionsUntrusted(err error) bool {
	var exitErr *procexec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return strings.Contains(strings.ToLower(exitErr.Stderr), "untrusted")
}
