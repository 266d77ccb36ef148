// SPDX-License-Identifier: MPL-2.0

package activation

import (
	"maps"
	"strings"

	"github.com/rubyup/rubyup/internal/container"
	"github.com/rubyup/rubyup/internal/platform"
)

// diagnosticsDenylist names variables deleted from every activated
// environment. Dependent tooling multiplexes diagnostics over stdio, and a
// runtime launched with these set interleaves its own chatter into that
// stream and corrupts it.
var diagnosticsDenylist = []string{"VERBOSE", "DEBUG"}

// Result is the normalized outcome of activating a Ruby runtime. It is a
// value: strategies build one per activation and never share or mutate a
// previously returned instance.
type Result struct {
	// Env is the inherited process environment overlaid with the
	// runtime-specific additions captured by the probe.
	Env map[string]string
	// YJITEnabled reports whether the activated runtime has the optimizing
	// JIT compiled in.
	YJITEnabled bool
	// Version is the activated runtime version. Never empty on success.
	Version string
	// GemPaths are the runtime's library search paths, in reported order.
	GemPaths []string
	// Converter translates workspace paths for containerized runtimes.
	// Non-container strategies carry the identity converter.
	Converter *container.PathConverter
	// WrapCommand rewrites raw commands to run inside the remote execution
	// context. Nil (identity) for everything but containerized strategies.
	WrapCommand container.CommandWrapper
}

// NewResult assembles a Result from the inherited environment and a decoded
// probe report: probe entries win over inherited ones, then the diagnostics
// denylist is deleted.
func NewResult(inherited []string, report *Report) *Result {
	env := make(map[string]string, len(inherited)+len(report.Env))
	for _, kv := range inherited {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[key] = value
	}
	maps.Copy(env, report.Env)
	for _, k := range diagnosticsDenylist {
		delete(env, k)
	}

	// Ruby reports gem paths forward-slashed even on Windows hosts.
	gemPaths := make([]string, 0, len(report.GemPaths))
	for _, p := range report.GemPaths {
		gemPaths = append(gemPaths, platform.NormalizeSeparators(p))
	}

	return &Result{
		Env:         env,
		YJITEnabled: report.YJIT,
		Version:     report.Version,
		GemPaths:    gemPaths,
		Converter:   container.IdentityConverter(),
	}
}

// MergeEnv folds additional environment entries into the result,
// last-write-wins per key. Callers use it to absorb environment contributed
// by unrelated subprocesses (e.g. a containerized dependency-resolution
// step) without re-running activation. Merging the same map repeatedly is
// idempotent, and denylisted variables stay deleted.
func (r *Result) MergeEnv(extra map[string]string) {
	if len(extra) == 0 {
		return
	}
	maps.Copy(r.Env, extra)
	for _, k := range diagnosticsDenylist {
		delete(r.Env, k)
	}
}
