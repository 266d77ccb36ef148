// SPDX-License-Identifier: MPL-2.0

// Package manager implements the runtime-version-management strategies and
// the orchestration that selects, runs, and retries them.
//
// Each strategy knows how to locate one version-management tool, wrap the
// environment probe in that tool's "run a command inside the activated
// runtime" form, and post-process the captured result. Strategies are
// independent implementations of a single contract; there is no shared
// mutable base.
package manager

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
	"github.com/rubyup/rubyup/internal/procexec"

	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
)

// Detection kind constants.
const (
	// DetectionNone means the strategy's tool is not applicable or not installed.
	DetectionNone DetectionKind = iota
	// DetectionPath means a concrete executable or script was found.
	DetectionPath
	// DetectionSemantic means the tool is assumed present on the ambient
	// search path, confirmed only by a lightweight existence probe.
	DetectionSemantic
)

type (
	// DetectionKind tags a DetectionResult.
	DetectionKind int

	// DetectionResult is the outcome of a strategy's pre-flight check,
	// used for UI hints before committing to full activation.
	DetectionResult struct {
		Kind DetectionKind
		// Path is set for DetectionPath results.
		Path string
		// Marker is set for DetectionSemantic results (the probed name).
		Marker string
	}

	// Strategy is one concrete way of locating and activating a Ruby
	// runtime.
	Strategy interface {
		// ID returns the strategy's configuration identifier.
		ID() config.ManagerID
		// Detect performs a lightweight pre-flight check.
		Detect(ctx context.Context) DetectionResult
		// Activate locates the tool, runs the probe through it, and
		// returns the normalized result.
		Activate(ctx context.Context) (*activation.Result, error)
	}

	// Truster is implemented by strategies whose tool refuses to run until
	// the workspace is explicitly trusted.
	Truster interface {
		// Trust grants trust for the workspace so a retry can succeed.
		Trust(ctx context.Context) error
	}

	// HostOption configures a Host.
	HostOption func(*Host)

	// Host carries the per-workspace state shared by all strategies: the
	// workspace layout, resolved configuration, execution plumbing, and the
	// diagnostics sink. One Host exists per workspace session and is the
	// single owner of its fields.
	Host struct {
		// WorkspaceRoot is the opened workspace directory.
		WorkspaceRoot string
		// BundleRoot is the directory activation runs in: the workspace
		// root, or the configured subdirectory. It is also the base of the
		// version marker search.
		BundleRoot string
		// Config is the resolved rubyup configuration (read-only input).
		Config *config.Config
		// Runner executes external commands.
		Runner *procexec.Runner
		// Log is the diagnostics sink.
		Log *log.Logger

		lookPath LookPathFunc
		baseEnv  func() []string
		homeDir  func() (string, error)
	}

	// LookPathFunc resolves a binary name on the ambient search path.
	LookPathFunc func(file string) (string, error)
)

// String returns a human-readable detection kind.
func (k DetectionKind) String() string {
	switch k {
	case DetectionPath:
		return "found"
	case DetectionSemantic:
		return "on PATH"
	default:
		return "not found"
	}
}

// DetectedNone reports a strategy as not applicable or not installed.
func DetectedNone() DetectionResult { return DetectionResult{Kind: DetectionNone} }

// DetectedAt reports a concrete executable or script location.
func DetectedAt(path string) DetectionResult {
	return DetectionResult{Kind: DetectionPath, Path: path}
}

// DetectedSemantic reports an ambient-PATH presence probe.
func DetectedSemantic(marker string) DetectionResult {
	return DetectionResult{Kind: DetectionSemantic, Marker: marker}
}

// WithLookPath replaces the PATH resolver (testing hook).
func WithLookPath(fn LookPathFunc) HostOption {
	return func(h *Host) { h.lookPath = fn }
}

// WithRunner replaces the command runner.
func WithRunner(r *procexec.Runner) HostOption {
	return func(h *Host) { h.Runner = r }
}

// WithBaseEnv replaces the inherited-environment source (testing hook).
func WithBaseEnv(fn func() []string) HostOption {
	return func(h *Host) { h.baseEnv = fn }
}

// WithHomeDir replaces home directory resolution (testing hook).
func WithHomeDir(fn func() (string, error)) HostOption {
	return func(h *Host) { h.homeDir = fn }
}

// NewHost builds the shared strategy state for one workspace session.
// BundleRoot resolves the configured override against the workspace root.
func NewHost(cfg *config.Config, workspaceRoot string, logger *log.Logger, opts ...HostOption) *Host {
	h := &Host{
		WorkspaceRoot: workspaceRoot,
		BundleRoot:    resolveBundleRoot(workspaceRoot, cfg.BundleRoot),
		Config:        cfg,
		Runner:        procexec.NewRunner(),
		Log:           logger,
		lookPath:      exec.LookPath,
		baseEnv:       os.Environ,
		homeDir:       os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func resolveBundleRoot(workspaceRoot, override string) string {
	if override == "" {
		return workspaceRoot
	}
	if filepath.IsAbs(override) {
		return override
	}
	return filepath.Join(workspaceRoot, override)
}

// BaseEnv returns the inherited process environment as a map.
func (h *Host) BaseEnv() map[string]string {
	entries := h.baseEnv()
	env := make(map[string]string, len(entries))
	for _, kv := range entries {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[key] = value
	}
	return env
}

// ExpandHome resolves a leading ~ in a configured path.
func (h *Host) ExpandHome(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// Home returns the user home directory, or "" when unresolvable.
func (h *Host) Home() string {
	home, err := h.homeDir()
	if err != nil {
		return ""
	}
	return home
}
