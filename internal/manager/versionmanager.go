// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
)

// autoDetectOrder is the strategy priority for `manager: auto`: workspace
// markers first (shadowenv), then the common per-user managers, with the
// ambient runtime as the terminal candidate. custom and devcontainer are
// never auto-selected; both require explicit configuration.
var autoDetectOrder = []config.ManagerID{
	config.ManagerShadowenv,
	config.ManagerChruby,
	config.ManagerRbenv,
	config.ManagerRvm,
	config.ManagerAsdf,
	config.ManagerMise,
	config.ManagerSystem,
}

// errRestartActivation signals that a fallback choice durably changed the
// workspace (a version marker was written) and activation must re-run from
// the top. Never returned to callers.
var errRestartActivation = errors.New("restart activation")

// maxActivationAttempts bounds the restart/retry loop: one recovery action
// (trust grant or marker persist) plus the retried activation.
const maxActivationAttempts = 2

type (
	// Callbacks are the interaction points the orchestrator needs a human
	// (or a host application) for. Every field may be nil; nil means the
	// non-interactive default noted per field.
	Callbacks struct {
		// ConfirmTrust asks whether to trust the workspace after a trust
		// refusal. nil means never trust.
		ConfirmTrust func(ctx context.Context, dir string) bool
		// OfferFallback presents a runtime to use when no version marker
		// exists anywhere above the workspace, returning a channel the
		// eventual choice arrives on. The offer is time-boxed: no answer
		// within the configured window accepts the offered runtime. nil
		// means accept immediately.
		OfferFallback func(ctx context.Context, offered InstalledRuby, installed []InstalledRuby) <-chan FallbackChoice
	}

	// DetectionEntry pairs a strategy with its pre-flight result.
	DetectionEntry struct {
		ID     config.ManagerID
		Result DetectionResult
	}

	// VersionManager orchestrates activation for one workspace session:
	// strategy selection, version discovery and fallback, and bounded
	// recovery retries. State is single-owner; Activate is repeatable and
	// rebuilds converters and wrappers on every call.
	VersionManager struct {
		host      *Host
		callbacks Callbacks
	}
)

// NewVersionManager builds the orchestrator for one workspace session.
func NewVersionManager(h *Host, callbacks Callbacks) *VersionManager {
	return &VersionManager{host: h, callbacks: callbacks}
}

// Host exposes the shared session state.
func (m *VersionManager) Host() *Host { return m.host }

// Activate selects a strategy, runs it, and applies at most one bounded
// recovery: granting trust after an untrusted-workspace refusal, or
// restarting after a fallback choice persisted a version marker.
func (m *VersionManager) Activate(ctx context.Context) (*activation.Result, error) {
	var lastErr error
	for attempt := 1; attempt <= maxActivationAttempts; attempt++ {
		res, err := m.activateOnce(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if errors.Is(err, errRestartActivation) {
			m.host.Log.Debug("version marker persisted, restarting activation", "attempt", attempt)
			continue
		}

		var untrusted *activation.UntrustedWorkspaceError
		if errors.As(err, &untrusted) && attempt < maxActivationAttempts {
			if recovered := m.recoverTrust(ctx, untrusted.Dir); recovered {
				continue
			}
		}
		return nil, err
	}
	if errors.Is(lastErr, errRestartActivation) {
		return nil, &activation.CancelledError{Reason: "activation kept restarting without converging"}
	}
	return nil, lastErr
}

// DetectAll runs every strategy's pre-flight check, in auto-detection
// priority order followed by the configuration-gated strategies.
func (m *VersionManager) DetectAll(ctx context.Context) []DetectionEntry {
	ids := append(append([]config.ManagerID(nil), autoDetectOrder...),
		config.ManagerCustom, config.ManagerDevcontainer)
	entries := make([]DetectionEntry, 0, len(ids))
	for _, id := range ids {
		strat, err := m.strategyFor(id, nil)
		if err != nil {
			continue
		}
		entries = append(entries, DetectionEntry{ID: id, Result: strat.Detect(ctx)})
	}
	return entries
}

func (m *VersionManager) activateOnce(ctx context.Context) (*activation.Result, error) {
	id := m.host.Config.Manager
	if id == "" || id == config.ManagerAuto {
		detected, err := m.autoDetect(ctx)
		if err != nil {
			return nil, err
		}
		id = detected
	}

	var spec *VersionSpec
	if id == config.ManagerChruby {
		resolved, err := m.resolveVersion(ctx)
		if err != nil {
			return nil, err
		}
		spec = resolved
	}

	strat, err := m.strategyFor(id, spec)
	if err != nil {
		return nil, err
	}
	m.host.Log.Debug("activating", "manager", id, "bundleRoot", m.host.BundleRoot)
	return strat.Activate(ctx)
}

// autoDetect returns the first strategy in priority order whose pre-flight
// check succeeds. Detection runs concurrently-per-strategy internally (the
// filesystem probes), but candidates are consulted strictly in order.
func (m *VersionManager) autoDetect(ctx context.Context) (config.ManagerID, error) {
	for _, id := range autoDetectOrder {
		strat, err := m.strategyFor(id, nil)
		if err != nil {
			return "", err
		}
		if result := strat.Detect(ctx); result.Kind != DetectionNone {
			m.host.Log.Debug("auto-detected version manager", "manager", id, "via", result.Kind.String())
			return id, nil
		}
	}
	return "", &activation.NotFoundError{
		Tool:     "ruby version manager",
		Searched: managerIDStrings(autoDetectOrder),
	}
}

func (m *VersionManager) strategyFor(id config.ManagerID, spec *VersionSpec) (Strategy, error) {
	switch id {
	case config.ManagerChruby:
		return NewChruby(m.host, spec), nil
	case config.ManagerRbenv:
		return NewRbenv(m.host), nil
	case config.ManagerAsdf:
		return NewAsdf(m.host), nil
	case config.ManagerMise:
		return NewMise(m.host), nil
	case config.ManagerRvm:
		return NewRvm(m.host), nil
	case config.ManagerShadowenv:
		return NewShadowenv(m.host), nil
	case config.ManagerCustom:
		return NewCustom(m.host), nil
	case config.ManagerSystem:
		return NewSystem(m.host), nil
	case config.ManagerDevcontainer:
		return NewDevcontainer(m.host), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidManagerID, id)
	}
}

// resolveVersion runs the marker-file discovery walk and, when nothing is
// found, the time-boxed fallback offer.
func (m *VersionManager) resolveVersion(ctx context.Context) (*VersionSpec, error) {
	spec, err := FindVersionFile(m.host.BundleRoot)
	if err != nil {
		return nil, err
	}
	if spec != nil {
		return spec, nil
	}

	dirs := rubyInstallDirs(m.host.Home())
	installed := ScanInstalledRubies(dirs)

	// A lockfile pin with no installed match cannot be satisfied by any
	// fallback choice; fail now instead of offering a runtime that the
	// dependency resolution step would reject anyway.
	if pinned, ok := GemfileLockRubyVersion(m.host.BundleRoot); ok {
		if _, found := matchInstalled(installed, VersionSpec{Version: pinned}); !found {
			return nil, &activation.NotFoundError{Tool: "ruby " + pinned, Searched: dirs}
		}
	}

	if len(installed) == 0 {
		return nil, &activation.NotFoundError{Tool: "ruby", Searched: dirs}
	}

	offered := installed[0]
	if m.callbacks.OfferFallback == nil {
		m.host.Log.Debug("no version marker found, using newest installed runtime", "version", offered.Version)
		return &VersionSpec{Engine: offered.Engine, Version: offered.Version}, nil
	}

	choices := m.callbacks.OfferFallback(ctx, offered, installed)
	choice, timedOut, err := AwaitFallback(ctx, m.host.Config.FallbackTimeout(), choices)
	if err != nil {
		return nil, err
	}
	if timedOut {
		m.host.Log.Debug("fallback offer timed out, proceeding", "version", offered.Version)
		return &VersionSpec{Engine: offered.Engine, Version: offered.Version}, nil
	}

	switch choice.Kind {
	case FallbackPersist:
		selected := choice.Selected
		if selected.Version == "" {
			selected = offered
		}
		dir := choice.PersistDir
		if dir == "" {
			dir = m.host.BundleRoot
		}
		if err := WriteVersionFile(dir, VersionSpec{Engine: selected.Engine, Version: selected.Version}); err != nil {
			return nil, err
		}
		return nil, errRestartActivation
	case FallbackManual:
		if choice.Selected.Version == "" {
			return nil, &activation.CancelledError{Reason: "no runtime selected"}
		}
		return &VersionSpec{Engine: choice.Selected.Engine, Version: choice.Selected.Version}, nil
	default:
		return nil, &activation.CancelledError{
			Reason: fmt.Sprintf("no Ruby version configured for %s", m.host.BundleRoot),
		}
	}
}

// recoverTrust asks for confirmation and grants trust through the selected
// strategy. Reports whether a retry is warranted.
func (m *VersionManager) recoverTrust(ctx context.Context, dir string) bool {
	if m.callbacks.ConfirmTrust == nil || !m.callbacks.ConfirmTrust(ctx, dir) {
		return false
	}
	strat, err := m.strategyFor(config.ManagerShadowenv, nil)
	if err != nil {
		return false
	}
	truster, ok := strat.(Truster)
	if !ok {
		return false
	}
	if err := truster.Trust(ctx); err != nil {
		m.host.Log.Warn("granting workspace trust failed", "dir", dir, "err", err)
		return false
	}
	return true
}

func managerIDStrings(ids []config.ManagerID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
