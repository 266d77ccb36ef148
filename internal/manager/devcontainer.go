// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"errors"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
	"github.com/rubyup/rubyup/internal/container"
	"github.com/rubyup/rubyup/internal/platform"
)

// requiredRemoteEnv names the probe-captured variables a wrapped command
// must always see inside the container, even when a caller overlays its own
// environment. The search path is handled separately because its key casing
// varies by probe host.
var requiredRemoteEnv = []string{"GEM_HOME", "GEM_PATH"}

// Devcontainer activates a Ruby runtime inside an already-running
// development container: the probe execs through the container engine, the
// result carries a path converter built from the container's bind mounts,
// and a command wrapper that reroutes later commands through the same
// container.
type Devcontainer struct {
	h *Host
	// engineOpts are forwarded to container.NewEngine (testing hook).
	engineOpts []container.EngineOption
}

// NewDevcontainer builds the devcontainer strategy.
func NewDevcontainer(h *Host, opts ...container.EngineOption) *Devcontainer {
	return &Devcontainer{h: h, engineOpts: opts}
}

// ID implements Strategy.
func (s *Devcontainer) ID() config.ManagerID { return config.ManagerDevcontainer }

// Detect implements Strategy.
func (s *Devcontainer) Detect(ctx context.Context) DetectionResult {
	if s.h.Config.Container.Name == "" {
		return DetectedNone()
	}
	engine, err := container.NewEngine(s.engineType(), s.engineOpts...)
	if err != nil {
		return DetectedNone()
	}
	return DetectedAt(engine.BinaryPath())
}

// Activate implements Strategy.
func (s *Devcontainer) Activate(ctx context.Context) (*activation.Result, error) {
	name := s.h.Config.Container.Name
	if name == "" {
		return nil, &activation.MissingConfigurationError{Setting: "container.name"}
	}

	engine, err := container.NewEngine(s.engineType(), s.engineOpts...)
	if err != nil {
		if errors.Is(err, container.ErrNoEngineAvailable) {
			return nil, &activation.NotFoundError{
				Tool:     string(s.engineType()),
				Searched: []string{"$PATH:docker", "$PATH:podman"},
			}
		}
		return nil, err
	}

	mounts, err := engine.InspectMounts(ctx, name)
	if err != nil {
		return nil, err
	}
	pairs := make([]container.MountPair, 0, len(mounts))
	for _, m := range mounts {
		pairs = append(pairs, container.MountPair{Local: m.Source, Remote: m.Destination})
	}
	converter := container.NewPathConverter(pairs, nil)

	workDir := s.h.Config.Container.WorkDir
	if workDir == "" {
		workDir = converter.ToRemote(s.h.BundleRoot)
	}

	stdout, stderr, err := engine.Exec(ctx, name, workDir, container.ExecCommand{
		Name: "ruby",
		Args: activation.ProbeArgs(),
	})
	if err != nil {
		return nil, err
	}

	report, err := activation.ParseProbeOutput(stderr + "\n" + stdout)
	if err != nil {
		return nil, err
	}
	res := activation.NewResult(s.h.baseEnv(), report)

	// The remote runtime injects its own BUNDLE_GEMFILE; the host side
	// controls that value independently, so a leaked one must not stick.
	delete(res.Env, "BUNDLE_GEMFILE")

	required := make(map[string]string, len(requiredRemoteEnv)+1)
	if _, pathValue, ok := platform.LookupPathVar(report.Env); ok {
		// Canonical key regardless of how the probe host spelled it.
		required["PATH"] = pathValue
	}
	for _, key := range requiredRemoteEnv {
		if v, ok := report.Env[key]; ok {
			required[key] = v
		}
	}

	res.Converter = converter
	res.WrapCommand = container.NewExecWrapper(engine, name, workDir, required)
	return res, nil
}

func (s *Devcontainer) engineType() container.EngineType {
	if s.h.Config.Container.Engine == config.ContainerEnginePodman {
		return container.EngineTypePodman
	}
	return container.EngineTypeDocker
}
