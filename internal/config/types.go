// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// ManagerAuto picks the first strategy whose tool is detected.
	ManagerAuto ManagerID = "auto"
	// ManagerChruby activates through chruby's ruby installation layout.
	ManagerChruby ManagerID = "chruby"
	// ManagerRbenv activates through rbenv shims.
	ManagerRbenv ManagerID = "rbenv"
	// ManagerAsdf activates through asdf's sourced shell script.
	ManagerAsdf ManagerID = "asdf"
	// ManagerMise activates through the mise binary.
	ManagerMise ManagerID = "mise"
	// ManagerRvm activates through rvm-auto-ruby.
	ManagerRvm ManagerID = "rvm"
	// ManagerShadowenv activates through shadowenv's sandboxed directory env.
	ManagerShadowenv ManagerID = "shadowenv"
	// ManagerCustom runs a user-supplied activation command.
	ManagerCustom ManagerID = "custom"
	// ManagerSystem uses whatever ruby is on the ambient search path.
	ManagerSystem ManagerID = "system"
	// ManagerDevcontainer activates inside a running development container.
	ManagerDevcontainer ManagerID = "devcontainer"

	// ContainerEngineDocker uses the Docker CLI.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman uses the Podman CLI.
	ContainerEnginePodman ContainerEngine = "podman"

	// DefaultFallbackTimeout bounds the interactive fallback offer when no
	// version marker is found anywhere above the workspace.
	DefaultFallbackTimeout = 10 * time.Second
)

var (
	// ErrInvalidManagerID is the sentinel error wrapped by InvalidManagerIDError.
	ErrInvalidManagerID = errors.New("invalid version manager")
	// ErrInvalidContainerEngine is the sentinel error wrapped by InvalidContainerEngineError.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
)

type (
	// ManagerID selects the runtime-version-management strategy.
	ManagerID string

	// InvalidManagerIDError is returned when a ManagerID value is not recognized.
	// It wraps ErrInvalidManagerID for errors.Is() compatibility.
	InvalidManagerIDError struct {
		Value ManagerID
	}

	// ContainerEngine specifies which container CLI the devcontainer
	// strategy shells out to.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value
	// is not recognized. It wraps ErrInvalidContainerEngine.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// ContainerConfig holds devcontainer strategy settings.
	ContainerConfig struct {
		// Engine is the container CLI to use.
		Engine ContainerEngine `mapstructure:"engine"`
		// Name is the running container to exec into. Required by the
		// devcontainer strategy; other strategies ignore it.
		Name string `mapstructure:"name"`
		// WorkDir is the working directory inside the container.
		WorkDir string `mapstructure:"workdir"`
	}

	// Config is the resolved rubyup configuration.
	Config struct {
		// Manager selects the activation strategy.
		Manager ManagerID `mapstructure:"manager"`
		// ManagerPaths overrides the executable location per manager
		// (e.g. manager_paths: rbenv: "/opt/rbenv/bin/rbenv").
		ManagerPaths map[string]string `mapstructure:"manager_paths"`
		// CustomCommand is the activation command used by the custom
		// strategy, in shell word syntax.
		CustomCommand string `mapstructure:"custom_command"`
		// BundleRoot is the directory activation treats as the project
		// root: working directory for probes and the base of the marker
		// file search. Absolute, or relative to the workspace root.
		// Empty means the workspace root itself.
		BundleRoot string `mapstructure:"bundle_root"`
		// FallbackTimeoutSeconds bounds the interactive fallback offer.
		// Zero means DefaultFallbackTimeout.
		FallbackTimeoutSeconds int `mapstructure:"fallback_timeout_seconds"`
		// Container configures the devcontainer strategy.
		Container ContainerConfig `mapstructure:"container"`
		// Verbose enables diagnostic logging.
		Verbose bool `mapstructure:"verbose"`
	}
)

// knownManagers is the closed set of valid ManagerID values.
var knownManagers = map[ManagerID]bool{
	ManagerAuto:         true,
	ManagerChruby:       true,
	ManagerRbenv:        true,
	ManagerAsdf:         true,
	ManagerMise:         true,
	ManagerRvm:          true,
	ManagerShadowenv:    true,
	ManagerCustom:       true,
	ManagerSystem:       true,
	ManagerDevcontainer: true,
}

// Validate checks that the ManagerID is one of the known strategies.
func (m ManagerID) Validate() error {
	if !knownManagers[m] {
		return &InvalidManagerIDError{Value: m}
	}
	return nil
}

// String returns the manager identifier.
func (m ManagerID) String() string { return string(m) }

func (e *InvalidManagerIDError) Error() string {
	return fmt.Sprintf("invalid version manager %q", string(e.Value))
}

// Unwrap makes errors.Is(err, ErrInvalidManagerID) work.
func (e *InvalidManagerIDError) Unwrap() error { return ErrInvalidManagerID }

// Validate checks that the ContainerEngine is docker or podman.
func (c ContainerEngine) Validate() error {
	switch c {
	case ContainerEngineDocker, ContainerEnginePodman:
		return nil
	default:
		return &InvalidContainerEngineError{Value: c}
	}
}

func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q", string(e.Value))
}

// Unwrap makes errors.Is(err, ErrInvalidContainerEngine) work.
func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// FallbackTimeout returns the configured fallback offer duration.
func (c *Config) FallbackTimeout() time.Duration {
	if c.FallbackTimeoutSeconds <= 0 {
		return DefaultFallbackTimeout
	}
	return time.Duration(c.FallbackTimeoutSeconds) * time.Second
}

// ManagerPath returns the configured executable override for a manager,
// if any.
func (c *Config) ManagerPath(m ManagerID) (string, bool) {
	p, ok := c.ManagerPaths[string(m)]
	return p, ok && p != ""
}

// Validate applies the Go-level checks CUE cannot express against loaded
// values (viper-sourced values bypass the schema when no config file exists).
func (c *Config) Validate() error {
	if err := c.Manager.Validate(); err != nil {
		return err
	}
	if err := c.Container.Engine.Validate(); err != nil {
		return err
	}
	if c.Manager == ManagerCustom && c.CustomCommand == "" {
		return fmt.Errorf("manager %q requires custom_command to be set", ManagerCustom)
	}
	return nil
}

// DefaultConfig returns the built-in defaults used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Manager:   ManagerAuto,
		Container: ContainerConfig{Engine: ContainerEngineDocker},
	}
}
