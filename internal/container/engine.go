// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
)

// EngineType identifies the container engine type.
type EngineType string

const (
	// EngineTypeDocker uses the Docker CLI.
	EngineTypeDocker EngineType = "docker"
	// EngineTypePodman uses the Podman CLI.
	EngineTypePodman EngineType = "podman"
)

// ErrNoEngineAvailable is returned when neither preferred nor fallback
// container engine binaries can be found.
var ErrNoEngineAvailable = errors.New("no container engine available")

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// LookPathFunc resolves a binary name on the ambient search path.
	LookPathFunc func(file string) (string, error)

	// EngineOption configures an Engine.
	EngineOption func(*Engine)

	// Engine shells out to a CLI container engine. Docker and Podman share
	// the exec/inspect argument surface used here, so one implementation
	// serves both; the name only affects error messages and binary lookup.
	Engine struct {
		engineType  EngineType
		binaryPath  string
		execCommand ExecCommandFunc
		lookPath    LookPathFunc
	}

	// Mount is one bind mount of a running container, as reported by
	// `<engine> inspect`.
	Mount struct {
		Source      string `json:"Source"`
		Destination string `json:"Destination"`
	}
)

// WithExecCommand replaces the exec.Cmd factory (testing hook).
func WithExecCommand(fn ExecCommandFunc) EngineOption {
	return func(e *Engine) { e.execCommand = fn }
}

// WithLookPath replaces the PATH resolver (testing hook).
func WithLookPath(fn LookPathFunc) EngineOption {
	return func(e *Engine) { e.lookPath = fn }
}

// NewEngine resolves the preferred engine binary, falling back to the other
// engine when the preferred one is not installed.
func NewEngine(preferred EngineType, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		engineType:  preferred,
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
	for _, opt := range opts {
		opt(e)
	}

	candidates := []EngineType{preferred}
	if preferred == EngineTypeDocker {
		candidates = append(candidates, EngineTypePodman)
	} else {
		candidates = append(candidates, EngineTypeDocker)
	}
	for _, c := range candidates {
		if path, err := e.lookPath(string(c)); err == nil {
			e.engineType = c
			e.binaryPath = path
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: tried %q and %q", ErrNoEngineAvailable, candidates[0], candidates[1])
}

// Type returns the resolved engine type.
func (e *Engine) Type() EngineType { return e.engineType }

// BinaryPath returns the resolved engine binary path.
func (e *Engine) BinaryPath() string { return e.binaryPath }

// BuildExecArgs assembles the `exec` argument list for running cmd inside
// containerName. Caller-provided env flags precede wrapper-required ones so
// a later duplicate wins inside the engine; required entries can therefore
// never be silently shadowed by the caller.
func (e *Engine) BuildExecArgs(containerName, workDir string, cmd ExecCommand, required map[string]string) []string {
	args := []string{"exec"}
	if workDir != "" {
		args = append(args, "-w", workDir)
	}
	for _, kv := range envFlags(cmd.Env) {
		args = append(args, "-e", kv)
	}
	for _, kv := range envFlags(required) {
		args = append(args, "-e", kv)
	}
	args = append(args, containerName, cmd.Name)
	args = append(args, cmd.Args...)
	return args
}

// Exec runs cmd inside containerName and captures both streams.
func (e *Engine) Exec(ctx context.Context, containerName, workDir string, cmd ExecCommand) (stdout, stderr string, err error) {
	args := e.BuildExecArgs(containerName, workDir, cmd, nil)
	c := e.execCommand(ctx, e.binaryPath, args...)

	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf
	if runErr := c.Run(); runErr != nil {
		return outBuf.String(), errBuf.String(),
			fmt.Errorf("%s exec in %q: %w (stderr: %s)", e.engineType, containerName, runErr, errBuf.String())
	}
	return outBuf.String(), errBuf.String(), nil
}

// InspectMounts returns the bind mounts of a running container. The mapping
// is queried fresh on every activation because container configuration can
// change between sessions.
func (e *Engine) InspectMounts(ctx context.Context, containerName string) ([]Mount, error) {
	c := e.execCommand(ctx, e.binaryPath, "inspect", "--format", "{{json .Mounts}}", containerName)

	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf
	if err := c.Run(); err != nil {
		return nil, fmt.Errorf("%s inspect %q: %w (stderr: %s)", e.engineType, containerName, err, errBuf.String())
	}

	var mounts []Mount
	if err := json.Unmarshal(bytes.TrimSpace(outBuf.Bytes()), &mounts); err != nil {
		return nil, fmt.Errorf("decoding %s inspect output for %q: %w", e.engineType, containerName, err)
	}
	return mounts, nil
}
