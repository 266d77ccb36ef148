// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
	"github.com/rubyup/rubyup/internal/container"
	"github.com/rubyup/rubyup/internal/procexec"

	"github.com/charmbracelet/log"
)

type (
	// scriptedExec replays a queue of canned process outcomes through the
	// TestHelperProcess pattern, one per spawned command.
	scriptedExec struct {
		responses []execResponse
		calls     []execCall
		current   execResponse
	}

	execResponse struct {
		exitCode int
		stdout   string
		stderr   string
	}

	execCall struct {
		name string
		args []string
	}
)

func (s *scriptedExec) commandFunc() procexec.ExecCommandFunc {
	return func(ctx context.Context, name string, args ...string) *osexec.Cmd {
		s.calls = append(s.calls, execCall{name: name, args: args})
		if len(s.responses) > 0 {
			s.current = s.responses[0]
			s.responses = s.responses[1:]
		}
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		return osexec.CommandContext(ctx, os.Args[0], cs...)
	}
}

// baseEnv feeds the helper-process control variables through the runner's
// base-env source; Run rebuilds the child environment from it.
func (s *scriptedExec) baseEnv() []string {
	return []string{
		"GO_WANT_HELPER_PROCESS=1",
		fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", s.current.exitCode),
		"GO_HELPER_STDOUT=" + s.current.stdout,
		"GO_HELPER_STDERR=" + s.current.stderr,
	}
}

func (s *scriptedExec) runner() *procexec.Runner {
	return procexec.NewRunner(
		procexec.WithExecCommand(s.commandFunc()),
		procexec.WithBaseEnv(s.baseEnv),
	)
}

// containerCommandFunc adapts the scripted queue to the container engine,
// which builds its exec.Cmds directly instead of going through a Runner, so
// the helper-process control variables ride on the cmd itself.
func (s *scriptedExec) containerCommandFunc() container.ExecCommandFunc {
	return func(ctx context.Context, name string, args ...string) *osexec.Cmd {
		s.calls = append(s.calls, execCall{name: name, args: args})
		if len(s.responses) > 0 {
			s.current = s.responses[0]
			s.responses = s.responses[1:]
		}
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := osexec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), s.baseEnv()...)
		return cmd
	}
}

// TestHelperProcess is not a real test: it stands in for manager binaries
// spawned by scripted runners.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Fprint(os.Stdout, os.Getenv("GO_HELPER_STDOUT"))
	fmt.Fprint(os.Stderr, os.Getenv("GO_HELPER_STDERR"))
	code, _ := strconv.Atoi(os.Getenv("GO_HELPER_EXIT_CODE"))
	os.Exit(code)
}

// probePayload renders a sentinel-delimited JSON probe payload.
func probePayload(version string, yjit bool, env map[string]string, gemPaths []string) string {
	body := `{"env":{`
	first := true
	for k, v := range env {
		if !first {
			body += ","
		}
		body += fmt.Sprintf("%q:%q", k, v)
		first = false
	}
	body += fmt.Sprintf(`},"yjit":%v,"version":%q,"gemPath":[`, yjit, version)
	for i, p := range gemPaths {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf("%q", p)
	}
	body += "]}"
	return activation.Sentinel + body + activation.Sentinel
}

// testHost builds a Host wired to a scripted runner, a temp home, and a
// failing PATH lookup (override with WithLookPath per test).
func testHost(t *testing.T, cfg *config.Config, script *scriptedExec, opts ...HostOption) *Host {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	home := t.TempDir()
	workspace := t.TempDir()

	base := []HostOption{
		WithHomeDir(func() (string, error) { return home, nil }),
		WithLookPath(func(string) (string, error) { return "", osexec.ErrNotFound }),
		WithBaseEnv(func() []string { return []string{"HOME=" + home, "VERBOSE=1"} }),
	}
	if script != nil {
		base = append(base, WithRunner(script.runner()))
	}
	return NewHost(cfg, workspace, log.New(io.Discard), append(base, opts...)...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
