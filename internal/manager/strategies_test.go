// SPDX-License-Identifier: MPL-2.0

package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
	"github.com/rubyup/rubyup/internal/container"
)

func TestSystem_ActivateParsesProbe(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		stderr: probePayload("3.3.4", true, map[string]string{"GEM_HOME": "/gems"}, []string{"/gems"}),
	}}}
	h := testHost(t, nil, script,
		WithLookPath(func(string) (string, error) { return "/usr/bin/ruby", nil }))

	res, err := NewSystem(h).Activate(context.Background())
	if err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	if res.Version != "3.3.4" || !res.YJITEnabled {
		t.Errorf("Activate() = version %q yjit %v", res.Version, res.YJITEnabled)
	}
	if res.Env["GEM_HOME"] != "/gems" {
		t.Errorf("Activate() env GEM_HOME = %q", res.Env["GEM_HOME"])
	}
	if _, ok := res.Env["VERBOSE"]; ok {
		t.Error("Activate() kept a denylisted diagnostics variable")
	}
	if len(script.calls) != 1 || script.calls[0].name != "/usr/bin/ruby" {
		t.Fatalf("Activate() calls = %+v", script.calls)
	}
	if script.calls[0].args[0] != activation.ProbeArgs()[0] {
		t.Errorf("Activate() args = %v, want probe args", script.calls[0].args)
	}
}

func TestSystem_ActivateNotFound(t *testing.T) {
	h := testHost(t, nil, &scriptedExec{})

	_, err := NewSystem(h).Activate(context.Background())
	if !errors.Is(err, activation.ErrNotFound) {
		t.Fatalf("Activate() error = %v, want not found", err)
	}
}

func TestRbenv_ActivateExecsAndPrependsShims(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		stderr: probePayload("3.2.2", false, map[string]string{"PATH": "/base"}, nil),
	}}}
	h := testHost(t, nil, script)
	rbenvBin := filepath.Join(h.Home(), ".rbenv", "bin", "rbenv")
	writeFile(t, rbenvBin, "#!/bin/sh\n")

	res, err := NewRbenv(h).Activate(context.Background())
	if err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	call := script.calls[0]
	if call.name != rbenvBin || call.args[0] != "exec" || call.args[1] != "ruby" {
		t.Fatalf("Activate() call = %+v, want rbenv exec ruby", call)
	}
	shims := filepath.Join(h.Home(), ".rbenv", "shims")
	if !strings.HasPrefix(res.Env["PATH"], shims+string(os.PathListSeparator)) {
		t.Errorf("Activate() PATH = %q, want shims first", res.Env["PATH"])
	}
}

func TestRbenv_ConfiguredPathMustExist(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ManagerPaths = map[string]string{"rbenv": "/nope/rbenv"}
	h := testHost(t, cfg, &scriptedExec{})

	_, err := NewRbenv(h).Activate(context.Background())
	var nf *activation.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Activate() error = %v, want *NotFoundError", err)
	}
	// A configured-but-absent override names exactly that path, not the
	// whole candidate list.
	if len(nf.Searched) != 1 || nf.Searched[0] != "/nope/rbenv" {
		t.Errorf("NotFoundError.Searched = %v, want only the configured path", nf.Searched)
	}
}

func TestChruby_ActivateSelectsInstalledRuby(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		stderr: probePayload("3.3.4", true,
			map[string]string{"PATH": "/base"},
			[]string{"/home/u/.gem/ruby/3.3.0", "/rubies/lib/gems", "/rubies/lib/default"}),
	}}}
	h := testHost(t, nil, script)

	install := filepath.Join(h.Home(), ".rubies", "ruby-3.3.4")
	writeFile(t, filepath.Join(install, "bin", "ruby"), "")
	writeFile(t, filepath.Join(h.BundleRoot, VersionFileName), "3.3.4")

	res, err := NewChruby(h, nil).Activate(context.Background())
	if err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	if script.calls[0].name != filepath.Join(install, "bin", "ruby") {
		t.Fatalf("Activate() ran %q, want the selected installation's ruby", script.calls[0].name)
	}
	if !strings.HasPrefix(res.Env["PATH"], filepath.Join(install, "bin")) {
		t.Errorf("Activate() PATH = %q, want ruby bin first", res.Env["PATH"])
	}

	// Three reported gem paths mean the runtime uses a patch-qualified user
	// gem directory that chruby's defaults would miss.
	patchDir := filepath.Join(h.Home(), ".gem", "ruby", "3.3.4")
	if res.Env["GEM_HOME"] != patchDir {
		t.Errorf("Activate() GEM_HOME = %q, want %q", res.Env["GEM_HOME"], patchDir)
	}
	if !strings.Contains(res.Env["GEM_PATH"], "/rubies/lib/default") {
		t.Errorf("Activate() GEM_PATH = %q, missing default gems", res.Env["GEM_PATH"])
	}
}

func TestChruby_MissingInstallListsSearchedDirs(t *testing.T) {
	h := testHost(t, nil, &scriptedExec{})
	writeFile(t, filepath.Join(h.BundleRoot, VersionFileName), "9.9.9")

	_, err := NewChruby(h, nil).Activate(context.Background())
	var nf *activation.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Activate() error = %v, want *NotFoundError", err)
	}
	if nf.Tool != "9.9.9" {
		t.Errorf("NotFoundError.Tool = %q, want the requested version", nf.Tool)
	}
	if len(nf.Searched) != 2 {
		t.Errorf("NotFoundError.Searched = %v, want both installation roots", nf.Searched)
	}
}

func TestShadowenv_UntrustedBecomesTypedError(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		exitCode: 1,
		stderr:   "shadowenv: this directory is untrusted",
	}}}
	h := testHost(t, nil, script,
		WithLookPath(func(string) (string, error) { return "/usr/bin/shadowenv", nil }))

	_, err := NewShadowenv(h).Activate(context.Background())
	var untrusted *activation.UntrustedWorkspaceError
	if !errors.As(err, &untrusted) {
		t.Fatalf("Activate() error = %v, want *UntrustedWorkspaceError", err)
	}
	if untrusted.Dir != h.BundleRoot {
		t.Errorf("UntrustedWorkspaceError.Dir = %q, want bundle root", untrusted.Dir)
	}
}

func TestShadowenv_DetectRequiresMarkerDir(t *testing.T) {
	h := testHost(t, nil, &scriptedExec{},
		WithLookPath(func(string) (string, error) { return "/usr/bin/shadowenv", nil }))

	if got := NewShadowenv(h).Detect(context.Background()); got.Kind != DetectionNone {
		t.Fatalf("Detect() = %+v without .shadowenv.d", got)
	}
	if err := os.MkdirAll(filepath.Join(h.BundleRoot, ".shadowenv.d"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := NewShadowenv(h).Detect(context.Background()); got.Kind != DetectionPath {
		t.Fatalf("Detect() = %+v with .shadowenv.d present", got)
	}
}

func TestCustom_AppendsRubyAndProbe(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		stderr: probePayload("3.3.0", false, nil, nil),
	}}}
	cfg := config.DefaultConfig()
	cfg.Manager = config.ManagerCustom
	cfg.CustomCommand = `my_shim exec --opt "a b"`
	h := testHost(t, cfg, script)

	if _, err := NewCustom(h).Activate(context.Background()); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	call := script.calls[0]
	if call.name != "my_shim" {
		t.Fatalf("Activate() ran %q, want my_shim", call.name)
	}
	want := []string{"exec", "--opt", "a b", "ruby"}
	for i, w := range want {
		if call.args[i] != w {
			t.Fatalf("Activate() args = %v, want prefix %v", call.args, want)
		}
	}
}

func TestCustom_RoutesThroughConfiguredShell(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		stderr: probePayload("3.3.0", false, nil, nil),
	}}}
	cfg := config.DefaultConfig()
	cfg.Manager = config.ManagerCustom
	cfg.CustomCommand = "my_shim exec"
	h := testHost(t, cfg, script,
		WithBaseEnv(func() []string { return []string{"SHELL=/bin/sh"} }))

	if _, err := NewCustom(h).Activate(context.Background()); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	call := script.calls[0]
	if call.name != "/bin/sh" {
		t.Fatalf("Activate() ran %q, want the configured shell", call.name)
	}
	if call.args[0] != "-i" || call.args[1] != "-c" {
		t.Fatalf("Activate() shell args = %v, want -i -c <line>", call.args)
	}
	line := call.args[2]
	if !strings.Contains(line, "my_shim exec ruby") {
		t.Errorf("Activate() line = %q, want the custom command with ruby appended", line)
	}
}

func TestCustom_MissingCommandIsMissingConfiguration(t *testing.T) {
	h := testHost(t, nil, &scriptedExec{})

	_, err := NewCustom(h).Activate(context.Background())
	if !errors.Is(err, activation.ErrMissingConfiguration) {
		t.Fatalf("Activate() error = %v, want missing configuration", err)
	}
}

func TestRvm_UsesAutoRubyWrapper(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		stderr: probePayload("3.1.0", false, nil, nil),
	}}}
	h := testHost(t, nil, script)
	wrapper := filepath.Join(h.Home(), ".rvm", "bin", "rvm-auto-ruby")
	writeFile(t, wrapper, "")

	if _, err := NewRvm(h).Activate(context.Background()); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	if script.calls[0].name != wrapper {
		t.Errorf("Activate() ran %q, want %q", script.calls[0].name, wrapper)
	}
}

func TestAsdf_ActivateSourcesInitScript(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		stderr: probePayload("3.2.0", false, nil, nil),
	}}}
	h := testHost(t, nil, script,
		WithBaseEnv(func() []string { return []string{"SHELL=/bin/sh"} }))
	initScript := filepath.Join(h.Home(), ".asdf", "asdf.sh")
	writeFile(t, initScript, "")

	if _, err := NewAsdf(h).Activate(context.Background()); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	call := script.calls[0]
	if call.name != "/bin/sh" {
		t.Fatalf("Activate() ran %q, want the configured shell", call.name)
	}
	line := call.args[len(call.args)-1]
	if !strings.HasPrefix(line, ". "+initScript+" && asdf exec ruby") {
		t.Errorf("Activate() line = %q, want sourced init script", line)
	}
}

func TestAsdf_WithoutShellReportsShellNotFound(t *testing.T) {
	h := testHost(t, nil, &scriptedExec{})
	writeFile(t, filepath.Join(h.Home(), ".asdf", "asdf.sh"), "")

	_, err := NewAsdf(h).Activate(context.Background())
	var nf *activation.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Activate() error = %v, want *NotFoundError", err)
	}
	if nf.Tool != "shell" {
		t.Errorf("NotFoundError.Tool = %q, want shell", nf.Tool)
	}
}

func TestAsdf_ToolVersionsPinsRuby(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		stderr: probePayload("3.3.1", false, nil, nil),
	}}}
	h := testHost(t, nil, script,
		WithBaseEnv(func() []string { return []string{"SHELL=/bin/sh"} }))
	writeFile(t, filepath.Join(h.Home(), ".asdf", "asdf.sh"), "")
	writeFile(t, filepath.Join(h.BundleRoot, ".tool-versions"), "nodejs 20.1.0\nruby 3.3.1\n")

	if _, err := NewAsdf(h).Activate(context.Background()); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	line := script.calls[0].args[len(script.calls[0].args)-1]
	if !strings.Contains(line, "ASDF_RUBY_VERSION=3.3.1 asdf exec ruby") {
		t.Errorf("Activate() line = %q, want ASDF_RUBY_VERSION pin", line)
	}
}

func TestMise_PinnedVersionFromConfigFile(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		stderr: probePayload("3.3.1", false, nil, nil),
	}}}
	h := testHost(t, nil, script)
	mise := filepath.Join(h.Home(), ".local", "bin", "mise")
	writeFile(t, mise, "")
	writeFile(t, filepath.Join(h.BundleRoot, ".mise.toml"), "[tools]\nruby = \"3.3.1\"\n")

	if _, err := NewMise(h).Activate(context.Background()); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	call := script.calls[0]
	if call.name != mise || call.args[0] != "x" || call.args[1] != "ruby@3.3.1" {
		t.Fatalf("Activate() call = %+v, want mise x ruby@3.3.1", call)
	}
}

func TestMise_UnpinnedUsesBareTool(t *testing.T) {
	script := &scriptedExec{responses: []execResponse{{
		stderr: probePayload("3.3.1", false, nil, nil),
	}}}
	h := testHost(t, nil, script)
	writeFile(t, filepath.Join(h.Home(), ".local", "bin", "mise"), "")

	if _, err := NewMise(h).Activate(context.Background()); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	if got := script.calls[0].args[1]; got != "ruby" {
		t.Errorf("Activate() tool arg = %q, want bare ruby", got)
	}
}

func TestDevcontainer_ActivateWiresContainerEnvironment(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Manager = config.ManagerDevcontainer
	cfg.Container.Name = "dev"
	h := testHost(t, cfg, nil)

	script := &scriptedExec{responses: []execResponse{
		{stdout: fmt.Sprintf(`[{"Source":%q,"Destination":"/workspaces/app"}]`, h.BundleRoot)},
		{stderr: probePayload("3.3.4", true, map[string]string{
			"PATH":           "/usr/local/bin",
			"GEM_HOME":       "/usr/local/bundle",
			"GEM_PATH":       "/usr/local/bundle",
			"BUNDLE_GEMFILE": "/workspaces/app/Gemfile",
		}, []string{"/usr/local/bundle"})},
	}}

	s := NewDevcontainer(h,
		container.WithLookPath(func(string) (string, error) { return "/usr/bin/docker", nil }),
		container.WithExecCommand(script.containerCommandFunc()))

	res, err := s.Activate(context.Background())
	if err != nil {
		t.Fatalf("Activate() error: %v", err)
	}

	if len(script.calls) != 2 || script.calls[0].args[0] != "inspect" || script.calls[1].args[0] != "exec" {
		t.Fatalf("Activate() calls = %+v, want inspect then exec", script.calls)
	}

	// The work dir is inferred from the inspected mounts.
	execArgs := script.calls[1].args
	if !hasFlagPair(execArgs, "-w", "/workspaces/app") {
		t.Errorf("exec args = %v, want -w /workspaces/app", execArgs)
	}

	// The remote runtime's gemfile pin must not leak into the host result.
	if _, ok := res.Env["BUNDLE_GEMFILE"]; ok {
		t.Error("Activate() kept BUNDLE_GEMFILE from the container environment")
	}
	if res.Env["GEM_HOME"] != "/usr/local/bundle" {
		t.Errorf("Activate() GEM_HOME = %q", res.Env["GEM_HOME"])
	}

	if got := res.Converter.ToRemote(filepath.Join(h.BundleRoot, "Gemfile")); got != "/workspaces/app/Gemfile" {
		t.Errorf("ToRemote() = %q, want the mounted remote path", got)
	}

	wrapped := res.WrapCommand.Wrap(container.ExecCommand{Name: "bundle", Args: []string{"install"}})
	if wrapped.Name != "/usr/bin/docker" {
		t.Fatalf("Wrap() name = %q, want the engine binary", wrapped.Name)
	}
	for _, kv := range []string{"PATH=/usr/local/bin", "GEM_HOME=/usr/local/bundle", "GEM_PATH=/usr/local/bundle"} {
		if !hasFlagPair(wrapped.Args, "-e", kv) {
			t.Errorf("Wrap() args = %v, missing required env %q", wrapped.Args, kv)
		}
	}
}

// hasFlagPair reports whether args contains flag immediately followed by value.
func hasFlagPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestDevcontainer_RequiresContainerName(t *testing.T) {
	h := testHost(t, nil, &scriptedExec{})

	_, err := NewDevcontainer(h).Activate(context.Background())
	var missing *activation.MissingConfigurationError
	if !errors.As(err, &missing) {
		t.Fatalf("Activate() error = %v, want *MissingConfigurationError", err)
	}
	if missing.Setting != "container.name" {
		t.Errorf("MissingConfigurationError.Setting = %q", missing.Setting)
	}
}
