// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rubyup/rubyup/internal/activation"
	"github.com/rubyup/rubyup/internal/config"
	"github.com/rubyup/rubyup/internal/issue"
	"github.com/rubyup/rubyup/internal/manager"
	"github.com/rubyup/rubyup/internal/platform"
	"github.com/rubyup/rubyup/internal/procexec"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	activateFormat     string
	activateManager    string
	activateDir        string
	activateAutoTrust  bool
	activateNoFallback bool

	activateCmd = &cobra.Command{
		Use:   "activate",
		Short: "Activate the workspace's Ruby and print its environment",
		Long: `Locate the Ruby runtime this workspace expects, run the environment
probe inside it, and print the activated environment.

The shell format prints export lines suitable for eval:

  eval "$(rubyup activate)"

The json format prints the full activation result for tooling to consume.`,
		Args: cobra.NoArgs,
		RunE: runActivate,
	}
)

func init() {
	activateCmd.Flags().StringVarP(&activateFormat, "format", "f", "shell", "output format: shell or json")
	activateCmd.Flags().StringVarP(&activateManager, "manager", "m", "", "version manager to use (overrides config)")
	activateCmd.Flags().StringVarP(&activateDir, "dir", "d", "", "workspace directory (default: current directory)")
	activateCmd.Flags().BoolVar(&activateAutoTrust, "trust", false, "trust the workspace without prompting if its manager requires it")
	activateCmd.Flags().BoolVar(&activateNoFallback, "no-fallback", false, "fail instead of falling back to an installed Ruby when no version is pinned")
}

func runActivate(cc *cobra.Command, _ []string) error {
	vm, err := newVersionManager()
	if err != nil {
		return err
	}

	res, err := vm.Activate(cc.Context())
	if err != nil {
		renderGuidance(err)
		return &ExitError{Code: 1, Err: issue.NewErrorContext().
			WithOperation("activate ruby runtime").
			WithResource(vm.Host().BundleRoot).
			WithSuggestions(activationSuggestions(err)...).
			Wrap(err).
			BuildError()}
	}

	switch activateFormat {
	case "json":
		return printActivationJSON(res)
	case "shell":
		return printActivationShell(res)
	default:
		return fmt.Errorf("unknown format %q (want shell or json)", activateFormat)
	}
}

// newVersionManager assembles the orchestrator from the CLI's flags and the
// loaded configuration.
func newVersionManager() (*manager.VersionManager, error) {
	cfg := loadedCfg
	if activateManager != "" {
		override := *cfg
		override.Manager = config.ManagerID(activateManager)
		if err := override.Manager.Validate(); err != nil {
			return nil, err
		}
		cfg = &override
	}

	dir := activateDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		dir = wd
	}

	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:  level,
		Prefix: "rubyup",
	})

	host := manager.NewHost(cfg, dir, logger)
	return manager.NewVersionManager(host, cliCallbacks(logger)), nil
}

// activationSuggestions maps typed activation failures to next steps shown
// under the error message.
func activationSuggestions(err error) []string {
	switch {
	case errors.Is(err, activation.ErrUntrustedWorkspace):
		return []string{"re-run with --trust to allow this workspace"}
	case errors.Is(err, activation.ErrVersionFileInvalid):
		return []string{"rewrite the marker with 'rubyup version-file <X.Y.Z>'"}
	case errors.Is(err, activation.ErrNotFound):
		return []string{
			"run 'rubyup detect' to see which version managers are available",
			"pin a version with 'rubyup version-file <X.Y.Z>'",
		}
	case errors.Is(err, activation.ErrMissingConfiguration):
		return []string{"set the missing value in the rubyup config ('rubyup config path' shows where)"}
	default:
		return nil
	}
}

// cliCallbacks adapts the orchestrator's interaction points to a
// non-interactive CLI: trust follows the --trust flag, and the fallback
// offer is either declined (--no-fallback) or accepted immediately.
func cliCallbacks(logger *log.Logger) manager.Callbacks {
	cb := manager.Callbacks{
		ConfirmTrust: func(ctx context.Context, dir string) bool {
			if activateAutoTrust {
				logger.Info("trusting workspace", "dir", dir)
				return true
			}
			logger.Warn("workspace is untrusted; re-run with --trust to allow it", "dir", dir)
			return false
		},
	}
	if activateNoFallback {
		cb.OfferFallback = func(ctx context.Context, offered manager.InstalledRuby, installed []manager.InstalledRuby) <-chan manager.FallbackChoice {
			ch := make(chan manager.FallbackChoice, 1)
			ch <- manager.FallbackChoice{Kind: manager.FallbackCancel}
			return ch
		}
	}
	return cb
}

func printActivationShell(res *activation.Result) error {
	lines, err := shellAssignments(res.Env)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	fmt.Fprintln(os.Stderr, SuccessStyle.Render("✓ ")+"activated Ruby "+ManagerStyle.Render(res.Version))
	return nil
}

// shellAssignments renders the environment as assignment lines for the host
// shell, sorted by key: POSIX export lines, or PowerShell assignments on
// Windows where export syntax means nothing.
func shellAssignments(env map[string]string) ([]string, error) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		if platform.IsWindows() {
			lines = append(lines, fmt.Sprintf("$env:%s = %q", k, env[k]))
			continue
		}
		quoted, err := procexec.QuoteCommandLine([]string{env[k]})
		if err != nil {
			return nil, fmt.Errorf("quoting %s for the shell: %w", k, err)
		}
		lines = append(lines, fmt.Sprintf("export %s=%s", k, quoted))
	}
	return lines, nil
}

func printActivationJSON(res *activation.Result) error {
	payload := struct {
		Version  string            `json:"version"`
		YJIT     bool              `json:"yjit"`
		GemPaths []string          `json:"gemPath"`
		Env      map[string]string `json:"env"`
	}{
		Version:  res.Version,
		YJIT:     res.YJITEnabled,
		GemPaths: res.GemPaths,
		Env:      res.Env,
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding activation result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
