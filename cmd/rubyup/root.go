// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rubyup/rubyup/internal/config"
	"github.com/rubyup/rubyup/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// loadedCfg is the configuration resolved by initRootConfig. Never nil
	// after initialization; config load failures fall back to defaults.
	loadedCfg = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "rubyup",
		Short: "Activate the right Ruby runtime for a workspace",
		Long: TitleStyle.Render("rubyup") + SubtitleStyle.Render(" - Ruby runtime activation for development tooling") + `

rubyup locates the Ruby your workspace expects — through chruby, rbenv,
asdf, mise, rvm, shadowenv, a custom command, the system Ruby, or a
running devcontainer — runs an environment probe inside it, and prints
the activated environment for editors, language servers, and debuggers
to consume.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Pin a version:        rubyup version-file 3.3.4
  2. Activate:             rubyup activate
  3. See what's installed: rubyup detect

` + SubtitleStyle.Render("Examples:") + `
  rubyup activate                     Print export lines for the shell
  rubyup activate --format json       Machine-readable activation result
  rubyup detect                       Report every detectable manager
  rubyup config show                  Show current configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/rubyup/config.cue)")

	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(versionFileCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads in the config file if present.
func initRootConfig() {
	cfg, err := config.Load(config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		// Config loading errors are always surfaced; defaults still apply.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return
	}
	loadedCfg = cfg

	if !verbose {
		verbose = cfg.Verbose
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderGuidance prints the remediation card for a typed activation failure,
// when the catalog has one.
func renderGuidance(err error) {
	entry := issue.ForError(err)
	if entry == nil {
		return
	}
	if rendered, renderErr := entry.Render("dark"); renderErr == nil {
		fmt.Fprintln(os.Stderr, rendered)
	}
}
