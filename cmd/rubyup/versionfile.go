// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/rubyup/rubyup/internal/issue"
	"github.com/rubyup/rubyup/internal/manager"

	"github.com/spf13/cobra"
)

var (
	versionFileDir string

	versionFileCmd = &cobra.Command{
		Use:   "version-file [version]",
		Short: "Show or pin the workspace's Ruby version",
		Long: `With no argument, walk upward from the workspace looking for a
.ruby-version marker and report what it pins.

With a version argument (e.g. "3.3.4" or "truffleruby-21.3.0"), write a
.ruby-version marker so every later activation resolves that runtime.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runVersionFile,
	}
)

func init() {
	versionFileCmd.Flags().StringVarP(&versionFileDir, "dir", "d", "", "directory to read from or write to (default: current directory)")
}

func runVersionFile(_ *cobra.Command, args []string) error {
	dir := versionFileDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		dir = wd
	}

	if len(args) == 0 {
		return showVersionFile(dir)
	}
	return writeVersionFile(dir, args[0])
}

func showVersionFile(dir string) error {
	spec, err := manager.FindVersionFile(dir)
	if err != nil {
		return issue.WrapWithContext(err, "read version file", dir)
	}
	if spec == nil {
		fmt.Println(SubtitleStyle.Render("no .ruby-version found above ") + dir)
		return nil
	}
	fmt.Printf("%s %s\n", ManagerStyle.Render(spec.String()), VerboseStyle.Render("("+spec.File+")"))
	return nil
}

func writeVersionFile(dir, entry string) error {
	spec, ok := manager.ParseVersionSpec(entry)
	if !ok {
		return issue.NewErrorContext().
			WithOperation("pin ruby version").
			WithResource(dir).
			WithSuggestion("use X.Y.Z or engine-X.Y.Z form, e.g. 3.3.4 or truffleruby-21.3.0").
			Wrap(fmt.Errorf("%q is not a valid version entry", entry)).
			BuildError()
	}
	if err := manager.WriteVersionFile(dir, spec); err != nil {
		return issue.WrapWithContext(err, "write version file", dir)
	}
	fmt.Println(SuccessStyle.Render("✓ ") + "pinned Ruby " + ManagerStyle.Render(spec.String()))
	return nil
}
