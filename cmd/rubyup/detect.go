// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/rubyup/rubyup/internal/issue"
	"github.com/rubyup/rubyup/internal/manager"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Report which version managers are detectable",
	Long: `Run every version manager's pre-flight check against the workspace and
report what was found. Useful for diagnosing why automatic selection picked
(or skipped) a particular manager.`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func runDetect(cc *cobra.Command, _ []string) error {
	vm, err := newVersionManager()
	if err != nil {
		return issue.WrapWithOperation(err, "detect version managers")
	}

	fmt.Println(TitleStyle.Render("Version managers"))
	for _, entry := range vm.DetectAll(cc.Context()) {
		name := ManagerStyle.Render(string(entry.ID))
		switch entry.Result.Kind {
		case manager.DetectionPath:
			fmt.Printf("  %s %s  %s\n", SuccessStyle.Render("✓"), name, VerboseStyle.Render(entry.Result.Path))
		case manager.DetectionSemantic:
			fmt.Printf("  %s %s  %s\n", SuccessStyle.Render("✓"), name, VerboseStyle.Render("on PATH ("+entry.Result.Marker+")"))
		default:
			fmt.Printf("  %s %s\n", SubtitleStyle.Render("✗"), SubtitleStyle.Render(string(entry.ID)))
		}
	}
	return nil
}
