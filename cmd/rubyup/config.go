// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rubyup/rubyup/internal/config"

	"github.com/spf13/cobra"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect rubyup configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg := loadedCfg

	fmt.Println(TitleStyle.Render("rubyup configuration"))
	printSetting("manager", string(cfg.Manager))
	printSetting("bundle_root", orDefault(cfg.BundleRoot, "(workspace root)"))
	printSetting("custom_command", orDefault(cfg.CustomCommand, "(unset)"))
	printSetting("fallback_timeout", cfg.FallbackTimeout().String())
	printSetting("container.engine", string(cfg.Container.Engine))
	printSetting("container.name", orDefault(cfg.Container.Name, "(unset)"))
	printSetting("container.workdir", orDefault(cfg.Container.WorkDir, "(inferred from mounts)"))
	printSetting("verbose", fmt.Sprintf("%v", cfg.Verbose))

	if len(cfg.ManagerPaths) > 0 {
		fmt.Println(SubtitleStyle.Render("  manager_paths:"))
		ids := make([]string, 0, len(cfg.ManagerPaths))
		for id := range cfg.ManagerPaths {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("    %s: %s\n", ManagerStyle.Render(id), cfg.ManagerPaths[id])
		}
	}
	return nil
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		fmt.Println(cfgFile)
		return nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Println(filepath.Join(dir, "config.cue"))
	return nil
}

func printSetting(name, value string) {
	fmt.Printf("  %s: %s\n", SubtitleStyle.Render(name), value)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
