// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rfls/libspec/internal/config"
	"github.com/rfls/libspec/pkg/types"
)

// newConfigCommand creates the `libspec config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage libspec configuration",
		Long: `Manage libspec configuration.

Configuration is stored in:
  - Linux: ~/.config/libspec/config.cue
  - macOS: ~/Library/Application Support/libspec/config.cue
  - Windows: %APPDATA%\libspec\config.cue

Every key can be overridden with a LIBSPEC_ environment variable, for example
LIBSPEC_GENERATOR_MODE=static or LIBSPEC_LOG_LEVEL=debug.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _, err := config.FilePath(rootFlags.loadOptions())
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App, rootFlags *rootFlagValues) error {
	cfg, err := app.Config.Load(cmd.Context(), rootFlags.loadOptions())
	if err != nil {
		return app.reportIssue(err, types.ExitFailure, rootFlags.verbose)
	}

	path, exists, err := config.FilePath(rootFlags.loadOptions())
	if err != nil {
		return err
	}
	source := path
	if !exists {
		source = "(using defaults)"
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		if cacheDir, err = config.DefaultCacheDir(); err != nil {
			return err
		}
	}

	fmt.Fprintf(app.stdout, "// %s: %s\n", "config file", source)
	fmt.Fprintf(app.stdout, "// %s: %s\n\n", "cache dir", cacheDir)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func initConfig(app *App, rootFlags *rootFlagValues) error {
	path, _, err := config.FilePath(rootFlags.loadOptions())
	if err != nil {
		return err
	}

	created, err := config.CreateDefaultConfig(path)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Config file already exists: %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created config file: %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
