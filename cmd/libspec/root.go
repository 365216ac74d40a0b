// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/rfls/libspec/internal/issue"
	"github.com/rfls/libspec/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "libspec",
		Short: "Look up and cache Robot Framework library specifications",
		Long: TitleStyle.Render("libspec") + SubtitleStyle.Render(" - library specification cache") + `

libspec keeps an in-memory index of library specification files found in the
cache directory, configured spec directories and workspace folders. Missing
specifications are generated on demand with libdoc, or by statically reading
the Python sources when generator.mode is "static".

` + SubtitleStyle.Render("Examples:") + `
  libspec info Collections          Show the keywords of a library
  libspec info mylib -p ./libs      Generate a spec from ./libs when missing
  libspec info mylib -o json        Print the specification as JSON
  libspec names -w .                List libraries known in this workspace
  libspec watch -w .                Report specification changes as they happen
  libspec config show               Show the effective configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/libspec/config.cue)")

	rootCmd.AddCommand(newInfoCommand(app, flags))
	rootCmd.AddCommand(newNamesCommand(app, flags))
	rootCmd.AddCommand(newWatchCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(int(exitStatus(err)))
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

// reportIssue prints the catalogued explanation and suggestions linked from
// err, then wraps err in an ExitError.
func (a *App) reportIssue(err error, code types.ExitCode, verbose bool) error {
	if ae, ok := issue.As(err); ok {
		if iss := ae.CatalogIssue(); iss != nil {
			if rendered, renderErr := iss.Render("notty"); renderErr == nil {
				fmt.Fprint(a.stderr, rendered)
			}
		}
		if ae.HasSuggestions() || verbose {
			fmt.Fprintln(a.stderr, formatErrorForDisplay(err, verbose))
		}
	}
	return &ExitError{Code: code, Err: err}
}
