// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rfls/libspec/internal/watch"
	"github.com/rfls/libspec/pkg/libdoc"
	"github.com/rfls/libspec/pkg/types"
)

func newWatchCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	folders := &folderFlagValues{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report specification changes until interrupted",
		Long: `Watch the specification locations and print every library that is
added, updated or removed. Runs until interrupted (Ctrl+C).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx, rootFlags)
			if err != nil {
				return app.reportIssue(err, types.ExitFailure, rootFlags.verbose)
			}

			m, err := s.startManager(ctx, *folders, func(res watch.Result) {
				writeResult(app.stdout, res)
			})
			if err != nil {
				return app.reportIssue(err, types.ExitFailure, rootFlags.verbose)
			}
			defer s.stopManager(m)

			fmt.Fprintf(app.stdout, "%s Watching %d location(s) (Ctrl+C to stop)\n",
				CmdStyle.Render("→"), len(m.SpecLocations()))
			for _, loc := range m.SpecLocations() {
				fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render(loc))
			}

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&folders.workspace, "workspace", "w", nil, "add a workspace folder (repeatable)")
	cmd.Flags().StringArrayVarP(&folders.pythonpath, "pythonpath", "p", nil, "add a module search folder (repeatable)")

	return cmd
}

// writeResult prints one line per changed library. Cycles without changes
// print nothing.
func writeResult(w io.Writer, res watch.Result) {
	if !res.Changed() && len(res.Failed) == 0 {
		return
	}
	writeNames(w, SuccessStyle, "+", res.Added)
	writeNames(w, WarningStyle, "~", res.Updated)
	writeNames(w, ErrorStyle, "-", res.Removed)
	for _, path := range res.Failed {
		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("!"), path)
	}
}

func writeNames(w io.Writer, style lipgloss.Style, mark string, names []libdoc.LibraryName) {
	if len(names) == 0 {
		return
	}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	fmt.Fprintf(w, "%s %s\n", style.Render(mark), strings.Join(parts, ", "))
}
