// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rfls/libspec/pkg/types"
)

func newNamesCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	folders := &folderFlagValues{}

	cmd := &cobra.Command{
		Use:   "names",
		Short: "List the known library names",
		Long: `List the names of all libraries with a specification file in the
scanned locations, together with the built-in libraries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.open(ctx, rootFlags)
			if err != nil {
				return app.reportIssue(err, types.ExitFailure, rootFlags.verbose)
			}
			m, err := s.startManager(ctx, *folders, nil)
			if err != nil {
				return app.reportIssue(err, types.ExitFailure, rootFlags.verbose)
			}
			defer s.stopManager(m)

			for _, name := range m.GetLibraryNames() {
				fmt.Fprintln(app.stdout, name)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&folders.workspace, "workspace", "w", nil, "add a workspace folder (repeatable)")
	cmd.Flags().StringArrayVarP(&folders.pythonpath, "pythonpath", "p", nil, "add a module search folder (repeatable)")

	return cmd
}
