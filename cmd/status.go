package cmd

import (
	"fmt"

	"github.com/minhvn/lacefarm/internal/adapters/render/dashboard"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last persisted session snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.operator.LoadState(cmd.Context()); err != nil {
				return err
			}

			rendered := app.tableRenderer(app.operator.Sessions(), app.operator.Summarize(), dashboard.RenderOptions{Now: app.now()})
			_, err := fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}
