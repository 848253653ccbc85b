package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List available languages and how each one runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.lister.Languages(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMODE")
			for _, l := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.ID, l.DisplayName, a.runner.Catalog().ModeOf(l.ID))
			}
			return w.Flush()
		},
	}
}
