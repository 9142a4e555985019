package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/nli-search/internal/search"
)

func newCountCmd() *cobra.Command {
	var raw string

	cmd := &cobra.Command{
		Use:   "count [clause] [AND|OR clause]...",
		Short: "Print the total number of results and pages for a query",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := queryFromArgs(args, raw)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), appOptions{warnings: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.close()

			total, err := a.svc.Count(cmd.Context(), q)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d results, %d pages\n", total, search.PageCount(total))
			return nil
		},
	}

	cmd.Flags().StringVar(&raw, "raw", "", "already serialized query")
	return cmd
}
