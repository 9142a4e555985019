package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/nli-search/internal/domain"
	"github.com/kitbuilder587/nli-search/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		page        int
		allPages    bool
		format      string
		raw         string
		archive     bool
		dumpMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "search [clause] [AND|OR clause]...",
		Short: "Search records, e.g. nli search title=jerusalem AND creator:exact=Agnon",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := queryFromArgs(args, raw)
			if err != nil {
				return err
			}

			req := search.SearchRequest{Query: q, Page: page, AllPages: allPages}
			if err := req.Validate(); err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), appOptions{archive: archive, warnings: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.svc.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			if res.ArchiveErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: archive failed: %v\n", res.ArchiveErr)
			}

			if err := writeRecords(cmd.OutOrStdout(), format, res.Records); err != nil {
				return err
			}
			if dumpMetrics {
				return a.writeMetrics(cmd.ErrOrStderr())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "result page to fetch (default first page)")
	cmd.Flags().BoolVar(&allPages, "all", false, "fetch every result page")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, json or yaml")
	cmd.Flags().StringVar(&raw, "raw", "", "already serialized query, e.g. title,exact,foo,AND;any,contains,bar")
	cmd.Flags().BoolVar(&archive, "archive", false, "store records in the postgres archive (DATABASE_URL)")
	cmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "print collected metrics to stderr")
	cmd.MarkFlagsMutuallyExclusive("page", "all")
	return cmd
}

func queryFromArgs(args []string, raw string) (domain.Encoder, error) {
	if raw != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("%w: use either --raw or clauses", domain.ErrInvalidArgument)
		}
		return domain.RawQuery(raw), nil
	}
	q, err := parseClauses(args)
	if err != nil {
		return nil, err
	}
	return q, nil
}
