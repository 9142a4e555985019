package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nli",
		Short:         "Search the National Library of Israel OpenLibrary API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSearchCmd())
	root.AddCommand(newCountCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
