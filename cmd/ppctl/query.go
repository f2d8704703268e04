package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/portalpilot/internal/query"
)

func newQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query <file>",
		Short: "Parse a query file and print its leaf fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			q, err := query.Parse(string(src))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, q.String())
			fmt.Fprintln(out)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tKIND\tHINT")
			for _, leaf := range q.Leaves() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", leaf.Path, query.ClassifyHint(leaf.Hint), leaf.Hint)
			}
			return tw.Flush()
		},
	}
}
