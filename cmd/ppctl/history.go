package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/portalpilot/internal/store"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		dbPath string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent login runs and their steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				var err error
				if dbPath, err = store.DefaultDBPath(); err != nil {
					return err
				}
			}
			s, err := store.New(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open run journal: %w", err)
			}
			defer s.Close()

			runs, err := loadHistory(s, limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			printHistory(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "number", "n", 10, "Number of runs to show")
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the run journal (default: history.db in the cache directory)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}

func loadHistory(s *store.Store, limit int) ([]store.RunWithSteps, error) {
	runs, err := s.RecentRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]store.RunWithSteps, 0, len(runs))
	for _, r := range runs {
		steps, err := s.RunSteps(r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list steps of run %s: %w", r.ID, err)
		}
		out = append(out, store.RunWithSteps{Run: r, Steps: steps})
	}
	return out, nil
}

func printHistory(w io.Writer, runs []store.RunWithSteps) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range runs {
		status := "ok"
		if r.Run.Error != "" {
			status = "failed"
		} else if r.Run.FinishedAt.IsZero() {
			status = "unfinished"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Run.StartedAt.Local().Format(time.DateTime), r.Run.Username, r.Run.Engine, status, r.Run.ID)
		for _, st := range r.Steps {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t\n", st.Seq, st.Step, st.Outcome, st.Detail)
		}
	}
	tw.Flush()
}

func newReportCommand() *cobra.Command {
	var (
		dir  string
		open bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the latest run report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				var err error
				if dir, err = store.ReportsDir(); err != nil {
					return err
				}
			}
			report, path, err := store.LoadLatestReport(dir)
			if err != nil {
				return err
			}
			if open {
				return browser.OpenFile(path)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", path)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Reports directory (default: runs/ in the cache directory)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the report file instead of printing it")
	return cmd
}
