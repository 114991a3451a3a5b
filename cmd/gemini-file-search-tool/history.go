// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdiddy/gemini-file-search-tool/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded upload and sync runs",
	Long: `History lists the runs recorded in the journal, newest first. With --run
it prints the per-file outcomes of one run instead.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("store", "", "only runs against this store resource name")
	historyCmd.Flags().Int("limit", journal.DefaultLimit, "maximum runs to list")
	historyCmd.Flags().String("run", "", "show the outcomes of one run")
	formatFlags(historyCmd)

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	store, _ := cmd.Flags().GetString("store")
	limit, _ := cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("run")

	cfg, err := toolConfig()
	if err != nil {
		return err
	}
	if cfg.JournalPath == "" {
		return errors.New("the journal is disabled (journal: false)")
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := context.Background()
	if runID != "" {
		outcomes, err := j.Outcomes(ctx, runID)
		if err != nil {
			return err
		}
		if format == formatText {
			printOutcomes(os.Stdout, outcomes)
			return nil
		}
		return writeStructured(os.Stdout, format, outcomes)
	}

	runs, err := j.Runs(ctx, store, limit)
	if err != nil {
		return err
	}
	if format == formatText {
		printRuns(os.Stdout, runs)
		return nil
	}
	return writeStructured(os.Stdout, format, runs)
}

func printRuns(w io.Writer, runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-6s  %-14s  %5s  %5s  %6s  %7s  %7s  %s\n",
		"Run", "Kind", "Started", "Total", "OK", "Failed", "Skipped", "Pending", "Store")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-6s  %-14s  %5d  %5d  %6d  %7d  %7d  %s\n",
			r.ID, r.Kind, humanize.Time(r.StartedAt), r.Total, r.OK, r.Failed, r.Skipped, r.Pending, r.Store)
	}
}

func printOutcomes(w io.Writer, outcomes []journal.Outcome) {
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "No outcomes recorded for this run.")
		return
	}
	for _, o := range outcomes {
		fmt.Fprintf(w, "%-9s  %s\n", o.Status, o.Path)
		if o.Error != "" {
			fmt.Fprintf(w, "           %s\n", o.Error)
		}
	}
}
