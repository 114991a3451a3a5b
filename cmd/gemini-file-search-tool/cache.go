// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/pdiddy/gemini-file-search-tool/internal/cache"
	"github.com/pdiddy/gemini-file-search-tool/internal/journal"
	"github.com/pdiddy/gemini-file-search-tool/internal/syncer"
	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

var syncCacheCmd = &cobra.Command{
	Use:   "sync-cache",
	Short: "Resolve pending upload operations recorded in the cache",
	Long: `Sync-cache fetches the status of every pending operation in a store's
cache. Finished operations record their document; failed ones are marked so
the next upload retries them; unfinished ones stay pending. All changes are
written to the cache in one batch at the end.`,
	Args: cobra.NoArgs,
	RunE: runSyncCache,
}

var flushCacheCmd = &cobra.Command{
	Use:   "flush-cache",
	Short: "Delete a store's local upload cache",
	Long: `Flush-cache deletes the local cache of one store. The next upload treats
every file as new. Remote documents are not touched.`,
	Args: cobra.NoArgs,
	RunE: runFlushCache,
}

var cacheReportCmd = &cobra.Command{
	Use:   "cache-report",
	Short: "Report cached upload state for a store",
	Long: `Cache-report lists the cached files of a store with summary statistics.
By default only pending operations are listed; use --errors-only,
--completed-only or --all to change the selection.`,
	Args: cobra.NoArgs,
	RunE: runCacheReport,
}

var cacheRemoveCmd = &cobra.Command{
	Use:   "cache-remove FILE...",
	Short: "Forget individual files in a store's cache",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCacheRemove,
}

func init() {
	storeFlag(syncCacheCmd)
	syncCacheCmd.Flags().Int("num-workers", types.DefaultNumWorkers, "concurrent status checks")
	syncCacheCmd.Flags().Bool("no-journal", false, "do not record this run in the journal")
	formatFlags(syncCacheCmd)

	storeFlag(flushCacheCmd)
	flushCacheCmd.Flags().Bool("force", false, "skip the confirmation prompt")

	cacheReportCmd.Flags().String("store", "", "store display name, id or resource name")
	cacheReportCmd.Flags().Bool("all-stores", false, "report every store with a local cache")
	cacheReportCmd.Flags().Bool("pending-only", false, "list pending operations only (default)")
	cacheReportCmd.Flags().Bool("errors-only", false, "list failed operations only")
	cacheReportCmd.Flags().Bool("completed-only", false, "list completed uploads only")
	cacheReportCmd.Flags().Bool("all", false, "list every cached file")
	cacheReportCmd.MarkFlagsMutuallyExclusive("pending-only", "errors-only", "completed-only", "all")
	cacheReportCmd.MarkFlagsMutuallyExclusive("store", "all-stores")
	cacheReportCmd.MarkFlagsOneRequired("store", "all-stores")
	formatFlags(cacheReportCmd)

	storeFlag(cacheRemoveCmd)

	rootCmd.AddCommand(syncCacheCmd, flushCacheCmd, cacheReportCmd, cacheRemoveCmd)
}

func runSyncCache(cmd *cobra.Command, args []string) error {
	started := time.Now()
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	cfg, err := toolConfig()
	if err != nil {
		return err
	}
	if noJournal, _ := cmd.Flags().GetBool("no-journal"); noJournal {
		cfg.JournalPath = ""
	}

	ref, _ := cmd.Flags().GetString("store")
	client, store, done, err := storeCommand(ref)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := commandContext(0)
	defer cancel()

	sum, err := syncer.New(client, openCache(cfg), logger).Sync(ctx, store, syncer.Options{
		Workers: workers(cmd, cfg),
	}, func(r syncer.Result) {
		logger.Debug("operation checked", zap.String("file", r.File), zap.String("status", string(r.Status)))
	})
	if err != nil {
		return err
	}
	if sum.Total == 0 {
		logger.Info("no pending operations", zap.String("store", store))
	} else {
		run, outcomes := journal.FromSync(store, started, sum)
		recordRun(cfg, run, outcomes)
	}

	if format == formatText {
		printSyncSummary(os.Stdout, sum)
		return nil
	}
	return writeStructured(os.Stdout, format, sum)
}

func printSyncSummary(w io.Writer, sum syncer.Summary) {
	fmt.Fprintln(w, "Sync Summary:")
	fmt.Fprintf(w, "  Total operations: %d\n", sum.Total)
	fmt.Fprintf(w, "  Synced:           %d\n", sum.Synced)
	fmt.Fprintf(w, "  Failed:           %d\n", sum.Failed)
	fmt.Fprintf(w, "  Still pending:    %d\n", sum.StillPending)
}

func runFlushCache(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	cfg, err := toolConfig()
	if err != nil {
		return err
	}

	ref, _ := cmd.Flags().GetString("store")
	store, err := localStoreName(ref)
	if err != nil {
		return err
	}

	c := openCache(cfg)
	stats := c.Stats(store)
	if stats.Total == 0 {
		fmt.Fprintf(os.Stdout, "No cache found for store %s\n", store)
		return nil
	}

	if !force {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("refusing to flush without --force: stdin is not a terminal")
		}
		ok, err := confirm(os.Stdin, os.Stderr,
			fmt.Sprintf("Delete the cache of %s (%d files)?", store, stats.Total))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stdout, "Cancelled")
			return nil
		}
	}

	if err := c.Clear(store); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Flushed cache for %s (%d files)\n", store, stats.Total)
	return nil
}

// confirm asks a yes/no question; anything but y or yes is no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// reportFilter reads the cache-report selection flags.
func reportFilter(cmd *cobra.Command) cache.Filter {
	for flag, f := range map[string]cache.Filter{
		"all":            cache.FilterAll,
		"errors-only":    cache.FilterErrors,
		"completed-only": cache.FilterCompleted,
		"pending-only":   cache.FilterPending,
	} {
		if on, _ := cmd.Flags().GetBool(flag); on {
			return f
		}
	}
	return cache.FilterDefault
}

func runCacheReport(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	cfg, err := toolConfig()
	if err != nil {
		return err
	}
	filter := reportFilter(cmd)
	c := openCache(cfg)

	var stores []string
	if all, _ := cmd.Flags().GetBool("all-stores"); all {
		if stores, err = c.Stores(); err != nil {
			return err
		}
	} else {
		ref, _ := cmd.Flags().GetString("store")
		store, err := localStoreName(ref)
		if err != nil {
			return err
		}
		stores = []string{store}
	}

	reports := make([]cache.Report, 0, len(stores))
	for _, s := range stores {
		reports = append(reports, cache.BuildReport(s, c.Load(s), filter))
	}

	if format == formatText {
		for _, r := range reports {
			printReport(os.Stdout, r)
		}
		return nil
	}
	if all, _ := cmd.Flags().GetBool("all-stores"); all {
		return writeStructured(os.Stdout, format, reports)
	}
	return writeStructured(os.Stdout, format, reports[0])
}

func printReport(w io.Writer, r cache.Report) {
	if r.Stats.Total == 0 {
		fmt.Fprintf(w, "No cache found for store %s\n", r.Store)
		return
	}
	fmt.Fprintf(w, "\nCache Report for %s\n", r.Store)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "\nSummary Statistics:")
	fmt.Fprintf(w, "  Total files:        %d\n", r.Stats.Total)
	fmt.Fprintf(w, "  Completed:          %d\n", r.Stats.Completed)
	fmt.Fprintf(w, "  Pending operations: %d\n", r.Stats.Pending)
	fmt.Fprintf(w, "  Failed operations:  %d\n", r.Stats.Failed)
	if r.Stats.Unknown > 0 {
		fmt.Fprintf(w, "  Unknown:            %d\n", r.Stats.Unknown)
	}

	if len(r.Files) == 0 {
		fmt.Fprintln(w, "\nNo files match the selected filter.")
		return
	}
	fmt.Fprintf(w, "\nFiles (%d):\n", len(r.Files))
	for _, f := range r.Files {
		fmt.Fprintf(w, "\n  %s\n", f.File)
		fmt.Fprintf(w, "    Status: %s\n", f.Status)
		if f.RemoteID != "" {
			fmt.Fprintf(w, "    Document: %s\n", f.RemoteID)
		}
		if f.Operation != "" {
			fmt.Fprintf(w, "    Operation: %s\n", f.Operation)
		}
		if f.Error != nil {
			fmt.Fprintf(w, "    Error: %s\n", f.Error.Message)
		}
		if !f.LastUploaded.IsZero() {
			fmt.Fprintf(w, "    Last uploaded: %s\n", humanize.Time(f.LastUploaded))
		}
	}
}

func runCacheRemove(cmd *cobra.Command, args []string) error {
	cfg, err := toolConfig()
	if err != nil {
		return err
	}
	ref, _ := cmd.Flags().GetString("store")
	store, err := localStoreName(ref)
	if err != nil {
		return err
	}

	removed, err := openCache(cfg).Remove(store, args...)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Removed %d of %d file(s) from the cache of %s\n", removed, len(args), store)
	return nil
}
