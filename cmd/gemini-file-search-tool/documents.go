// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/gemini-file-search-tool/internal/cache"
	"github.com/pdiddy/gemini-file-search-tool/internal/files"
	"github.com/pdiddy/gemini-file-search-tool/internal/journal"
	"github.com/pdiddy/gemini-file-search-tool/internal/progress"
	"github.com/pdiddy/gemini-file-search-tool/internal/upload"
	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

const skipReason = "already uploaded (content unchanged)"

var listDocumentsCmd = &cobra.Command{
	Use:   "list-documents",
	Short: "List the documents in a store",
	Args:  cobra.NoArgs,
	RunE:  runListDocuments,
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE_OR_GLOB...",
	Short: "Upload files to a store, skipping unchanged files",
	Long: `Upload expands each argument (environment variables, ~, and glob patterns
including **) into candidate files and uploads them to a store.

Built-in skip rules drop VCS, virtualenv, cache and build directories and
compiled files; the nearest .gitignore is honoured unless --ignore-gitignore
is given.

Each candidate is checked against the local cache: files with an unchanged
modification time or content are skipped, changed files replace their
previous document, and new files are uploaded. Every finished file is written
to the cache immediately. With --no-wait uploads are recorded as pending and
reconciled later with sync-cache.

The command exits non-zero when every attempted upload failed and nothing was
skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	storeFlag(listDocumentsCmd)

	storeFlag(uploadCmd)
	uploadCmd.Flags().String("title", "", "title metadata for every uploaded document")
	uploadCmd.Flags().String("url", "", "url metadata for every uploaded document")
	uploadCmd.Flags().String("file-name", "", "file_name metadata for every uploaded document")
	uploadCmd.Flags().Int("max-tokens", types.DefaultMaxTokensPerChunk, "maximum tokens per chunk")
	uploadCmd.Flags().Int("max-overlap", types.DefaultMaxOverlapTokens, "overlapping tokens between chunks")
	uploadCmd.Flags().Int("num-workers", types.DefaultNumWorkers, "concurrent uploads")
	uploadCmd.Flags().Bool("skip-validation", false, "skip size and content checks")
	uploadCmd.Flags().Bool("ignore-gitignore", false, "do not apply .gitignore patterns")
	uploadCmd.Flags().Bool("dry-run", false, "list the candidate files and exit")
	uploadCmd.Flags().Bool("rebuild-cache", false, "upload every candidate regardless of the cache")
	uploadCmd.Flags().Bool("no-wait", false, "do not wait for processing; record uploads as pending")
	uploadCmd.Flags().Duration("timeout", 0, "bound the whole run (0 = no limit)")
	uploadCmd.Flags().Bool("no-journal", false, "do not record this run in the journal")

	rootCmd.AddCommand(listDocumentsCmd, uploadCmd)
}

func runListDocuments(cmd *cobra.Command, args []string) error {
	ref, _ := cmd.Flags().GetString("store")
	client, name, done, err := storeCommand(ref)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := commandContext(0)
	defer cancel()
	docs, err := client.ListDocuments(ctx, name)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, docs)
}

// uploadConfig reads the upload flags.
func uploadConfig(cmd *cobra.Command, cfg types.ToolConfig) types.UploadConfig {
	var uc types.UploadConfig
	uc.Title, _ = cmd.Flags().GetString("title")
	uc.URL, _ = cmd.Flags().GetString("url")
	uc.FileName, _ = cmd.Flags().GetString("file-name")
	uc.Chunking.MaxTokensPerChunk, _ = cmd.Flags().GetInt("max-tokens")
	uc.Chunking.MaxOverlapTokens, _ = cmd.Flags().GetInt("max-overlap")
	uc.SkipValidation, _ = cmd.Flags().GetBool("skip-validation")
	uc.RebuildCache, _ = cmd.Flags().GetBool("rebuild-cache")
	noWait, _ := cmd.Flags().GetBool("no-wait")
	uc.Wait = !noWait
	uc.NumWorkers = workers(cmd, cfg)
	return uc
}

func runUpload(cmd *cobra.Command, args []string) error {
	started := time.Now()
	cfg, err := toolConfig()
	if err != nil {
		return err
	}
	uc := uploadConfig(cmd, cfg)
	ignoreGitignore, _ := cmd.Flags().GetBool("ignore-gitignore")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if noJournal, _ := cmd.Flags().GetBool("no-journal"); noJournal {
		cfg.JournalPath = ""
	}

	paths, err := files.Expander{IgnoreGitignore: ignoreGitignore, Log: logger}.Expand(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files matched %v", args)
	}
	logger.Info("candidates expanded", zap.Int("files", len(paths)))
	if dryRun {
		return writeJSON(os.Stdout, files.Describe(paths))
	}

	ref, _ := cmd.Flags().GetString("store")
	client, store, done, err := storeCommand(ref)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := commandContext(timeout)
	defer cancel()

	hasher := cache.SHA256Hasher{}
	stateCache := openCache(cfg)
	plan := upload.NewReconciler(stateCache, hasher, logger).Classify(store, paths, uc.RebuildCache)
	logger.Info("upload plan",
		zap.Int("new", len(plan.ToUpload)),
		zap.Int("update", len(plan.ToUpdate)),
		zap.Int("skip", len(plan.ToSkip)),
		zap.Int("dropped", len(plan.Dropped)),
	)

	var res upload.Result
	for _, p := range plan.ToSkip {
		res.Add(upload.Outcome{File: p, Status: upload.StatusSkipped, Reason: skipReason})
	}

	jobs := plan.Jobs(ctx, client, logger)
	if len(jobs) > 0 {
		bar := progress.New(os.Stderr, len(jobs), progress.IsTerminal(os.Stderr))
		batch := upload.NewDriver(client, stateCache, hasher, logger).Run(ctx, store, jobs, upload.Options{
			Workers:        uc.NumWorkers,
			Wait:           uc.Wait,
			SkipValidation: uc.SkipValidation,
			Metadata:       uc.Metadata(),
			Chunking:       uc.Chunking,
		}, bar.Send)
		counts := bar.Close()
		logger.Info("upload finished",
			zap.Int("new", counts.New),
			zap.Int("updated", counts.Updated),
			zap.Int("pending", counts.Pending),
			zap.Int("failed", counts.Failed),
			zap.Int("skipped", counts.Skipped),
		)
		for _, o := range batch.Outcomes {
			res.Add(o)
		}
	}
	if res.Outcomes == nil {
		res.Outcomes = []upload.Outcome{}
	}

	run, outcomes := journal.FromUpload(store, started, res)
	recordRun(cfg, run, outcomes)

	if err := writeJSON(os.Stdout, res); err != nil {
		return err
	}
	if res.AllFailed() {
		return fmt.Errorf("all %d upload(s) failed", res.Failed+res.Errored)
	}
	return nil
}
