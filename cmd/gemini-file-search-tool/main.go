// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the gemini-file-search-tool CLI.
// Commands manage File Search stores and documents, upload files with a
// local upload-state cache, reconcile pending operations and run queries.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/gemini-file-search-tool/internal/cache"
	"github.com/pdiddy/gemini-file-search-tool/internal/gemini"
	"github.com/pdiddy/gemini-file-search-tool/internal/journal"
	"github.com/pdiddy/gemini-file-search-tool/internal/logging"
	"github.com/pdiddy/gemini-file-search-tool/internal/secrets"
	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Credential sources, relative to the working directory.
const (
	secretsDir = ".secrets"
	dotenvFile = ".env"
)

// logger is built in PersistentPreRunE from -v and --log-file.
var logger = zap.NewNop()

// rootCmd is the base command for the gemini-file-search-tool CLI.
var rootCmd = &cobra.Command{
	Use:   "gemini-file-search-tool",
	Short: "Manage Gemini File Search stores, uploads and queries",
	Long: `gemini-file-search-tool manages Gemini File Search stores from the command line.

Uploads are incremental: a local cache records the content hash, modification
time and remote document of every uploaded file, so unchanged files are skipped
and changed files replace their previous document. Uploads that are still
processing when the command exits are reconciled later with sync-cache.

The API key is read from GOOGLE_API_KEY or GEMINI_API_KEY, a .env file, or
.secrets/google-api-key.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		logger = logging.New(logging.Options{
			Verbosity: verbosity,
			File:      viper.GetString("log_file"),
		})
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Info("using config file", zap.String("path", used))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./gemini-file-search-tool.yaml or ~/.config/gemini-file-search-tool/gemini-file-search-tool.yaml)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().String("cache-dir", "", "upload cache directory (default: ~/.config/gemini-file-search-tool/cache)")
	rootCmd.PersistentFlags().String("log-file", "", "also write JSON logs to this rotating file")

	_ = viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	_ = viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	viper.SetDefault("num_workers", types.DefaultNumWorkers)
	viper.SetDefault("model", types.ModelFlash)
	viper.SetDefault("journal", true)
	viper.SetDefault("base_url", gemini.DefaultBaseURL)
	viper.SetDefault("max_retries", 3)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(cache.AppName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", cache.AppName))
		}
	}

	viper.SetEnvPrefix("GFST")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "warning: reading config: %v\n", err)
		}
	}
}

// toolConfig collects the settings shared by every command.
func toolConfig() (types.ToolConfig, error) {
	cfg := types.ToolConfig{
		Client: types.ClientConfig{
			BaseURL:    viper.GetString("base_url"),
			MaxRetries: viper.GetInt("max_retries"),
			Timeout:    viper.GetDuration("request_timeout"),
		},
		CacheDir:   viper.GetString("cache_dir"),
		LogFile:    viper.GetString("log_file"),
		NumWorkers: viper.GetInt("num_workers"),
	}
	if cfg.CacheDir == "" {
		dir, err := cache.DefaultDir()
		if err != nil {
			return cfg, err
		}
		cfg.CacheDir = dir
	}
	if viper.GetBool("journal") {
		cfg.JournalPath = viper.GetString("journal_path")
		if cfg.JournalPath == "" {
			cfg.JournalPath = filepath.Join(filepath.Dir(cfg.CacheDir), "journal.db")
		}
	}
	return cfg, nil
}

// newClient builds the remote client. Missing credentials are a
// configuration error that aborts the command.
func newClient(cfg types.ClientConfig) (*gemini.Client, error) {
	key, err := secrets.ResolveAPIKey(secretsDir, dotenvFile)
	if err != nil {
		return nil, err
	}
	return gemini.NewClient(key,
		gemini.WithBaseURL(cfg.BaseURL),
		gemini.WithMaxRetries(cfg.MaxRetries),
		gemini.WithTimeout(cfg.Timeout),
		gemini.WithLogger(logger),
	)
}

// openCache opens the upload cache under cfg.CacheDir.
func openCache(cfg types.ToolConfig) *cache.Store {
	return cache.NewStore(cfg.CacheDir, logger)
}

// recordRun writes one run to the journal. Journal failures are logged and
// never fail the command.
func recordRun(cfg types.ToolConfig, run journal.Run, outcomes []journal.Outcome) {
	if cfg.JournalPath == "" {
		return
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Warn("journal unavailable", zap.Error(err))
		return
	}
	defer j.Close()
	id, err := j.Record(context.Background(), run, outcomes)
	if err != nil {
		logger.Warn("recording run", zap.Error(err))
		return
	}
	logger.Info("run recorded", zap.String("run", id), zap.String("kind", string(run.Kind)))
}

// commandContext is cancelled on SIGINT/SIGTERM and, when timeout is
// positive, after timeout.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// workers returns the --num-workers flag when set, else the configured
// default.
func workers(cmd *cobra.Command, cfg types.ToolConfig) int {
	if cmd.Flags().Changed("num-workers") {
		n, _ := cmd.Flags().GetInt("num-workers")
		return n
	}
	return cfg.NumWorkers
}

// storeFlag adds the required --store flag to cmd.
func storeFlag(cmd *cobra.Command) {
	cmd.Flags().String("store", "", "store display name, id or resource name")
	_ = cmd.MarkFlagRequired("store")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
