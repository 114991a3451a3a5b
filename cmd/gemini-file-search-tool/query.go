// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/gemini-file-search-tool/internal/cost"
	"github.com/pdiddy/gemini-file-search-tool/internal/enhance"
	"github.com/pdiddy/gemini-file-search-tool/internal/gemini"
	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a question answered from a store's documents",
	Long: `Query runs one generation call with File Search bound to the store and
prints the answer with its token usage as JSON.

--enhance-mode first rewrites the prompt for retrieval with one extra call
(generic, code-rag or obsidian). --show-cost adds a price estimate for the
query's token usage.`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	storeFlag(queryCmd)
	queryCmd.Flags().String("prompt", "", "question to ask")
	_ = queryCmd.MarkFlagRequired("prompt")
	queryCmd.Flags().Bool("pro", false, "use "+types.ModelPro+" instead of the default model")
	queryCmd.Flags().String("metadata-filter", "", "filter on document custom metadata")
	queryCmd.Flags().Bool("query-grounding-metadata", false, "include the citations behind the answer")
	queryCmd.Flags().Bool("show-cost", false, "include an estimated cost")
	queryCmd.Flags().String("enhance-mode", "", "rewrite the prompt before retrieval: generic, code-rag or obsidian")
	queryCmd.Flags().Bool("show-enhancement", false, "include the rewritten prompt and its usage")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	prompt, _ := cmd.Flags().GetString("prompt")
	pro, _ := cmd.Flags().GetBool("pro")
	filter, _ := cmd.Flags().GetString("metadata-filter")
	grounding, _ := cmd.Flags().GetBool("query-grounding-metadata")
	showCost, _ := cmd.Flags().GetBool("show-cost")
	modeName, _ := cmd.Flags().GetString("enhance-mode")
	showEnhancement, _ := cmd.Flags().GetBool("show-enhancement")

	var mode enhance.Mode
	if modeName != "" {
		m, err := enhance.ParseMode(modeName)
		if err != nil {
			return err
		}
		mode = m
	}

	model := viper.GetString("model")
	if pro {
		model = types.ModelPro
	}

	ref, _ := cmd.Flags().GetString("store")
	client, store, done, err := storeCommand(ref)
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := commandContext(0)
	defer cancel()

	var enhancement *types.Enhancement
	if mode != "" {
		e, err := enhance.New(client, logger).Enhance(ctx, prompt, mode, model)
		if err != nil {
			return err
		}
		logger.Info("using enhanced prompt", zap.String("prompt", e.EnhancedQuery))
		prompt = e.EnhancedQuery
		enhancement = &e
	}

	result, err := client.QueryStore(ctx, gemini.QueryRequest{
		Store:            store,
		Prompt:           prompt,
		Model:            model,
		MetadataFilter:   filter,
		IncludeGrounding: grounding,
	})
	if err != nil {
		return err
	}
	if u := result.Usage; u != nil {
		logger.Info("token usage",
			zap.Int("prompt", u.PromptTokenCount),
			zap.Int("candidates", u.CandidatesTokenCount),
			zap.Int("total", u.TotalTokenCount),
		)
	}

	if showCost {
		estimate, err := cost.Estimate(result.Usage, model)
		if err != nil {
			return err
		}
		if estimate == nil {
			logger.Warn("cost estimation unavailable: no usage metadata")
		}
		result.EstimatedCost = estimate
	}
	if showEnhancement {
		result.Enhancement = enhancement
	}
	return writeJSON(os.Stdout, result)
}
