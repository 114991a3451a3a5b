// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enhance rewrites a user query with a generation model before it
// is sent to a File Search store.
package enhance

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/gemini-file-search-tool/internal/gemini"
	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

// Sampling settings for the rewrite call.
const (
	temperature     = 0.2
	maxOutputTokens = 2048
)

// Generator is the part of the remote client the enhancer needs.
type Generator interface {
	GenerateContent(ctx context.Context, model string, req gemini.GenerateRequest) (gemini.GenerateResponse, error)
}

// Enhancer rewrites queries with one generateContent call each.
type Enhancer struct {
	gen Generator
	log *zap.Logger
}

// New creates an Enhancer.
func New(gen Generator, log *zap.Logger) *Enhancer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enhancer{gen: gen, log: log}
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := templates[m]; !ok {
		names := make([]string, len(Modes))
		for i, mode := range Modes {
			names[i] = string(mode)
		}
		return "", fmt.Errorf("invalid enhancement mode %q: must be one of %s", s, strings.Join(names, ", "))
	}
	return m, nil
}

// Prompt renders the rewrite prompt for query.
func Prompt(mode Mode, query string) (string, error) {
	tmpl, ok := templates[mode]
	if !ok {
		return "", fmt.Errorf("invalid enhancement mode %q", mode)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, struct{ Query string }{query}); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", mode, err)
	}
	return sb.String(), nil
}

// Enhance rewrites query with model. An empty rewrite is an error wrapping
// gemini.ErrEmptyResponse.
func (e *Enhancer) Enhance(ctx context.Context, query string, mode Mode, model string) (types.Enhancement, error) {
	prompt, err := Prompt(mode, query)
	if err != nil {
		return types.Enhancement{}, err
	}

	temp := temperature
	resp, err := e.gen.GenerateContent(ctx, model, gemini.GenerateRequest{
		Contents: gemini.UserText(prompt),
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:     &temp,
			MaxOutputTokens: maxOutputTokens,
		},
	})
	if err != nil {
		return types.Enhancement{}, fmt.Errorf("enhancing query: %w", err)
	}

	enhanced := strings.TrimSpace(resp.Text)
	if enhanced == "" {
		return types.Enhancement{}, fmt.Errorf("enhancing query (%s, %s): %w", mode, model, gemini.ErrEmptyResponse)
	}
	e.log.Info("query enhanced",
		zap.String("mode", string(mode)),
		zap.Int("original_len", len(query)),
		zap.Int("enhanced_len", len(enhanced)),
		zap.Int("total_tokens", resp.Usage.TotalTokenCount),
	)

	usage := resp.Usage
	return types.Enhancement{
		OriginalQuery: query,
		EnhancedQuery: enhanced,
		Mode:          string(mode),
		Model:         model,
		Usage:         &usage,
	}, nil
}
