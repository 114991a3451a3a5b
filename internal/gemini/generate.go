// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

// ErrEmptyResponse is returned when generateContent yields no text.
var ErrEmptyResponse = errors.New("gemini: model returned no text")

// Part is one piece of message content.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content is one message in a generateContent conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// FileSearch points retrieval at one or more stores.
type FileSearch struct {
	StoreNames     []string `json:"fileSearchStoreNames"`
	MetadataFilter string   `json:"metadataFilter,omitempty"`
}

// Tool enables a capability for a generateContent call.
type Tool struct {
	FileSearch *FileSearch `json:"fileSearch,omitempty"`
}

// GenerationConfig tunes sampling.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// GenerateRequest is the body of a generateContent call.
type GenerateRequest struct {
	Contents         []Content         `json:"contents"`
	Tools            []Tool            `json:"tools,omitempty"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// GenerateResponse is the typed result of a generateContent call.
type GenerateResponse struct {
	Text      string
	Usage     types.UsageMetadata
	Grounding *types.GroundingMetadata
}

type generateWire struct {
	Candidates []struct {
		Content struct {
			Parts []Part `json:"parts"`
		} `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				RetrievedContext *types.RetrievedContext `json:"retrievedContext"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// UserText builds a single-turn user message.
func UserText(text string) []Content {
	return []Content{{Role: "user", Parts: []Part{{Text: text}}}}
}

// GenerateContent calls model with req. The text of the first candidate's
// parts is concatenated into GenerateResponse.Text.
func (c *Client) GenerateContent(ctx context.Context, model string, gr GenerateRequest) (GenerateResponse, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, c.resourceURL("models/"+model+":generateContent", nil), gr)
	if err != nil {
		return GenerateResponse{}, err
	}
	var w generateWire
	if err := c.do(ctx, req, &w); err != nil {
		return GenerateResponse{}, fmt.Errorf("generating content with %s: %w", model, err)
	}

	out := GenerateResponse{
		Usage: types.UsageMetadata{
			PromptTokenCount:     w.UsageMetadata.PromptTokenCount,
			CandidatesTokenCount: w.UsageMetadata.CandidatesTokenCount,
			TotalTokenCount:      w.UsageMetadata.TotalTokenCount,
		},
	}
	if len(w.Candidates) == 0 {
		return out, nil
	}
	cand := w.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	out.Text = sb.String()
	if cand.GroundingMetadata != nil {
		g := &types.GroundingMetadata{}
		for _, ch := range cand.GroundingMetadata.GroundingChunks {
			g.Chunks = append(g.Chunks, types.GroundingChunk{RetrievedContext: ch.RetrievedContext})
		}
		out.Grounding = g
	}
	return out, nil
}

// QueryRequest is a RAG query against one store.
type QueryRequest struct {
	Store          string
	Prompt         string
	Model          string
	MetadataFilter string

	// IncludeGrounding copies citation metadata into the result.
	IncludeGrounding bool
}

// QueryStore runs a generateContent call with the File Search tool bound to
// the store and returns the answer with its token usage.
func (c *Client) QueryStore(ctx context.Context, qr QueryRequest) (types.QueryResult, error) {
	model := qr.Model
	if model == "" {
		model = types.ModelFlash
	}
	resp, err := c.GenerateContent(ctx, model, GenerateRequest{
		Contents: UserText(qr.Prompt),
		Tools: []Tool{{FileSearch: &FileSearch{
			StoreNames:     []string{qr.Store},
			MetadataFilter: qr.MetadataFilter,
		}}},
	})
	if err != nil {
		return types.QueryResult{}, err
	}

	usage := resp.Usage
	result := types.QueryResult{
		ResponseText: resp.Text,
		Usage:        &usage,
	}
	if qr.IncludeGrounding {
		result.Grounding = resp.Grounding
	}
	return result, nil
}
