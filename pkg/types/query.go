// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// UsageMetadata holds token counts reported for one generateContent call.
type UsageMetadata struct {
	PromptTokenCount     int `json:"prompt_token_count" yaml:"prompt_token_count"`
	CandidatesTokenCount int `json:"candidates_token_count" yaml:"candidates_token_count"`
	TotalTokenCount      int `json:"total_token_count" yaml:"total_token_count"`
}

// RetrievedContext is the source passage behind a grounding chunk.
type RetrievedContext struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
}

// GroundingChunk is one citation backing the generated answer.
type GroundingChunk struct {
	RetrievedContext *RetrievedContext `json:"retrieved_context,omitempty" yaml:"retrieved_context,omitempty"`
}

// GroundingMetadata lists the citations of a RAG answer.
type GroundingMetadata struct {
	Chunks []GroundingChunk `json:"grounding_chunks" yaml:"grounding_chunks"`
}

// CostEstimate is a price estimate for a query's token usage in USD.
type CostEstimate struct {
	InputCostUSD  float64 `json:"input_cost_usd" yaml:"input_cost_usd"`
	OutputCostUSD float64 `json:"output_cost_usd" yaml:"output_cost_usd"`
	TotalCostUSD  float64 `json:"total_cost_usd" yaml:"total_cost_usd"`
	Currency      string  `json:"currency" yaml:"currency"`
	Model         string  `json:"model" yaml:"model"`
	Note          string  `json:"note" yaml:"note"`
}

// Enhancement records how a query was rewritten before retrieval.
type Enhancement struct {
	OriginalQuery string         `json:"original_query" yaml:"original_query"`
	EnhancedQuery string         `json:"enhanced_query" yaml:"enhanced_query"`
	Mode          string         `json:"mode" yaml:"mode"`
	Model         string         `json:"model" yaml:"model"`
	Usage         *UsageMetadata `json:"usage_metadata,omitempty" yaml:"usage_metadata,omitempty"`
}

// QueryResult is the answer to a RAG query.
type QueryResult struct {
	ResponseText  string             `json:"response_text" yaml:"response_text"`
	Usage         *UsageMetadata     `json:"usage_metadata" yaml:"usage_metadata"`
	Grounding     *GroundingMetadata `json:"grounding_metadata,omitempty" yaml:"grounding_metadata,omitempty"`
	EstimatedCost *CostEstimate      `json:"estimated_cost,omitempty" yaml:"estimated_cost,omitempty"`
	Enhancement   *Enhancement       `json:"query_enhancement,omitempty" yaml:"query_enhancement,omitempty"`
}
