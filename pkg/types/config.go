// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Default chunking parameters. The service applies the same values when no
// chunking config is sent, so uploads only include one when they differ.
const (
	DefaultMaxTokensPerChunk = 200
	DefaultMaxOverlapTokens  = 20
)

// DefaultNumWorkers is the worker count for uploads and syncs. Uploads are
// network-bound; a larger pool mostly buys rate limiting.
const DefaultNumWorkers = 4

// Query models.
const (
	ModelFlash = "gemini-2.5-flash"
	ModelPro   = "gemini-2.5-pro"
)

// ClientConfig holds settings for the remote File Search client.
type ClientConfig struct {
	// BaseURL is the API root (default https://generativelanguage.googleapis.com).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates every request.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout bounds a single HTTP request. Zero means no per-request limit.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of retries for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ChunkingConfig controls how the service splits a document into chunks.
type ChunkingConfig struct {
	MaxTokensPerChunk int `json:"max_tokens_per_chunk" yaml:"max_tokens_per_chunk"`
	MaxOverlapTokens  int `json:"max_overlap_tokens" yaml:"max_overlap_tokens"`
}

// IsDefault reports whether the config matches the service defaults.
func (c ChunkingConfig) IsDefault() bool {
	return c.MaxTokensPerChunk == DefaultMaxTokensPerChunk && c.MaxOverlapTokens == DefaultMaxOverlapTokens
}

// CustomMetadata is one key-value annotation attached to an uploaded document.
type CustomMetadata struct {
	Key         string `json:"key" yaml:"key"`
	StringValue string `json:"stringValue" yaml:"string_value"`
}

// UploadConfig holds settings for one upload run.
type UploadConfig struct {
	// Title, URL and FileName become custom metadata on every uploaded document.
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	FileName string `json:"file_name,omitempty" yaml:"file_name,omitempty"`

	Chunking ChunkingConfig `json:"chunking" yaml:"chunking"`

	// NumWorkers bounds concurrent uploads (default 4).
	NumWorkers int `json:"num_workers" yaml:"num_workers"`

	// SkipValidation disables the size and content checks. Existence is
	// always checked.
	SkipValidation bool `json:"skip_validation" yaml:"skip_validation"`

	// Wait polls each operation until the service reports it done. When
	// false, outcomes are reported as pending and reconciled by a later sync.
	Wait bool `json:"wait" yaml:"wait"`

	// RebuildCache uploads every candidate regardless of cached state.
	RebuildCache bool `json:"rebuild_cache" yaml:"rebuild_cache"`
}

// Metadata returns the custom metadata annotations for the run.
func (c UploadConfig) Metadata() []CustomMetadata {
	var md []CustomMetadata
	if c.Title != "" {
		md = append(md, CustomMetadata{Key: "title", StringValue: c.Title})
	}
	if c.URL != "" {
		md = append(md, CustomMetadata{Key: "url", StringValue: c.URL})
	}
	if c.FileName != "" {
		md = append(md, CustomMetadata{Key: "file_name", StringValue: c.FileName})
	}
	return md
}

// ToolConfig groups the settings read from the config file and environment.
type ToolConfig struct {
	Client ClientConfig `json:"client" yaml:"client"`

	// CacheDir holds one cache file per store.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// JournalPath is the SQLite run journal. Empty disables journaling.
	JournalPath string `json:"journal_path" yaml:"journal_path"`

	// LogFile receives JSON logs in addition to stderr when set.
	LogFile string `json:"log_file,omitempty" yaml:"log_file,omitempty"`

	NumWorkers int `json:"num_workers" yaml:"num_workers"`
}
