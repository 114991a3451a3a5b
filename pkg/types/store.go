// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StorePrefix is the resource-name prefix of every File Search store.
const StorePrefix = "fileSearchStores/"

// Store is a remote File Search store.
type Store struct {
	// Name is the full resource name (e.g. "fileSearchStores/papers-abc123").
	Name string `json:"name" yaml:"name"`

	DisplayName string `json:"display_name" yaml:"display_name"`

	CreateTime time.Time `json:"create_time,omitzero" yaml:"create_time,omitempty"`
	UpdateTime time.Time `json:"update_time,omitzero" yaml:"update_time,omitempty"`

	ActiveDocuments  int64 `json:"active_documents_count,omitempty" yaml:"active_documents_count,omitempty"`
	PendingDocuments int64 `json:"pending_documents_count,omitempty" yaml:"pending_documents_count,omitempty"`
	FailedDocuments  int64 `json:"failed_documents_count,omitempty" yaml:"failed_documents_count,omitempty"`

	SizeBytes int64 `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
}

// Document is one ingested unit within a store.
type Document struct {
	// Name is the full resource name
	// (e.g. "fileSearchStores/papers-abc123/documents/doc-xyz").
	Name string `json:"name" yaml:"name"`

	// DisplayName is the absolute local path the document was uploaded from.
	DisplayName string `json:"display_name" yaml:"display_name"`

	State      string           `json:"state,omitempty" yaml:"state,omitempty"`
	MimeType   string           `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	SizeBytes  int64            `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	UpdateTime time.Time        `json:"update_time,omitzero" yaml:"update_time,omitempty"`
	Metadata   []CustomMetadata `json:"custom_metadata,omitempty" yaml:"custom_metadata,omitempty"`
}
