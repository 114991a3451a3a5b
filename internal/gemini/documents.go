// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

type documentWire struct {
	Name           string                 `json:"name"`
	DisplayName    string                 `json:"displayName"`
	State          string                 `json:"state"`
	MimeType       string                 `json:"mimeType"`
	SizeBytes      int64String            `json:"sizeBytes"`
	UpdateTime     time.Time              `json:"updateTime"`
	CustomMetadata []types.CustomMetadata `json:"customMetadata"`
}

func (w documentWire) toDocument() types.Document {
	return types.Document{
		Name:        w.Name,
		DisplayName: w.DisplayName,
		State:       w.State,
		MimeType:    w.MimeType,
		SizeBytes:   int64(w.SizeBytes),
		UpdateTime:  w.UpdateTime,
		Metadata:    w.CustomMetadata,
	}
}

// ListDocuments returns every document in a store, following pagination.
func (c *Client) ListDocuments(ctx context.Context, store string) ([]types.Document, error) {
	var docs []types.Document
	pageToken := ""
	for {
		var q url.Values
		if pageToken != "" {
			q = url.Values{"pageToken": {pageToken}}
		}
		req, err := c.newJSONRequest(ctx, http.MethodGet, c.resourceURL(store+"/documents", q), nil)
		if err != nil {
			return nil, err
		}
		var page struct {
			Documents     []documentWire `json:"documents"`
			NextPageToken string         `json:"nextPageToken"`
		}
		if err := c.do(ctx, req, &page); err != nil {
			return nil, fmt.Errorf("listing documents in %s: %w", store, err)
		}
		for _, w := range page.Documents {
			docs = append(docs, w.toDocument())
		}
		if page.NextPageToken == "" {
			return docs, nil
		}
		pageToken = page.NextPageToken
	}
}

// DeleteDocument deletes one document and its chunks. A missing document
// yields an error matching ErrNotFound.
func (c *Client) DeleteDocument(ctx context.Context, name string) error {
	req, err := c.newJSONRequest(ctx, http.MethodDelete, c.resourceURL(name, url.Values{"force": {"true"}}), nil)
	if err != nil {
		return err
	}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("deleting document %s: %w", name, err)
	}
	return nil
}

// GetOperation fetches the current state of an ingestion operation.
func (c *Client) GetOperation(ctx context.Context, name string) (types.Operation, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, c.resourceURL(name, nil), nil)
	if err != nil {
		return types.Operation{}, err
	}
	var op types.Operation
	if err := c.do(ctx, req, &op); err != nil {
		return types.Operation{}, fmt.Errorf("getting operation %s: %w", name, err)
	}
	return op, nil
}

// UploadRequest describes one file to ingest into a store.
type UploadRequest struct {
	// Path is the local file to send.
	Path string

	// DisplayName is recorded on the document; callers use the absolute path.
	DisplayName string

	// MimeType of the file content (default application/octet-stream).
	MimeType string

	Metadata []types.CustomMetadata

	// Chunking is sent only when non-nil.
	Chunking *types.ChunkingConfig
}

type whiteSpaceConfig struct {
	MaxTokensPerChunk int `json:"maxTokensPerChunk"`
	MaxOverlapTokens  int `json:"maxOverlapTokens"`
}

type uploadMetadata struct {
	DisplayName    string                 `json:"displayName,omitempty"`
	MimeType       string                 `json:"mimeType,omitempty"`
	CustomMetadata []types.CustomMetadata `json:"customMetadata,omitempty"`
	ChunkingConfig *struct {
		WhiteSpaceConfig whiteSpaceConfig `json:"whiteSpaceConfig"`
	} `json:"chunkingConfig,omitempty"`
}

// UploadFile sends a file to the store's ingestion endpoint and returns the
// operation handle. The body is streamed from disk as multipart/related and
// re-opened if the request is retried.
func (c *Client) UploadFile(ctx context.Context, store string, ur UploadRequest) (types.Operation, error) {
	if ur.MimeType == "" {
		ur.MimeType = "application/octet-stream"
	}
	meta := uploadMetadata{
		DisplayName:    ur.DisplayName,
		MimeType:       ur.MimeType,
		CustomMetadata: ur.Metadata,
	}
	if ur.Chunking != nil {
		meta.ChunkingConfig = &struct {
			WhiteSpaceConfig whiteSpaceConfig `json:"whiteSpaceConfig"`
		}{whiteSpaceConfig{
			MaxTokensPerChunk: ur.Chunking.MaxTokensPerChunk,
			MaxOverlapTokens:  ur.Chunking.MaxOverlapTokens,
		}}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return types.Operation{}, fmt.Errorf("encoding upload metadata: %w", err)
	}

	// Fail fast on unreadable files rather than inside the body goroutine.
	f, err := os.Open(ur.Path)
	if err != nil {
		return types.Operation{}, fmt.Errorf("opening %s: %w", ur.Path, err)
	}
	f.Close()

	rawURL := c.baseURL + "/upload/" + apiVersion + "/" + store + ":uploadToFileSearchStore?uploadType=multipart"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, nil)
	if err != nil {
		return types.Operation{}, fmt.Errorf("creating request: %w", err)
	}
	// One boundary per upload keeps a retried body byte-identical to the first.
	boundary := "gfst-" + uuid.NewString()
	getBody := multipartBody(boundary, metaJSON, ur.Path, ur.MimeType)
	req.Body, err = getBody()
	if err != nil {
		return types.Operation{}, err
	}
	req.GetBody = getBody
	req.ContentLength = -1
	req.Header.Set("Content-Type", "multipart/related; boundary="+boundary)
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")

	var op types.Operation
	if err := c.do(ctx, req, &op); err != nil {
		return types.Operation{}, fmt.Errorf("uploading %s: %w", ur.Path, err)
	}
	return op, nil
}

// multipartBody returns a body factory that streams the JSON metadata part
// followed by the file content through a pipe, separated by boundary.
func multipartBody(boundary string, meta []byte, path, mimeType string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		pr, pw := io.Pipe()
		go func() {
			defer f.Close()
			pw.CloseWithError(writeMultipart(pw, boundary, meta, f, mimeType))
		}()
		return pr, nil
	}
}

func writeMultipart(w io.Writer, boundary string, meta []byte, content io.Reader, mimeType string) error {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(boundary); err != nil {
		return err
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(meta); err != nil {
		return err
	}

	h = textproto.MIMEHeader{}
	h.Set("Content-Type", mimeType)
	part, err = mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("streaming file content: %w", err)
	}
	return mw.Close()
}
