// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gemini-file-search-tool/internal/httputil"
	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := NewClient("test-key", WithBaseURL(ts.URL), WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("  ")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestListStores_PaginatesAndAuthenticates(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "/v1beta/fileSearchStores", r.URL.Path)
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{"fileSearchStores":[{"name":"fileSearchStores/papers-abc123","displayName":"papers","activeDocumentsCount":"7","sizeBytes":"2048"}],"nextPageToken":"p2"}`)
			return
		}
		assert.Equal(t, "p2", r.URL.Query().Get("pageToken"))
		fmt.Fprint(w, `{"fileSearchStores":[{"name":"fileSearchStores/notes-xyz789","displayName":"notes"}]}`)
	})

	stores, err := c.ListStores(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "papers", stores[0].DisplayName)
	assert.Equal(t, int64(7), stores[0].ActiveDocuments)
	assert.Equal(t, int64(2048), stores[0].SizeBytes)
	assert.Equal(t, "fileSearchStores/notes-xyz789", stores[1].Name)
}

func TestCreateStore_SendsDisplayName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "papers", body["displayName"])
		fmt.Fprint(w, `{"name":"fileSearchStores/papers-abc123","displayName":"papers","createTime":"2026-01-02T03:04:05Z"}`)
	})

	s, err := c.CreateStore(context.Background(), "papers")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/papers-abc123", s.Name)
	assert.Equal(t, 2026, s.CreateTime.Year())
}

func TestUpdateStore_SendsMask(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "displayName", r.URL.Query().Get("updateMask"))
		fmt.Fprint(w, `{"name":"fileSearchStores/papers-abc123","displayName":"renamed"}`)
	})

	s, err := c.UpdateStore(context.Background(), "fileSearchStores/papers-abc123", "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", s.DisplayName)
}

func TestDeleteStore_Force(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1beta/fileSearchStores/papers-abc123", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("force"))
		fmt.Fprint(w, `{}`)
	})
	require.NoError(t, c.DeleteStore(context.Background(), "fileSearchStores/papers-abc123", true))
}

func TestDeleteDocument_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"Document does not exist.","status":"NOT_FOUND"}}`)
	})

	err := c.DeleteDocument(context.Background(), "fileSearchStores/s-1/documents/d-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "Document does not exist.")
}

func TestAPIError_NotFoundOnlyFor404(t *testing.T) {
	err := &APIError{Status: http.StatusBadRequest, Message: "bad"}
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestListDocuments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/fileSearchStores/s-1/documents", r.URL.Path)
		fmt.Fprint(w, `{"documents":[{"name":"fileSearchStores/s-1/documents/d-1","displayName":"/tmp/a.md","state":"STATE_ACTIVE","sizeBytes":"12","customMetadata":[{"key":"title","stringValue":"A"}]}]}`)
	})

	docs, err := c.ListDocuments(context.Background(), "fileSearchStores/s-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "/tmp/a.md", docs[0].DisplayName)
	assert.Equal(t, int64(12), docs[0].SizeBytes)
	assert.Equal(t, []types.CustomMetadata{{Key: "title", StringValue: "A"}}, docs[0].Metadata)
}

func TestGetOperation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/fileSearchStores/s-1/upload/operations/op-1", r.URL.Path)
		fmt.Fprint(w, `{"name":"fileSearchStores/s-1/upload/operations/op-1","done":true,"response":{"@type":"type.googleapis.com/x","documentName":"fileSearchStores/s-1/documents/d-1"}}`)
	})

	op, err := c.GetOperation(context.Background(), "fileSearchStores/s-1/upload/operations/op-1")
	require.NoError(t, err)
	assert.True(t, op.Done)
	assert.False(t, op.Failed())
	assert.Equal(t, "fileSearchStores/s-1/documents/d-1", op.DocumentID())
}

func TestUploadFile_MultipartBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# hello"), 0o644))

	var calls int32
	var mu sync.Mutex
	var boundaries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/upload/v1beta/fileSearchStores/s-1:uploadToFileSearchStore", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)
		mu.Lock()
		boundaries = append(boundaries, params["boundary"])
		mu.Unlock()

		mr := multipart.NewReader(r.Body, params["boundary"])
		metaPart, err := mr.NextPart()
		require.NoError(t, err)
		var meta map[string]any
		require.NoError(t, json.NewDecoder(metaPart).Decode(&meta))
		assert.Equal(t, path, meta["displayName"])
		assert.Equal(t, "text/markdown", meta["mimeType"])
		chunking := meta["chunkingConfig"].(map[string]any)["whiteSpaceConfig"].(map[string]any)
		assert.Equal(t, float64(400), chunking["maxTokensPerChunk"])
		md := meta["customMetadata"].([]any)
		assert.Equal(t, "title", md[0].(map[string]any)["key"])

		filePart, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "text/markdown", filePart.Header.Get("Content-Type"))
		data, err := io.ReadAll(filePart)
		require.NoError(t, err)
		assert.Equal(t, "# hello", string(data))

		// First attempt fails transiently so the body must be replayed.
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"name":"fileSearchStores/s-1/upload/operations/op-1","done":false}`)
	})

	op, err := c.UploadFile(context.Background(), "fileSearchStores/s-1", UploadRequest{
		Path:        path,
		DisplayName: path,
		MimeType:    "text/markdown",
		Metadata:    []types.CustomMetadata{{Key: "title", StringValue: "Notes"}},
		Chunking:    &types.ChunkingConfig{MaxTokensPerChunk: 400, MaxOverlapTokens: 40},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, boundaries, 2)
	assert.Equal(t, boundaries[0], boundaries[1], "a retry replays the same body")
	assert.Equal(t, "fileSearchStores/s-1/upload/operations/op-1", op.Name)
	assert.False(t, op.Done)
}

func TestUploadFile_ContentResemblingBoundary(t *testing.T) {
	content := "intro\r\n--gfst-upload-7b1e4c2a9d\r\nContent-Type: text/plain\r\n\r\ntail\r\n--gfst-upload-7b1e4c2a9d--\r\n"
	path := filepath.Join(t.TempDir(), "tricky.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	var mu sync.Mutex
	var boundaries []string
	var bodies []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)

		mr := multipart.NewReader(r.Body, params["boundary"])
		_, err = mr.NextPart()
		require.NoError(t, err)
		filePart, err := mr.NextPart()
		require.NoError(t, err)
		data, err := io.ReadAll(filePart)
		require.NoError(t, err)
		_, err = mr.NextPart()
		assert.ErrorIs(t, err, io.EOF, "the file is a single part")

		mu.Lock()
		boundaries = append(boundaries, params["boundary"])
		bodies = append(bodies, string(data))
		mu.Unlock()
		fmt.Fprint(w, `{"name":"fileSearchStores/s-1/upload/operations/op-1"}`)
	})

	for range 2 {
		_, err := c.UploadFile(context.Background(), "fileSearchStores/s-1", UploadRequest{Path: path, MimeType: "text/plain"})
		require.NoError(t, err)
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	assert.Equal(t, content, bodies[0])
	assert.Equal(t, content, bodies[1])
	assert.NotEqual(t, boundaries[0], boundaries[1], "each upload draws its own boundary")
}

func TestUploadFile_MissingFile(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.UploadFile(context.Background(), "fileSearchStores/s-1", UploadRequest{Path: "/does/not/exist"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestQueryStore(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-pro:generateContent", r.URL.Path)
		var body GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Tools, 1)
		assert.Equal(t, []string{"fileSearchStores/s-1"}, body.Tools[0].FileSearch.StoreNames)
		assert.Equal(t, `author="x"`, body.Tools[0].FileSearch.MetadataFilter)
		assert.Equal(t, "what is x?", body.Contents[0].Parts[0].Text)
		fmt.Fprint(w, `{
			"candidates":[{"content":{"parts":[{"text":"x is "},{"text":"y"}]},
				"groundingMetadata":{"groundingChunks":[{"retrievedContext":{"title":"a.md","text":"x=y"}}]}}],
			"usageMetadata":{"promptTokenCount":100,"candidatesTokenCount":20,"totalTokenCount":120}}`)
	})

	res, err := c.QueryStore(context.Background(), QueryRequest{
		Store:            "fileSearchStores/s-1",
		Prompt:           "what is x?",
		Model:            types.ModelPro,
		MetadataFilter:   `author="x"`,
		IncludeGrounding: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "x is y", res.ResponseText)
	assert.Equal(t, 120, res.Usage.TotalTokenCount)
	require.NotNil(t, res.Grounding)
	assert.Equal(t, "a.md", res.Grounding.Chunks[0].RetrievedContext.Title)
}

func TestResolveStoreName(t *testing.T) {
	var listCalls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&listCalls, 1)
		fmt.Fprint(w, `{"fileSearchStores":[
			{"name":"fileSearchStores/aws-docs-abc123","displayName":"Amazon"},
			{"name":"fileSearchStores/obsidian-9vy4hvvsiddm","displayName":"obsidian"}]}`)
	})
	ctx := context.Background()

	tests := []struct {
		ref  string
		want string
	}{
		{"fileSearchStores/anything", "fileSearchStores/anything"},
		{"corpora/x", "corpora/x"},
		{"obsidian", "fileSearchStores/obsidian-9vy4hvvsiddm"},
		{"Amazon", "fileSearchStores/aws-docs-abc123"},
		{"aws-docs", "fileSearchStores/aws-docs-abc123"},
		{"other-store-id", "fileSearchStores/other-store-id"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := c.ResolveStoreName(ctx, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c.ResolveStoreName(ctx, "missing")
	var notResolved *ErrStoreNotResolved
	require.ErrorAs(t, err, &notResolved)
	assert.Equal(t, "missing", notResolved.Ref)
	assert.True(t, strings.Contains(err.Error(), "list-stores"))
}

func TestResolveStoreName_ListFailureFallsBack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	got, err := c.ResolveStoreName(context.Background(), "papers")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/papers", got)
}
