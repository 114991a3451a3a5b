// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

const storeID = "fileSearchStores/papers-abc123"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir(), nil)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

// --- Hasher ---

func TestSHA256Hasher(t *testing.T) {
	dir := t.TempDir()
	big := []byte(strings.Repeat("0123456789abcdef", 3*hashChunkSize/16+7))
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"small", []byte("hello")},
		{"spans several chunks", big},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, dir, tt.name, tt.data)
			got, err := SHA256Hasher{}.Hash(p)
			require.NoError(t, err)
			sum := sha256.Sum256(tt.data)
			assert.Equal(t, hex.EncodeToString(sum[:]), got)
		})
	}
}

func TestSHA256Hasher_MissingFile(t *testing.T) {
	_, err := SHA256Hasher{}.Hash(filepath.Join(t.TempDir(), "gone"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// --- Unit naming ---

func TestUnitName_RoundTrip(t *testing.T) {
	ids := []string{
		"fileSearchStores/papers-abc123",
		"papers",
		"a_b",
		"a/b",
		"a__b",
		"a_/b",
		`win\store`,
		"_u_",
	}
	seen := map[string]string{}
	for _, id := range ids {
		name := UnitName(id)
		assert.NotContains(t, name, "/", id)
		assert.NotContains(t, name, `\`, id)
		if prev, ok := seen[name]; ok {
			t.Fatalf("%q and %q both map to %q", prev, id, name)
		}
		seen[name] = id

		back, ok := StoreIDFromUnit(name)
		require.True(t, ok, name)
		assert.Equal(t, id, back)
	}
}

func TestStoreIDFromUnit_Rejects(t *testing.T) {
	for _, name := range []string{"notes.txt", ".json", "bad_x.json", "trailing_.json"} {
		_, ok := StoreIDFromUnit(name)
		assert.False(t, ok, name)
	}
}

// --- Store ---

func TestUpdateThenGet(t *testing.T) {
	s := newTestStore(t)
	path := "/tmp/docs/a.md"

	_, err := s.Update(storeID, path, WithContentHash("h1"), WithModTime(1700000000.5), WithRemoteID("doc-1"))
	require.NoError(t, err)

	got, ok := s.Get(storeID, path)
	require.True(t, ok)
	assert.Equal(t, path, got.Path)
	assert.Equal(t, "h1", got.ContentHash)
	require.NotNil(t, got.ModTime)
	assert.Equal(t, 1700000000.5, *got.ModTime)
	id, ok := got.RemoteID()
	assert.True(t, ok)
	assert.Equal(t, "doc-1", id)
	_, pending := got.PendingOperation()
	assert.False(t, pending)
	assert.Equal(t, s.now(), got.LastUpdated)
}

func TestUpdate_MergesIndependentFields(t *testing.T) {
	s := newTestStore(t)
	path := "/tmp/docs/a.md"

	_, err := s.Update(storeID, path, WithContentHash("h1"), WithModTime(10))
	require.NoError(t, err)
	_, err = s.Update(storeID, path, WithRemoteID("doc-1"))
	require.NoError(t, err)

	got, _ := s.Get(storeID, path)
	assert.Equal(t, "h1", got.ContentHash)
	assert.Equal(t, 10.0, *got.ModTime)
	assert.Equal(t, StatusCompleted, got.Status())
}

func TestUpdate_RemoteIDAndOperationExclusive(t *testing.T) {
	s := newTestStore(t)
	path := "/tmp/docs/a.md"

	_, err := s.Update(storeID, path, WithRemoteID("doc-1"))
	require.NoError(t, err)
	_, err = s.Update(storeID, path, WithOperation(Operation{Name: "op-1"}))
	require.NoError(t, err)

	got, _ := s.Get(storeID, path)
	_, hasID := got.RemoteID()
	op, hasOp := got.PendingOperation()
	assert.False(t, hasID, "pending operation must clear remote id")
	assert.True(t, hasOp)
	assert.Equal(t, "op-1", op.Name)

	_, err = s.Update(storeID, path, WithRemoteID("doc-2"))
	require.NoError(t, err)

	got, _ = s.Get(storeID, path)
	id, hasID := got.RemoteID()
	_, hasOp = got.PendingOperation()
	assert.True(t, hasID)
	assert.False(t, hasOp, "remote id must clear pending operation")
	assert.Equal(t, "doc-2", id)
}

func TestPersistedLayout(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(storeID, "/tmp/a.md", WithContentHash("h1"), WithModTime(12.25), WithRemoteID("doc-1"))
	require.NoError(t, err)
	_, err = s.Update(storeID, "/tmp/b.md", WithOperation(Operation{Name: "op-2", Metadata: map[string]any{"k": "v"}}))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.Dir(), "fileSearchStores__papers-abc123.json"))
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "h1", raw["/tmp/a.md"]["hash"])
	assert.Equal(t, 12.25, raw["/tmp/a.md"]["mtime"])
	assert.Equal(t, "doc-1", raw["/tmp/a.md"]["remote_id"])
	assert.NotContains(t, raw["/tmp/a.md"], "operation")
	assert.Equal(t, "2026-03-01T12:00:00Z", raw["/tmp/a.md"]["last_uploaded"])

	op := raw["/tmp/b.md"]["operation"].(map[string]any)
	assert.Equal(t, "op-2", op["name"])
	assert.Equal(t, false, op["done"])
	assert.NotContains(t, raw["/tmp/b.md"], "remote_id")
}

func TestLoad_CorruptIsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.Dir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), UnitName(storeID)), []byte("{not json"), 0o644))

	assert.Empty(t, s.Load(storeID))

	// The store recovers on the next write.
	_, err := s.Update(storeID, "/tmp/a.md", WithRemoteID("doc-1"))
	require.NoError(t, err)
	assert.Len(t, s.Load(storeID), 1)
}

func TestLoad_MissingIsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "not-created"), nil)
	assert.Empty(t, s.Load(storeID))
	_, ok := s.Get(storeID, "/tmp/a.md")
	assert.False(t, ok)
}

func TestClear_OnlyAffectsOneStore(t *testing.T) {
	s := newTestStore(t)
	other := "fileSearchStores/notes-xyz"
	_, err := s.Update(storeID, "/tmp/a.md", WithRemoteID("doc-1"))
	require.NoError(t, err)
	_, err = s.Update(other, "/tmp/a.md", WithRemoteID("doc-9"))
	require.NoError(t, err)

	require.NoError(t, s.Clear(storeID))
	assert.Empty(t, s.Load(storeID))
	assert.Len(t, s.Load(other), 1)

	// Clearing twice is fine.
	require.NoError(t, s.Clear(storeID))
}

func TestSaveReplacesWholeUnit(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(storeID, "/tmp/a.md", WithRemoteID("doc-1"))
	require.NoError(t, err)

	require.NoError(t, s.Save(storeID, StoreCache{
		"/tmp/b.md": {Path: "/tmp/b.md", Remote: Completed{RemoteID: "doc-2"}},
	}))
	c := s.Load(storeID)
	assert.Len(t, c, 1)
	assert.Contains(t, c, "/tmp/b.md")
}

func TestConcurrentUpdatesKeepEveryWrite(t *testing.T) {
	s := newTestStore(t)
	const n = 40

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Update(storeID, fmt.Sprintf("/tmp/f%02d.md", i), WithRemoteID(fmt.Sprintf("doc-%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Load(storeID), n)
}

func TestUpdateMany(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(storeID, "/tmp/keep.md", WithRemoteID("doc-0"))
	require.NoError(t, err)

	require.NoError(t, s.UpdateMany(storeID, map[string][]Update{
		"/tmp/a.md": {WithRemoteID("doc-1")},
		"/tmp/b.md": {WithOperation(Operation{Name: "op-2"})},
	}))

	c := s.Load(storeID)
	assert.Len(t, c, 3)
	assert.Equal(t, StatusCompleted, c["/tmp/a.md"].Status())
	assert.Equal(t, StatusPending, c["/tmp/b.md"].Status())
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(storeID, "/tmp/a.md", WithRemoteID("doc-1"))
	require.NoError(t, err)
	_, err = s.Update(storeID, "/tmp/b.md", WithRemoteID("doc-2"))
	require.NoError(t, err)

	n, err := s.Remove(storeID, "/tmp/a.md", "/tmp/missing.md")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok := s.Get(storeID, "/tmp/a.md")
	assert.False(t, ok)
	_, ok = s.Get(storeID, "/tmp/b.md")
	assert.True(t, ok)
}

func TestKeyIsAbsolute(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(storeID, "relative/a.md", WithRemoteID("doc-1"))
	require.NoError(t, err)

	abs, err := filepath.Abs("relative/a.md")
	require.NoError(t, err)
	_, ok := s.Load(storeID)[abs]
	assert.True(t, ok)
}

func TestPendingAndStats(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.UpdateMany(storeID, map[string][]Update{
		"/tmp/done.md":    {WithRemoteID("doc-1")},
		"/tmp/waiting.md": {WithOperation(Operation{Name: "op-2"})},
		"/tmp/broken.md":  {WithOperation(Operation{Name: "op-3", Done: true})},
	}))

	assert.Equal(t, Stats{Total: 3, Completed: 1, Pending: 1, Failed: 1}, s.Stats(storeID))

	pending := s.Pending(storeID)
	assert.Len(t, pending, 2)
	assert.Contains(t, pending, "/tmp/waiting.md")
	assert.Contains(t, pending, "/tmp/broken.md")
}

func TestStats_ErrorAndUnknown(t *testing.T) {
	c := StoreCache{
		"/a": {Remote: Pending{Operation: Operation{Name: "op", Done: true, Error: &types.OperationError{Message: "bad"}}}},
		"/b": {ContentHash: "h"},
	}
	assert.Equal(t, Stats{Total: 2, Failed: 1, Unknown: 1}, StatsOf(c))
}

func TestStatus_ErrorBeforeDoneIsPending(t *testing.T) {
	running := FileState{Remote: Pending{Operation: Operation{
		Name:  "op",
		Error: &types.OperationError{Message: "transient"},
	}}}
	assert.Equal(t, StatusPending, running.Status())

	c := StoreCache{"/a": running}
	assert.Equal(t, Stats{Total: 1, Pending: 1}, StatsOf(c))
}

func TestStores(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"fileSearchStores/b-2", "fileSearchStores/a_1"} {
		_, err := s.Update(id, "/tmp/x.md", WithRemoteID("doc"))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "README"), nil, 0o644))

	ids, err := s.Stores()
	require.NoError(t, err)
	assert.Equal(t, []string{"fileSearchStores/a_1", "fileSearchStores/b-2"}, ids)
}

// --- Report ---

func TestBuildReport_Filters(t *testing.T) {
	c := StoreCache{
		"/tmp/done.md":    {Remote: Completed{RemoteID: "doc-1"}},
		"/tmp/waiting.md": {Remote: Pending{Operation: Operation{Name: "op-2"}}},
		"/tmp/broken.md":  {Remote: Pending{Operation: Operation{Name: "op-3", Done: true}}},
		"/tmp/orphan.md":  {ContentHash: "h"},
	}

	files := func(r Report) []string {
		var out []string
		for _, e := range r.Files {
			out = append(out, e.File)
		}
		return out
	}

	assert.Equal(t, []string{"/tmp/waiting.md"}, files(BuildReport(storeID, c, FilterDefault)))
	assert.Equal(t, []string{"/tmp/waiting.md"}, files(BuildReport(storeID, c, FilterPending)))
	assert.Equal(t, []string{"/tmp/done.md"}, files(BuildReport(storeID, c, FilterCompleted)))
	assert.Equal(t, []string{"/tmp/broken.md", "/tmp/done.md", "/tmp/orphan.md", "/tmp/waiting.md"},
		files(BuildReport(storeID, c, FilterAll)))

	errs := BuildReport(storeID, c, FilterErrors)
	require.Len(t, errs.Files, 1)
	assert.Equal(t, "op-3", errs.Files[0].Operation)
	require.NotNil(t, errs.Files[0].Error)
	assert.Equal(t, errDoneWithoutDocument, errs.Files[0].Error.Message)
	assert.Equal(t, Stats{Total: 4, Completed: 1, Pending: 1, Failed: 1, Unknown: 1}, errs.Stats)
}

func TestBuildReport_EmptyHasNoNilFiles(t *testing.T) {
	r := BuildReport(storeID, StoreCache{}, FilterAll)
	assert.NotNil(t, r.Files)
	assert.Zero(t, r.Stats.Total)
}
