// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gemini-file-search-tool/internal/cache"
	"github.com/pdiddy/gemini-file-search-tool/internal/secrets"
	"github.com/pdiddy/gemini-file-search-tool/internal/syncer"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yes", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &out, "Delete?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, "Delete? [y/N]: ", out.String())
	}
}

func newFormatCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "x"}
	formatFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestOutputFormat(t *testing.T) {
	f, err := outputFormat(newFormatCmd(t))
	require.NoError(t, err)
	assert.Equal(t, formatJSON, f)

	f, err = outputFormat(newFormatCmd(t, "--format", "yaml"))
	require.NoError(t, err)
	assert.Equal(t, formatYAML, f)

	f, err = outputFormat(newFormatCmd(t, "--text", "--format", "yaml"))
	require.NoError(t, err)
	assert.Equal(t, formatText, f, "--text wins")

	_, err = outputFormat(newFormatCmd(t, "--format", "xml"))
	assert.Error(t, err)
}

func TestWriteStructured(t *testing.T) {
	v := cache.Stats{Total: 3, Completed: 1, Pending: 1, Failed: 1}

	var js bytes.Buffer
	require.NoError(t, writeStructured(&js, formatJSON, v))
	assert.Contains(t, js.String(), `"pending_operations": 1`)

	var ys bytes.Buffer
	require.NoError(t, writeStructured(&ys, formatYAML, v))
	assert.Contains(t, ys.String(), "failed_operations: 1")
}

func TestReportFilter(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	for _, name := range []string{"pending-only", "errors-only", "completed-only", "all"} {
		cmd.Flags().Bool(name, false, "")
	}
	assert.Equal(t, cache.FilterDefault, reportFilter(cmd))

	require.NoError(t, cmd.ParseFlags([]string{"--errors-only"}))
	assert.Equal(t, cache.FilterErrors, reportFilter(cmd))
}

func TestPrintSyncSummary(t *testing.T) {
	var buf bytes.Buffer
	printSyncSummary(&buf, syncer.Summary{Total: 4, Synced: 2, Failed: 1, StillPending: 1})
	out := buf.String()
	assert.Contains(t, out, "Total operations: 4")
	assert.Contains(t, out, "Still pending:    1")
}

func TestPrintReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, cache.Report{Store: "fileSearchStores/docs-1"})
	assert.Equal(t, "No cache found for store fileSearchStores/docs-1\n", buf.String())
}

// withoutAPIKey leaves no API key in the environment, .env or .secrets.
func withoutAPIKey(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Chdir(t.TempDir())
}

func TestLocalStoreName_ResourceNameNeedsNoKey(t *testing.T) {
	withoutAPIKey(t)

	name, err := localStoreName("fileSearchStores/s-1")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/s-1", name)

	_, err = localStoreName("papers")
	assert.ErrorIs(t, err, secrets.ErrMissingAPIKey, "display names still need a lookup")
}

func TestCacheRemove_WorksOffline(t *testing.T) {
	withoutAPIKey(t)
	dir := t.TempDir()
	viper.Set("cache_dir", dir)
	t.Cleanup(func() { viper.Set("cache_dir", "") })

	const store = "fileSearchStores/s-1"
	c := cache.NewStore(dir, nil)
	_, err := c.Update(store, "/tmp/a.md", cache.WithRemoteID("doc-a"))
	require.NoError(t, err)

	cmd := &cobra.Command{}
	cmd.Flags().String("store", "", "")
	require.NoError(t, cmd.Flags().Set("store", store))
	require.NoError(t, runCacheRemove(cmd, []string{"/tmp/a.md"}))

	_, ok := c.Get(store, "/tmp/a.md")
	assert.False(t, ok)
}
