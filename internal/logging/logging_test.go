// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, LevelFor(0))
	assert.Equal(t, zapcore.WarnLevel, LevelFor(-1))
	assert.Equal(t, zapcore.InfoLevel, LevelFor(1))
	assert.Equal(t, zapcore.DebugLevel, LevelFor(2))
	assert.Equal(t, zapcore.DebugLevel, LevelFor(5))
}

func TestNew_ConsoleRespectsVerbosity(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Verbosity: 0, Console: &buf})
	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, log.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "WARN")
}

func TestNew_FileGetsDebugJSON(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "tool.log")
	log := New(Options{Verbosity: 0, Console: &buf, File: path})
	log.Debug("cache loaded")
	require.NoError(t, log.Sync())

	assert.Empty(t, buf.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"cache loaded"`)
	assert.Contains(t, string(data), `"level":"debug"`)
}
