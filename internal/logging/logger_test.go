package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "nested", "run.log")

	l, err := NewLogger(Config{Level: WARN, OutputFile: path, Console: &console})
	require.NoError(t, err)

	l.slog.Info("hidden")
	l.slog.Warn("chunk skipped", "file", "a.go")
	require.NoError(t, l.Close())

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "chunk skipped")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file=a.go")
	assert.Contains(t, string(data), "app=autodoc")
}

func TestQuietDiscardsConsole(t *testing.T) {
	var console bytes.Buffer
	l, err := NewLogger(Config{Level: DEBUG, Console: &console, Quiet: true})
	require.NoError(t, err)
	l.slog.Error("nope")
	assert.Empty(t, console.String())
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0644))

	l, err := NewLogger(Config{OutputFile: path, MaxSize: 32, Quiet: true})
	require.NoError(t, err)
	defer l.Close()

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
}

func TestInitializeReplacesGlobal(t *testing.T) {
	var first, second bytes.Buffer
	path := filepath.Join(t.TempDir(), "first.log")
	require.NoError(t, Initialize(Config{Level: DEBUG, Console: &first, OutputFile: path}))
	assert.Equal(t, path, GetLogFilePath())

	require.NoError(t, Initialize(Config{Level: INFO, Console: &second}))
	assert.Empty(t, GetLogFilePath())
	defer Close()

	Component("merger").Info("merged", "objects", 3)
	assert.Empty(t, first.String())
	assert.Contains(t, second.String(), "component=merger")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestDefaultConfigPath(t *testing.T) {
	cfg := DefaultConfig("out", false)
	assert.True(t, strings.HasPrefix(filepath.Base(cfg.OutputFile), "autodoc_"))
	assert.Equal(t, "out", filepath.Dir(cfg.OutputFile))
	assert.True(t, cfg.JSONFormat)
}
