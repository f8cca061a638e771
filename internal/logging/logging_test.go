package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatText, ParseFormat("TEXT"))
	assert.Equal(t, FormatPretty, ParseFormat(""))
}

func TestNew_FileReceivesDebugWhileConsoleFilters(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, closer, err := New(Options{Format: FormatText, Level: slog.LevelInfo, Dir: dir, Console: &console})
	require.NoError(t, err)

	logger.Debug("hidden on console", "path", "blog/a.md")
	logger.Info("visible everywhere")
	require.NoError(t, closer.Close())

	assert.NotContains(t, console.String(), "hidden on console")
	assert.Contains(t, console.String(), "visible everywhere")

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "hidden on console", first["msg"])
	assert.Equal(t, "blog/a.md", first["path"])
}

func TestNew_WithoutDirUsesConsoleOnly(t *testing.T) {
	var console bytes.Buffer

	logger, closer, err := New(Options{Format: FormatJSON, Level: slog.LevelDebug, Console: &console})
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	logger.With("stage", "discover").Debug("walking")
	assert.Contains(t, console.String(), `"stage":"discover"`)
}
