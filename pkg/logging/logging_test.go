package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestNewWritesJSONAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := New(Config{Level: "warn", Out: &buf})
	defer closer.Close()

	logger.Info().Msg("hidden")
	logger.Warn().Str("table", "bets").Msg("listview: sort reset")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "bets", entry["table"])
	assert.Contains(t, entry, "time")
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "listview.log")
	var buf bytes.Buffer
	logger, closer := New(Config{File: path, Out: &buf})
	logger.Info().Msg("export finished")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "export finished")
	assert.Contains(t, buf.String(), "export finished")
}

func TestNewConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Console: true, Out: &buf})
	logger.Info().Msg("poll started")
	assert.Contains(t, buf.String(), "poll started")
	assert.NotContains(t, buf.String(), `"message"`)
}
