package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]pterm.LogLevel{
		"debug":   pterm.LogLevelDebug,
		" DEBUG ": pterm.LogLevelDebug,
		"info":    pterm.LogLevelInfo,
		"warn":    pterm.LogLevelWarn,
		"warning": pterm.LogLevelWarn,
		"error":   pterm.LogLevelError,
		"":        pterm.LogLevelInfo,
		"verbose": pterm.LogLevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, pterm.LogFormatterJSON, parseFormat("json"))
	assert.Equal(t, pterm.LogFormatterJSON, parseFormat("JSON"))
	assert.Equal(t, pterm.LogFormatterColorful, parseFormat("text"))
	assert.Equal(t, pterm.LogFormatterColorful, parseFormat(""))
}

func TestNewJSONWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Writer: &buf})

	logger.Info("block mined", "index", 1)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "block mined", rec["msg"])
	assert.EqualValues(t, 1, rec["index"])
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "error", Format: "json", Writer: &buf})

	logger.Info("skipped")
	logger.Warn("skipped too")
	assert.Empty(t, buf.String())

	logger.Error("kept")
	assert.Contains(t, buf.String(), "kept")
}
