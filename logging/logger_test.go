package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

	l.WithComponent("relay").WithSession("sess-1").Info("fetch completed", "items", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "fetch completed", rec["msg"])
	assert.Equal(t, "relay", rec["component"])
	assert.Equal(t, "sess-1", rec["session_id"])
	assert.Equal(t, float64(3), rec["items"])
}

func TestRelayLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: slog.LevelWarn, Format: "json", Output: &buf})

	l.Debug("dropped")
	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestRelayLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: slog.LevelInfo, Format: "text", Output: &buf})

	l.WithComponent("server").Info("listening", "addr", ":8080")
	assert.Contains(t, buf.String(), "component=server")
	assert.Contains(t, buf.String(), "addr=:8080")
}
