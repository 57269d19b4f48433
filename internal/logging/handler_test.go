package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orario/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Format: "json", Level: "info"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("index rebuilt", "classes", 42)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "index rebuilt", line["msg"])
	assert.Equal(t, float64(42), line["classes"])
}

func TestNew_AutoOnBufferIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Format: "auto"}, &buf)
	require.NoError(t, err)

	logger.Info("hello")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNew_PrettyWithoutTTYHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Format: "pretty", Level: "debug"}, &buf)
	require.NoError(t, err)

	logger.Debug("document fetched", "bytes", 512)
	out := buf.String()
	assert.Contains(t, out, "document fetched")
	assert.Contains(t, out, "bytes=512")
	assert.NotContains(t, out, "\033[")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.LogConfig{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
