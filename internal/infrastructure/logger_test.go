package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartsales/internal/config"
)

func TestInitializeLogger_BothOutputs(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "project.log")
	var console bytes.Buffer

	logger, closeFn, err := newLogger(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "both",
		FilePath: logFile,
	}, &console)
	require.NoError(t, err)

	logger.Info("test message", "key", "value")
	logger.Debug("hidden")
	require.NoError(t, closeFn())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, console.String(), string(content))

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeLogger_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer

	logger, closeFn, err := newLogger(config.LoggingConfig{
		Level:  "debug",
		Format: "text",
		Output: "console",
	}, &console)
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("visible")
	assert.Contains(t, console.String(), "msg=visible")
}

func TestInitializeLogger_FileWithoutPath(t *testing.T) {
	_, _, err := newLogger(config.LoggingConfig{Output: "file"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestTraceHandler_InjectsTraceID(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := newLogger(config.LoggingConfig{Level: "info", Output: "console"}, &console)
	require.NoError(t, err)

	ctx := WithTraceID(context.Background(), "run-42")
	logger.With("component", "test").InfoContext(ctx, "with trace")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(console.Bytes(), &entry))
	assert.Equal(t, "run-42", entry["trace_id"])
	assert.Equal(t, "test", entry["component"])
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in).String())
		})
	}
}

func TestContextWithTraceID(t *testing.T) {
	ctx := ContextWithTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)

	// existing ids are kept
	assert.Equal(t, id, GetTraceID(ContextWithTraceID(ctx)))
	assert.Empty(t, GetTraceID(context.Background()))
}
