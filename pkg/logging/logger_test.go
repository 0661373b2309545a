package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climatescope-test", "test", WarnLevel)
	logger.SetOutput(&buf)

	ctx := context.Background()
	logger.Debug(ctx, "[TEST] debug", nil)
	logger.Info(ctx, "[TEST] info", nil)
	logger.Warn(ctx, "[TEST] warn", Fields{"rows": 3})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "[TEST] warn", entries[0]["message"])
	assert.Equal(t, "climatescope-test", entries[0]["service"])

	fields, ok := entries[0]["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), fields["rows"])
}

func TestStructuredLogger_RequestIDAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climatescope-test", "test", DebugLevel)
	logger.SetOutput(&buf)

	ctx := WithRequestID(context.Background(), "req-123")
	logger.Error(ctx, "[TEST] failed", Fields{}, errors.New("boom"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0]["request_id"])
	assert.Equal(t, "boom", entries[0]["error"])
	assert.NotEmpty(t, entries[0]["file"])
}

func TestContextLogger_MergesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("climatescope-test", "test", DebugLevel)
	logger.SetOutput(&buf)

	scoped := logger.WithFields(Fields{"component": "loader", "rows": 1})
	scoped.Info(context.Background(), "[TEST] merged", Fields{"rows": 2})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	fields := entries[0]["fields"].(map[string]interface{})
	assert.Equal(t, "loader", fields["component"])
	assert.Equal(t, float64(2), fields["rows"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("anything"))
	assert.Equal(t, "WARN", WarnLevel.String())
}
