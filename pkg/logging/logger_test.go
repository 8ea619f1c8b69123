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

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("agri-api", "test", WarnLevel)
	logger.SetOutput(&buf)

	ctx := context.Background()
	logger.Debug(ctx, "[DEBUG] hidden", nil)
	logger.Info(ctx, "[INFO] hidden", nil)
	logger.Warn(ctx, "[WARN] shown", Fields{"crop": "Corn"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "[WARN] shown", entries[0]["message"])
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "agri-api", entries[0]["service"])

	fields, ok := entries[0]["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Corn", fields["crop"])
}

func TestStructuredLogger_ErrorCarriesCallerAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("agri-api", "test", DebugLevel)
	logger.SetOutput(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	logger.Error(ctx, "[FAIL] boom", Fields{}, errors.New("disk full"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0]["request_id"])
	assert.Equal(t, "disk full", entries[0]["error"])
	assert.NotEmpty(t, entries[0]["file"])
	assert.Contains(t, entries[0]["function"], "TestStructuredLogger_ErrorCarriesCallerAndRequestID")
}

func TestContextLogger_MergeFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("agri-api", "test", InfoLevel)
	logger.SetOutput(&buf)

	scoped := logger.WithFields(Fields{"component": "energy", "energy_type": "grid"})
	scoped.Info(context.Background(), "[SCOPED] message", Fields{"energy_type": "solar"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	fields := entries[0]["fields"].(map[string]interface{})
	assert.Equal(t, "energy", fields["component"])
	assert.Equal(t, "solar", fields["energy_type"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"DEBUG":   DebugLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
