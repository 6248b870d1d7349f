// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("hotswap", "1.0.0", "json", slog.LevelInfo, &buf)

	logger.Info("test message")

	var entry map[string]any
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err, "Failed to parse JSON: %s", buf.String())

	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "hotswap", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Contains(t, entry, "time", "time field missing")
	assert.Contains(t, entry, "level", "level field missing")
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("hotswap", "1.0.0", "text", slog.LevelInfo, &buf)

	logger.Info("test message")

	output := buf.String()
	assert.Contains(t, output, "test message", "Output missing message")
	assert.Contains(t, output, "service=hotswap", "Output missing service")
}

func TestSetup_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("hotswap", "1.0.0", "json", slog.LevelWarn, &buf)

	logger.Info("dropped")
	logger.Warn("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "kept")
}

func TestSetup_NilLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("hotswap", "1.0.0", "json", nil, &buf)

	logger.Debug("dropped")
	assert.Empty(t, buf.String())
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("hotswap", "1.0.0", "json", slog.LevelInfo, &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced message")

	var entry map[string]any
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err, "Failed to parse JSON")

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_NoTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("hotswap", "1.0.0", "json", slog.LevelInfo, &buf)

	logger.Info("no trace message")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestHandler_WithAttrsKeepsIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("hotswap", "1.0.0", "json", slog.LevelInfo, &buf).
		With("component", "reload").
		WithGroup("plugin")

	logger.Info("scoped", "checksum", "00ff")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hotswap", entry["service"])
	assert.Equal(t, "reload", entry["component"])
	group, ok := entry["plugin"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "00ff", group["checksum"])
}

func TestSetup_DefaultFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("hotswap", "1.0.0", "", slog.LevelInfo, &buf)

	logger.Info("test message")

	var entry map[string]any
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err, "Default format should be JSON")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	logger := SetDefault("test-service", "2.0.0", "json", slog.LevelInfo, &buf)

	assert.Same(t, logger, slog.Default())
	slog.Info("via default")
	assert.Contains(t, buf.String(), `"msg":"via default"`)
}
