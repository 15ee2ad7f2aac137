package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf, ServiceName: "nss-api"})

	logger.Debug().Msg("hidden")
	logger.WithOperation("filter").Info().
		Str("filters", `{"sector":"Urban"}`).
		Int("count", 2).
		Bool("ok", true).
		Strs("keys", []string{"sector"}).
		Float64("ratio", 0.5).
		Dur("took", time.Millisecond).
		Err(errors.New("boom")).
		Msg("Filter executed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "nss-api", line["service"])
	assert.Equal(t, "filter", line["operation"])
	assert.Equal(t, `{"sector":"Urban"}`, line["filters"])
	assert.Equal(t, float64(2), line["count"])
	assert.Equal(t, true, line["ok"])
	assert.Equal(t, []any{"sector"}, line["keys"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "Filter executed", line["message"])
}

func TestLogger_WithContextAndSession(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	logger.WithContext(ctx).WithSession("alice").Warn().Msg("Failed to record chat turn")
	logger.WithContext(context.Background()).Debug().Msg("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.Equal(t, "alice", lines[0]["session_id"])
	assert.NotContains(t, lines[1], "request_id")
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Equal(t, "abc", RequestIDFromContext(ContextWithRequestID(context.Background(), "abc")))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestLoggerSourceIsGofmtClean(t *testing.T) {
	src, err := os.ReadFile("logger.go")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(src), "}\n"))
	assert.False(t, strings.HasSuffix(string(src), "\n\n"))
}

func TestNopLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NopLogger().Error().Err(errors.New("x")).Msg("dropped")
	})
}
