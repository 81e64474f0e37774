package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewWithWriterHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", FieldSeason, "2023-24")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "season=2023-24")
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	scoped := NewWithWriter(&buf, "info")
	fallback := NewWithWriter(&bytes.Buffer{}, "info")

	ctx := WithLogger(context.Background(), scoped)
	assert.Same(t, scoped, FromContext(ctx, fallback))
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.NotNil(t, FromContext(context.Background(), nil))

	assert.Equal(t, context.Background(), WithLogger(context.Background(), nil))
}

func TestErrorHelper(t *testing.T) {
	var buf bytes.Buffer
	Error(NewWithWriter(&buf, "info"), "fetch failed", assert.AnError, FieldURL, "/x")

	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), "error=")
	Error(nil, "ignored", assert.AnError)
}

func TestWithCommon(t *testing.T) {
	attrs := WithCommon(nil, "athena", "")
	require.Len(t, attrs, 1)
	assert.Equal(t, FieldService, attrs[0].Key)
}
