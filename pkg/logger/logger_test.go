package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "json", slog.LevelInfo)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("render done", "page", 3)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"render done"`)
	assert.Contains(t, buf.String(), `"page":3`)
}

func TestNewInvalidFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", slog.LevelInfo)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = parseLevel("loud")
	assert.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	logger, err := New(&buf, "text", slog.LevelInfo)
	require.NoError(t, err)

	ctx := WithContext(context.Background(), logger)
	FromContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
