package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"taskflow/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestWithCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	slog.SetDefault(slog.New(newHandler(&buf, config.LogConfig{Level: "debug", Format: "text"})))

	ctx := With(context.Background(), "rid", "r-1")
	ctx = With(ctx, "uid", 7)
	From(ctx).Info("task.create", "task_id", 3)

	out := buf.String()
	assert.Contains(t, out, "msg=task.create")
	assert.Contains(t, out, "rid=r-1")
	assert.Contains(t, out, "uid=7")
	assert.Contains(t, out, "task_id=3")
}

func TestFromWithoutLoggerIsDefault(t *testing.T) {
	assert.Same(t, slog.Default(), From(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
