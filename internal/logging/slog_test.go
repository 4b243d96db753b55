package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(t *testing.T, level slog.Level) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_WritesEveryLevel(t *testing.T) {
	log, buf := newBufferedLogger(t, slog.LevelDebug)
	ctx := context.Background()

	log.Debug(ctx, "cache miss", "url", "/uploads/a.mp3")
	log.Info(ctx, "media cached", "bytes", 42)
	log.Warn(ctx, "pause ignored", "state", "idle")
	log.Error(ctx, "upload failed", "status", 500)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "msg=\"cache miss\"", "url=/uploads/a.mp3",
		"level=INFO", "bytes=42",
		"level=WARN", "state=idle",
		"level=ERROR", "status=500",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_WithCarriesAttributes(t *testing.T) {
	log, buf := newBufferedLogger(t, slog.LevelInfo)

	log.With("component", "audio", "owner", "post-7").Info(context.Background(), "playing")

	out := buf.String()
	assert.Contains(t, out, "component=audio")
	assert.Contains(t, out, "owner=post-7")
	assert.Contains(t, out, "msg=playing")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew_FileSinkRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	log := New(Options{Level: "warn", File: path})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown", "k", "v")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.False(t, strings.Contains(out, "hidden"))
	assert.Contains(t, out, "msg=shown")
}

func TestNop_DoesNotPanic(t *testing.T) {
	log := Nop()
	ctx := context.TODO()
	log.Debug(ctx, "x")
	log.With("a", 1).Error(ctx, "y")
}
