package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestSlogLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *SlogLogger, ctx context.Context)
		level string
	}{
		{"debug", func(l *SlogLogger, ctx context.Context) { l.Debug(ctx, "msg") }, "DEBUG"},
		{"info", func(l *SlogLogger, ctx context.Context) { l.Info(ctx, "msg") }, "INFO"},
		{"warn", func(l *SlogLogger, ctx context.Context) { l.Warn(ctx, "msg") }, "WARN"},
		{"error", func(l *SlogLogger, ctx context.Context) { l.Error(ctx, "msg") }, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufLogger(t)
			tt.log(l, context.Background())
			m := decodeLine(t, buf)
			assert.Equal(t, tt.level, m["level"])
			assert.Equal(t, "msg", m["msg"])
		})
	}
}

func TestSlogLogger_WithAddsFields(t *testing.T) {
	l, buf := newBufLogger(t)
	child := l.With("device_id", "cam-1")
	child.Info(context.Background(), "hello", "k", "v")

	m := decodeLine(t, buf)
	assert.Equal(t, "cam-1", m["device_id"])
	assert.Equal(t, "v", m["k"])
}
