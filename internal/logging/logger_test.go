package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("fetch failed", "error", "refused")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "err=refused")
	assert.NotContains(t, out, "error=")
}

func TestNewNop(t *testing.T) {
	assert.False(t, NewNop().Enabled(context.Background(), slog.LevelError))
}
