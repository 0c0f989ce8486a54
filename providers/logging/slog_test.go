package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/alecthomas/inject"
	"github.com/alecthomas/inject/providers/logging"
)

func TestNewWriter(t *testing.T) {
	tests := []struct {
		name     string
		config   logging.Config
		expected string
		filtered bool
	}{
		{name: "Text", config: logging.Config{Level: slog.LevelInfo}, expected: "hello"},
		{name: "JSON", config: logging.Config{Level: slog.LevelInfo, JSON: true}, expected: `"msg":"hello","key":"value"`},
		{name: "Filtered", config: logging.Config{Level: slog.LevelError}, filtered: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.NewWriter(&buf, tt.config)
			logger.Info("hello", "key", "value")
			if tt.filtered {
				assert.Equal(t, "", buf.String())
				return
			}
			assert.True(t, strings.Contains(buf.String(), tt.expected), "%s", buf.String())
		})
	}
}

func TestModule(t *testing.T) {
	c := inject.MustNew(inject.WithModules(logging.Module(logging.Config{Level: slog.LevelWarn, JSON: true})))
	logger, err := inject.Get[*slog.Logger](t.Context(), c)
	assert.NoError(t, err)
	again, err := inject.Get[*slog.Logger](t.Context(), c)
	assert.NoError(t, err)
	assert.True(t, logger == again)
	assert.False(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelWarn))

	child := c.NewChild(inject.NewModule("", func(d *inject.Definitions) {
		inject.Value(d, logging.Config{Level: slog.LevelDebug})
	}))
	config, err := inject.Get[logging.Config](t.Context(), child)
	assert.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, config.Level)
}
