package logr

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	tests := []struct {
		name string
		min  slog.Leveler
		log  func(logger logr.Logger)
		want string
	}{
		{
			"info",
			slog.LevelInfo,
			func(logger logr.Logger) {
				logger.Info("something", "foo", "bar")
			},
			"level=INFO msg=something foo=bar\n",
		},
		{
			"error",
			slog.LevelInfo,
			func(logger logr.Logger) {
				logger.Error(errors.New("woops"), "spilt me beer", "foo", "bar")
			},
			"level=ERROR msg=\"spilt me beer\" error=woops foo=bar\n",
		},
		{
			"debug",
			slog.LevelDebug,
			func(logger logr.Logger) {
				logger.V(1).Info("something", "foo", "bar")
			},
			"level=DEBUG msg=something foo=bar\n",
		},
		{
			"hide debug",
			slog.LevelInfo,
			func(logger logr.Logger) {
				logger.V(1).Info("should not see this", "foo", "bar")
			},
			"",
		},
		{
			"with values",
			slog.LevelInfo,
			func(logger logr.Logger) {
				logger.WithValues("component", "store").Info("connected", "db", 0)
			},
			"level=INFO msg=connected component=store db=0\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bytes.Buffer
			logger := logr.New(newLogSink(slog.NewTextHandler(&got, newTestOptions(tt.min))))
			tt.log(logger)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var got bytes.Buffer
		logger, err := New(&Config{Format: "json", Output: &got})
		require.NoError(t, err)
		assert.Equal(t, JSONFormat, logger.Format)

		logger.Info("hello", "key", "color")
		assert.Contains(t, got.String(), `"msg":"hello","key":"color"`)
	})
	t.Run("verbosity", func(t *testing.T) {
		var got bytes.Buffer
		logger, err := New(&Config{Format: "text", Verbosity: 1, Output: &got})
		require.NoError(t, err)

		logger.V(1).Info("debugging")
		assert.Contains(t, got.String(), "level=DEBUG msg=debugging")
	})
	t.Run("unknown format", func(t *testing.T) {
		_, err := New(&Config{Format: "xml"})
		assert.Error(t, err)
	})
}

func newTestOptions(min slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: min,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time.
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}
}
