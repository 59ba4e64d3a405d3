package logr

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-logr/logr"
)

var _ logr.LogSink = (*logSink)(nil)

// logSink sends logr records to a slog handler, translating v-levels into
// slog levels.
type logSink struct {
	handler slog.Handler
}

func newLogSink(h slog.Handler) *logSink {
	return &logSink{handler: h}
}

func (s *logSink) Init(logr.RuntimeInfo) {}

func (s *logSink) Enabled(level int) bool {
	return s.handler.Enabled(context.Background(), toSlogLevel(level))
}

func (s *logSink) Info(level int, msg string, keysAndValues ...any) {
	r := slog.NewRecord(time.Now(), toSlogLevel(level), msg, 0)
	r.Add(keysAndValues...)
	_ = s.handler.Handle(context.Background(), r)
}

func (s *logSink) Error(err error, msg string, keysAndValues ...any) {
	r := slog.NewRecord(time.Now(), slog.LevelError, msg, 0)
	if err != nil {
		r.AddAttrs(slog.Any("error", err))
	}
	r.Add(keysAndValues...)
	_ = s.handler.Handle(context.Background(), r)
}

func (s *logSink) WithValues(keysAndValues ...any) logr.LogSink {
	r := slog.NewRecord(time.Time{}, 0, "", 0)
	r.Add(keysAndValues...)
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return &logSink{handler: s.handler.WithAttrs(attrs)}
}

func (s *logSink) WithName(name string) logr.LogSink {
	return &logSink{handler: s.handler.WithAttrs([]slog.Attr{slog.String("logger", name)})}
}

// LevelHandler wraps a Handler with an Enabled method
// that returns false for levels below a minimum.
type LevelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

// NewLevelHandler returns a LevelHandler with the given level.
// All methods except Enabled delegate to h.
func NewLevelHandler(level slog.Leveler, h slog.Handler) *LevelHandler {
	// Optimization: avoid chains of LevelHandlers.
	if lh, ok := h.(*LevelHandler); ok {
		h = lh.Handler()
	}
	return &LevelHandler{level, h}
}

// Enabled implements Handler.Enabled by reporting whether
// level is at least as large as h's level.
func (h *LevelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements Handler.Handle.
func (h *LevelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

// WithAttrs implements Handler.WithAttrs.
func (h *LevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewLevelHandler(h.level, h.handler.WithAttrs(attrs))
}

// WithGroup implements Handler.WithGroup.
func (h *LevelHandler) WithGroup(name string) slog.Handler {
	return NewLevelHandler(h.level, h.handler.WithGroup(name))
}

// Handler returns the Handler wrapped by h.
func (h *LevelHandler) Handler() slog.Handler {
	return h.handler
}
