package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cloudwego/hertz/pkg/common/hlog"
)

// HertzSlogAdapter routes Hertz framework logs through slog so the whole
// process shares one log sink.
type HertzSlogAdapter struct {
	logger *slog.Logger
	level  hlog.Level
}

// NewHertzSlogAdapter creates a Hertz logger backed by slog.
func NewHertzSlogAdapter(logger *slog.Logger) *HertzSlogAdapter {
	return &HertzSlogAdapter{logger: logger, level: hlog.LevelInfo}
}

func (h *HertzSlogAdapter) log(ctx context.Context, level hlog.Level, msg string) {
	if level < h.level {
		return
	}
	slogLevel := slog.LevelInfo
	switch {
	case level <= hlog.LevelDebug:
		slogLevel = slog.LevelDebug
	case level <= hlog.LevelNotice:
		slogLevel = slog.LevelInfo
	case level == hlog.LevelWarn:
		slogLevel = slog.LevelWarn
	default:
		slogLevel = slog.LevelError
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.logger.Log(ctx, slogLevel, msg)
}

func (h *HertzSlogAdapter) Trace(v ...interface{})  { h.log(nil, hlog.LevelTrace, fmt.Sprint(v...)) }
func (h *HertzSlogAdapter) Debug(v ...interface{})  { h.log(nil, hlog.LevelDebug, fmt.Sprint(v...)) }
func (h *HertzSlogAdapter) Info(v ...interface{})   { h.log(nil, hlog.LevelInfo, fmt.Sprint(v...)) }
func (h *HertzSlogAdapter) Notice(v ...interface{}) { h.log(nil, hlog.LevelNotice, fmt.Sprint(v...)) }
func (h *HertzSlogAdapter) Warn(v ...interface{})   { h.log(nil, hlog.LevelWarn, fmt.Sprint(v...)) }
func (h *HertzSlogAdapter) Error(v ...interface{})  { h.log(nil, hlog.LevelError, fmt.Sprint(v...)) }
func (h *HertzSlogAdapter) Fatal(v ...interface{})  { h.log(nil, hlog.LevelFatal, fmt.Sprint(v...)) }

func (h *HertzSlogAdapter) Tracef(format string, v ...interface{}) {
	h.log(nil, hlog.LevelTrace, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) Debugf(format string, v ...interface{}) {
	h.log(nil, hlog.LevelDebug, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) Infof(format string, v ...interface{}) {
	h.log(nil, hlog.LevelInfo, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) Noticef(format string, v ...interface{}) {
	h.log(nil, hlog.LevelNotice, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) Warnf(format string, v ...interface{}) {
	h.log(nil, hlog.LevelWarn, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) Errorf(format string, v ...interface{}) {
	h.log(nil, hlog.LevelError, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) Fatalf(format string, v ...interface{}) {
	h.log(nil, hlog.LevelFatal, fmt.Sprintf(format, v...))
}

func (h *HertzSlogAdapter) CtxTracef(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelTrace, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) CtxDebugf(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelDebug, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) CtxInfof(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelInfo, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) CtxNoticef(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelNotice, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) CtxWarnf(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelWarn, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) CtxErrorf(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelError, fmt.Sprintf(format, v...))
}
func (h *HertzSlogAdapter) CtxFatalf(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelFatal, fmt.Sprintf(format, v...))
}

// SetLevel sets the minimum level forwarded to slog.
func (h *HertzSlogAdapter) SetLevel(level hlog.Level) {
	h.level = level
}

// SetOutput is a no-op; output is owned by the slog handler.
func (h *HertzSlogAdapter) SetOutput(io.Writer) {}
