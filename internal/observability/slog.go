// Package observability provides logging initialization.
package observability

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/jarvisboard/jarvisboard/internal/config"
)

// InitSlog initializes a logger with the given config. When running in a
// terminal, it uses a human-readable text format; otherwise it uses JSON for
// structured logging.
func InitSlog(cfg *config.Config) *slog.Logger {
	return NewLogger(os.Stderr, term.IsTerminal(int(os.Stdin.Fd())), cfg)
}

// NewLogger builds the logger InitSlog uses, writing to w.
func NewLogger(w io.Writer, text bool, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: cfg.DevMode,
		Level:     ToLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// ToLogLevel maps a configured level name to a [slog.Level], defaulting to
// info for unknown names.
func ToLogLevel(lvl string) slog.Level {
	switch lvl {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
