package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options control where log output goes.
type Options struct {
	// Debug lowers the level to debug and enables the file log.
	Debug bool
	// Quiet suppresses the stderr handler. Used by the hook entry point,
	// whose stderr is read by the invoking tool.
	Quiet bool
	// Dir is where the rotating debug log lives.
	Dir string
}

// New builds the process logger: a text handler on stderr plus, in debug
// mode, a rotating JSON file log for diagnosing hook-driven invocations
// after the fact.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var handlers []slog.Handler
	if !opts.Quiet {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	}

	if opts.Debug && opts.Dir != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "chronicle.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		handlers = append(handlers, slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}
