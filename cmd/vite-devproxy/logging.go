package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogger builds the process logger. Text output is rendered with tint;
// json uses the standard JSON handler. Debug records are dropped unless
// debug is set. A non-empty logFile adds a size-rotated copy of the output.
func setupLogger(format string, debug bool, logFile string) (*slog.Logger, io.Closer) {
	var w io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if logFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		w = io.MultiWriter(os.Stderr, rotating)
		closer = rotating
	}
	return setupLoggerWithWriter(format, debug, logFile != "", w), closer
}

func setupLoggerWithWriter(format string, debug, noColor bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    noColor || os.Getenv("NO_COLOR") != "",
		})
	}
	return slog.New(handler)
}
