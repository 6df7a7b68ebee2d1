package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/tve/meshclock"
)

// newLogger builds a tint-backed slog.Logger the same way gnmi-writer's
// newLogger does: leveled, timestamped, colorized console output.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level}))
}

// asLogPrintf adapts a slog.Logger into meshclock.LogPrintf's hook shape, the
// "two-line shim" the design calls for: the core keeps using its own
// LogPrintf-style hook, the process gets structured output.
func asLogPrintf(log *slog.Logger) meshclock.LogPrintf {
	return func(format string, v ...interface{}) {
		log.Info(fmt.Sprintf(format, v...))
	}
}
