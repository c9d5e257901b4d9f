// Package logging configures the process-wide structured logger shared by
// every package in the runtime.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu  sync.Mutex
	log zerolog.Logger = newDefault()
)

func newDefault() zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).With().Timestamp().Logger()
}

// Configure swaps the package logger for one writing to w at the given level.
// Pass io.Discard in tests that don't want log noise.
func Configure(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	log = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// L returns the current process-wide logger.
func L() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return &log
}

// For component loggers that want a fixed "component" field, e.g.
// logging.With("coordinator").Info().Msg("match started")
func With(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}
