package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the process logger. format "text" selects the console
// writer; anything else writes JSON. Development runs log at debug level.
func Setup(env, format string) zerolog.Logger {
	return New(os.Stderr, env, format)
}

func New(w io.Writer, env, format string) zerolog.Logger {
	if format == "text" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if env == "development" {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("service", "claimcoder").Logger()
}
