package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the root logger every component derives from. level is one
// of zerolog's named levels (trace through panic, defaulting to info when
// unparseable); format selects "json" output or "pretty" console rendering
// for local development. Components scope themselves off the returned
// logger with With().Str("component", ...).
func Setup(level, format string) zerolog.Logger {
	var writer io.Writer
	switch format {
	case "pretty":
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	default:
		writer = os.Stdout
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(writer).
		With().
		Timestamp().
		Str("service", "eduverge-backend").
		Caller().
		Logger()
}
