package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger: JSON on stdout, human-readable console
// output and debug level in development.
func New(appEnv string) zerolog.Logger {
	return NewWithWriter(appEnv, os.Stdout)
}

func NewWithWriter(appEnv string, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	l := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "video-generator").
		Logger()

	if appEnv == "development" {
		l = l.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}
	return l
}
