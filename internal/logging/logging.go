// Package logging constructs the service's single zerolog.Logger. The
// logger is built once in main and passed explicitly to every
// constructor that needs it — there is no package-level logger, per the
// no-ambient-globals design note.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a structured logger. In a TTY (local development) it uses
// zerolog's human-readable console writer; otherwise it emits JSON
// lines suitable for ingestion.
func New(level string, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if out == nil {
		out = os.Stdout
	}

	if f, ok := out.(*os.File); ok && isTerminal(f) {
		out = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Caller().Logger()
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
