// Package obslog wraps zerolog in a small constructor-configured
// logger, threaded explicitly into store/ingest/gc constructors rather
// than used as a package-level global.
package obslog

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/castorfs/castor/pkg/digest"
)

// Logger is the structured logger used throughout castor's core
// packages.
type Logger struct {
	z zerolog.Logger
}

// New returns a Logger writing to w at the given minimum level.
func New(w io.Writer, level zerolog.Level) Logger {
	return Logger{z: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Default returns a Logger writing human-readable output to stderr at
// info level, suitable for the cmd/castor CLI.
func Default() Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stderr}, zerolog.InfoLevel)
}

// Nop returns a Logger that discards everything, for tests and
// callers that don't want log output.
func Nop() Logger {
	return Logger{z: zerolog.Nop()}
}

// Debugf logs a per-object put/get style message.
func (l Logger) Debugf(op string, d digest.Digest, format string, args ...any) {
	l.z.Debug().Str("op", op).Str("digest", d.Hex()).Msgf(format, args...)
}

// Info logs a store/ingest/gc-level summary message.
func (l Logger) Info(op string, fields map[string]any, msg string) {
	ev := l.z.Info().Str("op", op)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// Warn logs a recoverable anomaly: a skipped malformed journal line,
// a dangling reference, an orphaned object root.
func (l Logger) Warn(op, path string, err error) {
	l.z.Warn().Str("op", op).Str("path", path).Err(err).Msg("skipped")
}
