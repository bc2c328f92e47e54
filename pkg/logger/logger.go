// Package logger is the process-wide structured logger used by the ceremony
// commands. Key/value pairs follow the message, slog style.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const EnvProduction = "production"

var log = zerolog.New(ConsoleWriter(os.Stderr)).With().Timestamp().Logger()

// Init configures the global logger. Production emits JSON lines, every other
// environment a human readable console format.
func Init(environment string, debug bool) {
	var w io.Writer = ConsoleWriter(os.Stderr)
	if environment == EnvProduction {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	log = log.Output(w)
}

// ConsoleWriter returns a zerolog console writer.
func ConsoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// With returns a child logger carrying the given fields, for code that logs
// many events about one ceremony.
func With(keyValues ...any) zerolog.Logger {
	ctx := log.With()
	for i := 0; i+1 < len(keyValues); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(keyValues[i]), keyValues[i+1])
	}
	return ctx.Logger()
}

func Debug(msg string, keyValues ...any) {
	withFields(log.Debug(), keyValues).Msg(msg)
}

func Info(msg string, keyValues ...any) {
	withFields(log.Info(), keyValues).Msg(msg)
}

func Warn(msg string, keyValues ...any) {
	withFields(log.Warn(), keyValues).Msg(msg)
}

func Error(msg string, err error, keyValues ...any) {
	withFields(log.Error().Err(err), keyValues).Msg(msg)
}

// Fatal logs and exits the process with status 1.
func Fatal(msg string, err error, keyValues ...any) {
	withFields(log.Fatal().Err(err), keyValues).Msg(msg)
}

func withFields(e *zerolog.Event, keyValues []any) *zerolog.Event {
	for i := 0; i < len(keyValues); i += 2 {
		key := fmt.Sprint(keyValues[i])
		if i+1 == len(keyValues) {
			e = e.Str(key, "(missing)")
			break
		}
		e = e.Interface(key, keyValues[i+1])
	}
	return e
}
