package pdsession

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the minimal leveled logging interface used by the client for
// retry warnings and debug output. Arguments after the message are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// noopLogger discards everything; it is the default so the library stays
// quiet unless a logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// NewSimpleLogger returns a logger that writes human-readable output to
// stderr at debug level, for command line / development use.
func NewSimpleLogger() *ZerologLogger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return &ZerologLogger{
		logger: zerolog.New(writer).Level(zerolog.DebugLevel).With().Timestamp().Logger(),
	}
}

// Debug implements Logger.
func (z *ZerologLogger) Debug(msg string, keysAndValues ...any) {
	emit(z.logger.Debug(), msg, keysAndValues)
}

// Info implements Logger.
func (z *ZerologLogger) Info(msg string, keysAndValues ...any) {
	emit(z.logger.Info(), msg, keysAndValues)
}

// Warn implements Logger.
func (z *ZerologLogger) Warn(msg string, keysAndValues ...any) {
	emit(z.logger.Warn(), msg, keysAndValues)
}

// Error implements Logger.
func (z *ZerologLogger) Error(msg string, keysAndValues ...any) {
	emit(z.logger.Error(), msg, keysAndValues)
}

func emit(event *zerolog.Event, msg string, keysAndValues []any) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		event = event.Interface(key, keysAndValues[i+1])
	}
	event.Msg(msg)
}
