package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type ZerologAdapter struct {
	logger zerolog.Logger
}

func NewZerolog(writer io.Writer, level LogLevel) *ZerologAdapter {
	logger := zerolog.New(writer).
		Level(toZerologLevel(level)).
		With().
		Timestamp().
		Logger()

	return &ZerologAdapter{logger: logger}
}

func NewConsoleLogger(writer io.Writer, level LogLevel) *ZerologAdapter {
	if writer == nil {
		writer = os.Stdout
	}
	consoleWriter := zerolog.ConsoleWriter{Out: writer, TimeFormat: time.TimeOnly}
	return NewZerolog(consoleWriter, level)
}

// New builds the adapter for the configured output format: "json" writes one
// JSON object per line, anything else uses the human-readable console writer.
func New(format string, writer io.Writer, level LogLevel) *ZerologAdapter {
	if format == "json" {
		if writer == nil {
			writer = os.Stdout
		}
		return NewZerolog(writer, level)
	}
	return NewConsoleLogger(writer, level)
}

func (z *ZerologAdapter) Info(component, message string, fields map[string]interface{}) {
	emit(z.logger.Info(), component, message, fields)
}

func (z *ZerologAdapter) Error(component, message string, err error, fields map[string]interface{}) {
	emit(z.logger.Error().Err(err), component, message, fields)
}

func (z *ZerologAdapter) Warning(component, message string, fields map[string]interface{}) {
	emit(z.logger.Warn(), component, message, fields)
}

func (z *ZerologAdapter) Debug(component, message string, fields map[string]interface{}) {
	emit(z.logger.Debug(), component, message, fields)
}

// emit is a no-op for events below the adapter's level (zerolog hands out a
// nil event).
func emit(event *zerolog.Event, component, message string, fields map[string]interface{}) {
	if event == nil {
		return
	}
	event = event.Str("component", component)
	if len(fields) > 0 {
		event = event.Fields(fields)
	}
	event.Msg(message)
}

func (z *ZerologAdapter) Scoped(level LogLevel) Logger {
	return &ZerologAdapter{logger: z.logger.Level(toZerologLevel(level))}
}

func toZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
