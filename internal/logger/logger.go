package logger

import (
	"fmt"
	"strings"
)

type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger is the structured logging contract shared by services, the feature
// engine and the viewer. Every event carries the emitting component.
type Logger interface {
	Debug(component, message string, fields map[string]interface{})
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component, message string, err error, fields map[string]interface{})

	// Scoped returns a logger writing to the same sink with its own minimum
	// level. It is how noisy collaborators get a quieter logger without
	// touching process-wide state.
	Scoped(level LogLevel) Logger
}

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel accepts debug, info, warn/warning and error.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

type nopLogger struct{}

// NewNop returns a Logger that discards everything.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, string, map[string]interface{})        {}
func (nopLogger) Info(string, string, map[string]interface{})         {}
func (nopLogger) Warning(string, string, map[string]interface{})      {}
func (nopLogger) Error(string, string, error, map[string]interface{}) {}
func (n nopLogger) Scoped(LogLevel) Logger                            { return n }
