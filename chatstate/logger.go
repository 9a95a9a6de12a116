package chatstate

import "github.com/rs/zerolog"

// Logger is a minimal logging interface accepted by the SDK.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// noopLogger discards all logs.
type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger wraps a zerolog.Logger so it can be passed to
// Client.SetLogger or Coordinator.SetLogger.
func NewZerologLogger(log zerolog.Logger) Logger {
	return &zerologLogger{log: log}
}

func (l *zerologLogger) Debug(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Info(msg string, fields map[string]any) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, fields map[string]any) {
	l.log.Warn().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Error(msg string, fields map[string]any) {
	l.log.Error().Fields(fields).Msg(msg)
}
