package observability

import "log/slog"

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlog wraps an slog logger. A nil argument uses slog.Default().
func NewSlog(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(msg string, fields ...Field) { s.l.Debug(msg, attrs(fields)...) }
func (s *SlogLogger) Info(msg string, fields ...Field)  { s.l.Info(msg, attrs(fields)...) }
func (s *SlogLogger) Warn(msg string, fields ...Field)  { s.l.Warn(msg, attrs(fields)...) }
func (s *SlogLogger) Error(msg string, fields ...Field) { s.l.Error(msg, attrs(fields)...) }

func (s *SlogLogger) With(fields ...Field) Logger {
	return &SlogLogger{l: s.l.With(attrs(fields)...)}
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key(), f.Value()))
	}
	return out
}
