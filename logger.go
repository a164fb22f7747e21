package framed

import "log/slog"

// Logger receives lifecycle and error events from Conn and Server as a
// message plus key-value pairs. *slog.Logger satisfies it.
// Framed itself never logs; its errors go back to the caller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultLogger is used when no LoggerOption is given.
func defaultLogger() Logger {
	return slog.Default()
}
