//go:build linux || darwin

package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/Zereker/framed"
)

// zerologLogger adapts zerolog to framed.Logger.
type zerologLogger struct {
	l zerolog.Logger
}

// newLogger returns a console logger writing to w at the given level.
func newLogger(w io.Writer, level string) (framed.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	l := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return zerologLogger{l: l}, nil
}

func (z zerologLogger) Debug(msg string, args ...any) { z.l.Debug().Fields(fields(args)).Msg(msg) }
func (z zerologLogger) Info(msg string, args ...any) { z.l.Info().Fields(fields(args)).Msg(msg) }
func (z zerologLogger) Warn(msg string, args ...any) { z.l.Warn().Fields(fields(args)).Msg(msg) }
func (z zerologLogger) Error(msg string, args ...any) { z.l.Error().Fields(fields(args)).Msg(msg) }

// fields turns slog-style key-value pairs into zerolog fields. Addresses
// and other Stringers are rendered as text instead of JSON objects.
func fields(args []any) []any {
	out := make([]any, 0, len(args))
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			out = append(out, "!BADKEY", key)
			break
		}

		switch v := args[i+1].(type) {
		case error:
			out = append(out, key, v.Error())
		case fmt.Stringer:
			out = append(out, key, v.String())
		default:
			out = append(out, key, v)
		}
	}
	return out
}
