// Package logger is the zerolog setup shared by every binary. Fields ride on
// the context so a request id or invoice number set once shows up on every
// line below it.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	ServiceName string
	Level       zerolog.Level
	// WarnStack adds a stack trace to warnings as well as errors.
	WarnStack bool
	// Output defaults to stdout. LOG_FORMAT=console switches to the
	// human-readable writer.
	Output io.Writer
}

type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

func New(opts Options) *Logger {
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	root := zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.ServiceName).Logger()
	return &Logger{root: root, warnStack: opts.WarnStack}
}

// ParseLevel reads a config level name; anything unknown means info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) current(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if zl, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
			return zl
		}
	}
	return l.root
}

func (l *Logger) with(ctx context.Context, add func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, add(l.current(ctx).With()).Logger())
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("request_id", requestID) })
}

// WithStaff tags lines with the authenticated staff member.
func (l *Logger) WithStaff(ctx context.Context, staffID, role string) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Str("user_id", staffID).Str("actor_role", role)
	})
}

func (l *Logger) WithSessionID(ctx context.Context, sessionID string) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("session_id", sessionID) })
}

func (l *Logger) WithInvoiceNumber(ctx context.Context, invoice string) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("invoice_number", invoice) })
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	zl := l.current(ctx)
	zl.Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	zl := l.current(ctx)
	zl.Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	zl := l.current(ctx)
	ev := zl.Warn()
	if l.warnStack {
		ev = ev.Str("stack", stack())
	}
	ev.Msg(msg)
}

// Error always carries a stack; err may be nil.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	zl := l.current(ctx)
	zl.Error().Err(err).Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
