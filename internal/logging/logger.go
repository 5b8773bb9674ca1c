// Package logging provides the structured logger used across the service.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fakduai/khun-phaen-sync/internal/contextkey"
	"github.com/google/uuid"
)

// Logger wraps slog with context-aware request/user/peer attributes.
type Logger struct {
	slog *slog.Logger
}

// New creates a new structured logger at the given level ("debug", "info", "warn", "error").
func New(logLevel string) *Logger {
	level := new(slog.Level)
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		*level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	})

	return &Logger{slog: slog.New(handler)}
}

// WithContext returns a child logger enriched with request/user/peer IDs found in ctx.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	handler := l.slog.Handler()

	if reqID, ok := ctx.Value(contextkey.ContextKeyRequestID).(uuid.UUID); ok {
		handler = handler.WithGroup("request").WithAttrs([]slog.Attr{
			slog.String("id", reqID.String()),
		})
	}

	if userID, ok := ctx.Value(contextkey.ContextKeyUserID).(string); ok {
		handler = handler.WithGroup("auth").WithAttrs([]slog.Attr{
			slog.String("user_id", userID),
		})
	}

	if peerID, ok := ctx.Value(contextkey.ContextKeyPeerID).(string); ok {
		handler = handler.WithGroup("room").WithAttrs([]slog.Attr{
			slog.String("peer_id", peerID),
		})
	}

	return slog.New(handler)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.WithContext(ctx).Info(fmt.Sprintf(msg, args...))
}

func (l *Logger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.WithContext(ctx).Error(fmt.Sprintf(msg, args...))
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...interface{}) {
	l.WithContext(ctx).Debug(fmt.Sprintf(msg, args...))
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.WithContext(ctx).Warn(fmt.Sprintf(msg, args...))
}

// Fatal logs at error level and terminates the process. Reserved for
// unrecoverable startup failures.
func (l *Logger) Fatal(ctx context.Context, msg string, args ...interface{}) {
	l.WithContext(ctx).Error(fmt.Sprintf(msg, args...))
	os.Exit(1)
}
