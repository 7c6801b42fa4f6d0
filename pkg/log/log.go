// Package log provides a context-scoped logrus entry for library code.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

// Level aliases so callers don't need to import logrus for comparisons.
const (
	PanicLevel = logrus.PanicLevel
	FatalLevel = logrus.FatalLevel
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
	TraceLevel = logrus.TraceLevel
)

// L is the default logger entry, used when the context carries none.
var L = logrus.NewEntry(logrus.StandardLogger())

// G returns the logger stored in ctx, or L.
func G(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return L
	}
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return L
}

// WithLogger returns a copy of ctx carrying entry.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

// WithField is a shorthand for WithLogger(ctx, G(ctx).WithField(key, value)).
func WithField(ctx context.Context, key string, value any) context.Context {
	return WithLogger(ctx, G(ctx).WithField(key, value))
}

// GetLevel returns the level of the standard logger.
func GetLevel() logrus.Level {
	return logrus.GetLevel()
}
