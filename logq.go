package couchparty

import (
	"context"

	log "github.com/sirupsen/logrus"
)

var logger log.FieldLogger = log.StandardLogger()

// SetLogger replaces the package logger.
func SetLogger(l log.FieldLogger) {
	if l == nil {
		l = log.StandardLogger()
	}
	logger = l
}

type logQuery struct{}

func WithLoggingQuery(ctx context.Context) context.Context {
	return context.WithValue(ctx, logQuery{}, true)
}

func IsLoggingQuery(ctx context.Context) bool {
	if spctx, ok := ctx.Value(logQuery{}).(bool); ok {
		return spctx
	}
	return false
}

func queryLog(ctx context.Context, entry *log.Entry, format string, args ...any) {
	if IsLoggingQuery(ctx) {
		entry.Infof(format, args...)
		return
	}
	entry.Debugf(format, args...)
}
