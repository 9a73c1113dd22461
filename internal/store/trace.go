package store

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// TraceFunc получает каждый выполненный запрос с параметрами.
type TraceFunc func(query string, args []any)

type traceKey struct{}

// WithTrace вешает на контекст сборщик запросов (для debug в ответе).
func WithTrace(ctx context.Context, fn TraceFunc) context.Context {
	return context.WithValue(ctx, traceKey{}, fn)
}

func (s *SQL) trace(ctx context.Context, query string, args []any) {
	log.WithFields(log.Fields{"sql": query, "args": args}).Debug("store query")
	if fn, ok := ctx.Value(traceKey{}).(TraceFunc); ok && fn != nil {
		fn(query, args)
	}
}
