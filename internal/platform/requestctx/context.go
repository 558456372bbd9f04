package requestctx

import (
	"context"

	"go.uber.org/zap"
)

// scope carries the per-request values the middleware chain accumulates.
// It lives under a single context key; writers copy the struct so derived
// contexts never mutate their parents.
type scope struct {
	logger *zap.Logger
	trace  TraceInfo
	traced bool
}

type scopeKey struct{}

var fallbackLogger = zap.NewNop()

// TraceInfo captures the trace identifiers propagated with a request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

func scopeFrom(ctx context.Context) (scope, bool) {
	if ctx == nil {
		return scope{}, false
	}
	sc, ok := ctx.Value(scopeKey{}).(scope)
	return sc, ok
}

func withScope(ctx context.Context, sc scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey{}, sc)
}

// WithLogger binds the logger to the request scope.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = fallbackLogger
	}
	sc, _ := scopeFrom(ctx)
	sc.logger = logger
	return withScope(ctx, sc)
}

// Logger returns the request-scoped logger. Contexts without one get a
// shared no-op logger so call sites never nil-check.
func Logger(ctx context.Context) *zap.Logger {
	if sc, ok := scopeFrom(ctx); ok && sc.logger != nil {
		return sc.logger
	}
	return fallbackLogger
}

// NoopLogger exposes the logger handed out when none is bound.
func NoopLogger() *zap.Logger { return fallbackLogger }

// WithTrace binds the trace identifiers to the request scope.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	sc, _ := scopeFrom(ctx)
	sc.trace = info
	sc.traced = true
	return withScope(ctx, sc)
}

// Trace returns the request's trace identifiers, if any were bound.
func Trace(ctx context.Context) (TraceInfo, bool) {
	sc, ok := scopeFrom(ctx)
	if !ok || !sc.traced {
		return TraceInfo{}, false
	}
	return sc.trace, true
}

// TraceID returns the bound trace id, empty for untraced contexts.
func TraceID(ctx context.Context) string {
	sc, ok := scopeFrom(ctx)
	if !ok {
		return ""
	}
	return sc.trace.TraceID
}
