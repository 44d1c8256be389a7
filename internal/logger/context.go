package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorIDKey   ctxKey = "actor_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// WithActorID records the authenticated user performing the request so
// audited operations (admin overrides, manual status corrections) carry
// the actor in every log line.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

func ActorIDFrom(ctx context.Context) string {
	if v := ctx.Value(actorIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// FromCtx returns a logger with request_id and actor_id automatically added.
func FromCtx(ctx context.Context) *zap.Logger {
	l := L()
	if reqID := RequestIDFrom(ctx); reqID != "" {
		l = l.With(zap.String("request_id", reqID))
	}
	if actorID := ActorIDFrom(ctx); actorID != "" {
		l = l.With(zap.String("actor_id", actorID))
	}
	return l
}
