package logging

import (
	"context"

	"go.uber.org/zap"
)

type requestIDKey struct{}

// WithRequestID attaches a request ID to ctx so handlers further down the
// call chain can pull a logger that's already tagged with it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// FromContext returns logger tagged with the request ID carried on ctx, if
// any. Safe to call on every request regardless of whether one was set.
func FromContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok && requestID != "" {
		return logger.With(zap.String("request_id", requestID))
	}
	return logger
}
