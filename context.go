package goSoap

import (
	"context"

	"github.com/google/uuid"
)

type requestIDContextKey struct{}

// WithRequestID attaches a request identifier to ctx. Calls made with ctx
// log and audit under that identifier; without one a random UUID is used.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx != nil {
		if id, _ := ctx.Value(requestIDContextKey{}).(string); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
