package logging

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ValidateAndExtractRequestID returns requestID when it is a UUID and a fresh
// UUIDv7 otherwise.
func ValidateAndExtractRequestID(requestID string) string {
	if requestID != "" {
		if _, err := uuid.Parse(requestID); err == nil {
			return requestID
		}
	}
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
