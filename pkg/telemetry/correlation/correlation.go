package correlation

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// correlationKey is an unexported type for context keys within this package.
type correlationKey struct{}

// ExtractCorrelationID fetches a correlation ID from the context if present.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(correlationKey{}).(string); ok {
		return val
	}
	return ""
}

// ContextWithCorrelationID sets the correlation ID onto the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// EnsureCorrelationID guarantees a correlation ID on the context, generating one when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := ExtractCorrelationID(ctx)
	if cid == "" {
		cid = NewAttemptID()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}

// NewAttemptID returns a sortable id for one checkout attempt.
func NewAttemptID() string {
	return ulid.Make().String()
}

// IdempotencyKey derives a provider idempotency key for an attempt and operation.
func IdempotencyKey(attemptID, op string) string {
	if attemptID == "" {
		return ""
	}
	return "tg-" + op + "-" + attemptID
}
