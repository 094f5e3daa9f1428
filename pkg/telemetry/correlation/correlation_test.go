package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "fixed")
	ctx, id := EnsureCorrelationID(ctx)
	if id != "fixed" || ExtractCorrelationID(ctx) != "fixed" {
		t.Fatalf("expected existing id, got %q", id)
	}
}

func TestEnsureCorrelationIDGenerates(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	if _, err := ulid.Parse(id); err != nil {
		t.Fatalf("expected ulid, got %q: %v", id, err)
	}
	if ExtractCorrelationID(ctx) != id {
		t.Fatalf("expected id on context")
	}
}

func TestIdempotencyKey(t *testing.T) {
	if got := IdempotencyKey("", "session"); got != "" {
		t.Fatalf("expected empty key, got %q", got)
	}
	if got := IdempotencyKey("01ABC", "session"); got != "tg-session-01ABC" {
		t.Fatalf("unexpected key %q", got)
	}
}
