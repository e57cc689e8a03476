package context

import (
	"context"
	"testing"
)

func TestCorrelationValuesRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithSessionID(ctx, "01HZX")
	ctx = WithActor(ctx, "analyst")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected trimmed request id, got %q", got)
	}
	if got := SessionIDFromContext(ctx); got != "01HZX" {
		t.Fatalf("unexpected session id %q", got)
	}
	if got := ActorFromContext(ctx); got != "analyst" {
		t.Fatalf("unexpected actor %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}
