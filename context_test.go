package goSoap

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDFromContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	if got := requestIDFromContext(ctx); got != "req-42" {
		t.Fatalf("expected req-42, got %q", got)
	}
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	a := requestIDFromContext(context.Background())
	b := requestIDFromContext(context.Background())
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("expected uuid request id, got %q", a)
	}
	if a == b {
		t.Fatal("expected distinct generated ids")
	}
}
