package kit

import (
	"context"
	"testing"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if GetTraceID(ctx) != "" || GetRemoteAddr(ctx) != "" || GetAgent(ctx) != "" {
		t.Fatal("empty context should yield empty values")
	}

	ctx = WithTraceID(ctx, "deadbeef")
	ctx = WithRemoteAddr(ctx, "203.0.113.7")
	ctx = WithAgent(ctx, "gptbot")

	if got := GetTraceID(ctx); got != "deadbeef" {
		t.Errorf("trace id: got %q", got)
	}
	if got := GetRemoteAddr(ctx); got != "203.0.113.7" {
		t.Errorf("remote addr: got %q", got)
	}
	if got := GetAgent(ctx); got != "gptbot" {
		t.Errorf("agent: got %q", got)
	}
}
