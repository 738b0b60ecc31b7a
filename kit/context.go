// Package kit holds the request-scoped values shared between the edge
// middleware and the negotiation pipeline.
package kit

import "context"

type contextKey string

const (
	TraceIDKey    contextKey = "kit_trace_id"
	RemoteAddrKey contextKey = "kit_remote_addr"
	AgentKey      contextKey = "kit_agent"
)

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}
func GetRemoteAddr(ctx context.Context) string {
	v, _ := ctx.Value(RemoteAddrKey).(string)
	return v
}

// WithAgent records the user-agent pattern that classified the request as
// an AI agent.
func WithAgent(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, AgentKey, pattern)
}

// GetAgent returns the matched pattern, or "" for non-agent requests.
func GetAgent(ctx context.Context) string {
	v, _ := ctx.Value(AgentKey).(string)
	return v
}
