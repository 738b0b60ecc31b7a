// Package shield provides the HTTP middleware wrapped around the
// negotiation pipeline. None of it touches response headers or bodies on
// the success path, so pass-through traffic stays byte-identical.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultEdgeStack() {
//	    r.Use(mw)
//	}
package shield

import (
	"net/http"

	"github.com/hazyhaar/mdgate/idgen"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultEdgeStack returns the standard middleware stack for the edge.
// Middleware is ordered: Recover → TraceID.
func DefaultEdgeStack() []func(http.Handler) http.Handler {
	return EdgeStack(idgen.Hex(8))
}

// EdgeStack is DefaultEdgeStack with a custom trace ID generator.
func EdgeStack(gen idgen.Generator) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		Recover,
		TraceIDWith(gen),
	}
}
