package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/mdgate/idgen"
	"github.com/hazyhaar/mdgate/kit"
)

// TraceID generates an 8-hex trace ID for each request and injects it into
// the context together with a per-request structured logger. Unlike a
// regular service it sets no X-Trace-ID response header.
var TraceID = TraceIDWith(idgen.Hex(8))

// TraceIDWith is TraceID with a custom ID generator.
func TraceIDWith(gen idgen.Generator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := gen()
			ip := ExtractIP(r)
			ctx := kit.WithTraceID(r.Context(), traceID)
			ctx = kit.WithRemoteAddr(ctx, ip)

			logger := slog.Default().With(
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", ip,
			)
			ctx = context.WithValue(ctx, LoggerKey, logger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
