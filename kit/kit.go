// Package kit holds the small transport-agnostic plumbing shared by the
// daemon's HTTP and MCP surfaces: the Endpoint abstraction, middleware
// chaining, and request-scoped context accessors.
package kit

import "context"

// Endpoint is a transport-agnostic operation: decode happens in the
// transport layer, the endpoint sees typed requests and returns a response
// to encode.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(next Endpoint) Endpoint

// Chain composes middlewares so the first argument is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

type contextKey string

const (
	// TransportKey records which surface a request arrived on: "http", "mcp".
	TransportKey contextKey = "kit_transport"
	// RequestIDKey carries the per-request identifier.
	RequestIDKey contextKey = "kit_request_id"
	// SessionIDKey carries the highlight session the request targets.
	SessionIDKey contextKey = "kit_session_id"
)

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

// GetTransport returns the transport surface, defaulting to "http".
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

func GetSessionID(ctx context.Context) string {
	v, _ := ctx.Value(SessionIDKey).(string)
	return v
}
