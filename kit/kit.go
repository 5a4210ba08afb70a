// Package kit holds the small cross-cutting pieces shared by the domcanvas
// transports: the Endpoint signature and MCP tool registration glue.
package kit

import "context"

// Endpoint is a transport-agnostic operation: typed request in, typed
// response out. Connectivity handlers and MCP tools both wrap Endpoints.
type Endpoint func(ctx context.Context, req any) (any, error)

type contextKey string

const (
	RequestIDKey contextKey = "kit_request_id"
	TransportKey contextKey = "kit_transport" // "http", "mcp"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}
