// Package kit carries the small transport plumbing shared by the HTTP and
// MCP surfaces: the Endpoint abstraction, middleware chaining, and request
// metadata in context.
package kit

import "context"

// Endpoint is a transport-agnostic request handler. Both the HTTP handlers
// and the MCP tools resolve to one of these.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares left-to-right: the first argument is the
// outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
