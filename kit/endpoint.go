// CLAUDE:SUMMARY Transport-agnostic endpoint and middleware primitives shared by the HTTP and MCP surfaces.
// Package kit provides the transport-agnostic request primitives used by
// every surface of the service: a uniform Endpoint signature, middleware
// chaining, request-scoped context values, and the MCP tool adapter.
package kit

import "context"

// Endpoint is the uniform shape of one service operation. Transports
// (HTTP handlers, MCP tools) decode into a typed request, call the
// endpoint, and encode the typed response.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares outermost-first: Chain(a, b, c) runs a
// before b before c before the endpoint.
func Chain(mw ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}
