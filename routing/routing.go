// Package routing is the narrow capability surface between generated
// registration code and the host web framework. The host supplies a Router;
// generated code supplies handlers already wrapped with validation and the
// compiled validator for frameworks that want to introspect it.
package routing

import (
	"context"
	"net/http"
)

// Validator is the request-time validation capability attached to a route.
type Validator interface {
	Validate(payload any) error
}

// Router registers discovered routes with the host framework. Registration
// order is significant: hosts are expected to honor first-match-wins.
type Router interface {
	Register(method, path string, handler http.Handler, v Validator) error
}

type paramsKey struct{}

// WithParams attaches matched path parameters to the request context. Host
// frameworks call this before invoking a registered handler.
func WithParams(ctx context.Context, params map[string]string) context.Context {
	return context.WithValue(ctx, paramsKey{}, params)
}

// Params returns the path parameters attached by the host router, or nil.
func Params(ctx context.Context) map[string]string {
	p, _ := ctx.Value(paramsKey{}).(map[string]string)
	return p
}
