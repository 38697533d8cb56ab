package transport

import (
	"context"
	"iter"

	"github.com/mkappe/gemgate/pkg/api"
)

// Request is one decoded generateContent call: the model from the URL path
// plus the request body.
type Request struct {
	Model string
	Body  *api.GenerateContentRequest
}

// Generator handles Gemini-protocol generation requests. The streaming
// sequence is lazy, finite, and non-restartable; a consumer that stops
// ranging releases all underlying resources.
//
// Implementations must be safe for concurrent use: every call gets
// independent translation state.
type Generator interface {
	// GenerateContent serves the one-shot path.
	GenerateContent(ctx context.Context, req *Request) (*api.GenerateContentResponse, error)

	// StreamGenerateContent serves the streaming path. Errors surface as
	// the second element of the sequence; the first non-nil error is
	// terminal.
	StreamGenerateContent(ctx context.Context, req *Request) iter.Seq2[*api.GenerateContentResponse, error]
}

// Middleware wraps a Generator to add cross-cutting behavior.
// Middleware is applied in order: the first middleware in the chain is
// the outermost wrapper (executes first on the way in, last on the way out).
type Middleware func(Generator) Generator

// Chain composes multiple middleware into a single middleware.
// Chain(a, b, c) produces a(b(c(handler))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next Generator) Generator {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// requestIDKeyType is the context key type for request IDs.
type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
