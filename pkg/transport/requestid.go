package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"iter"

	"github.com/mkappe/gemgate/pkg/api"
)

// RequestID returns middleware that assigns a unique request ID to each
// request. If the incoming context already carries one (set by the HTTP
// adapter from the X-Request-ID header), that value is kept.
func RequestID() Middleware {
	return func(next Generator) Generator {
		return &requestIDGenerator{next: next}
	}
}

type requestIDGenerator struct {
	next Generator
}

func (g *requestIDGenerator) GenerateContent(ctx context.Context, req *Request) (*api.GenerateContentResponse, error) {
	return g.next.GenerateContent(ensureRequestID(ctx), req)
}

func (g *requestIDGenerator) StreamGenerateContent(ctx context.Context, req *Request) iter.Seq2[*api.GenerateContentResponse, error] {
	return g.next.StreamGenerateContent(ensureRequestID(ctx), req)
}

func ensureRequestID(ctx context.Context) context.Context {
	if RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return ContextWithRequestID(ctx, generateRequestID())
}

// generateRequestID creates a new unique request ID as a hex string.
func generateRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
