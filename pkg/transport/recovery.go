package transport

import (
	"context"
	"fmt"
	"iter"

	"github.com/mkappe/gemgate/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to internal errors. For the streaming path the recovery
// covers the whole iteration, since chunks are produced lazily while the
// consumer ranges.
func Recovery() Middleware {
	return func(next Generator) Generator {
		return &recoveryGenerator{next: next}
	}
}

type recoveryGenerator struct {
	next Generator
}

func (g *recoveryGenerator) GenerateContent(ctx context.Context, req *Request) (resp *api.GenerateContentResponse, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			resp, retErr = nil, api.NewInternal(fmt.Sprintf("internal error: %v", r))
		}
	}()
	return g.next.GenerateContent(ctx, req)
}

func (g *recoveryGenerator) StreamGenerateContent(ctx context.Context, req *Request) iter.Seq2[*api.GenerateContentResponse, error] {
	return func(yield func(*api.GenerateContentResponse, error) bool) {
		defer func() {
			if r := recover(); r != nil {
				yield(nil, api.NewInternal(fmt.Sprintf("internal error: %v", r)))
			}
		}()
		for chunk, err := range g.next.StreamGenerateContent(ctx, req) {
			if !yield(chunk, err) {
				return
			}
		}
	}
}
