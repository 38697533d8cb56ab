package transport

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/mkappe/gemgate/pkg/api"
)

// Logging returns middleware that emits one structured log entry per
// request: model, streaming flag, chunk count, duration, request ID, and
// outcome. For streams the entry is emitted when iteration ends, whether
// by completion, error, or consumer abandonment.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Generator) Generator {
		return &loggingGenerator{next: next, logger: logger}
	}
}

type loggingGenerator struct {
	next   Generator
	logger *slog.Logger
}

func (g *loggingGenerator) GenerateContent(ctx context.Context, req *Request) (*api.GenerateContentResponse, error) {
	start := time.Now()
	resp, err := g.next.GenerateContent(ctx, req)
	g.log(ctx, req, false, 0, time.Since(start), err)
	return resp, err
}

func (g *loggingGenerator) StreamGenerateContent(ctx context.Context, req *Request) iter.Seq2[*api.GenerateContentResponse, error] {
	return func(yield func(*api.GenerateContentResponse, error) bool) {
		start := time.Now()
		chunks := 0
		var streamErr error

		defer func() {
			g.log(ctx, req, true, chunks, time.Since(start), streamErr)
		}()

		for chunk, err := range g.next.StreamGenerateContent(ctx, req) {
			if err != nil {
				streamErr = err
			} else {
				chunks++
			}
			if !yield(chunk, err) {
				return
			}
		}
	}
}

func (g *loggingGenerator) log(ctx context.Context, req *Request, stream bool, chunks int, d time.Duration, err error) {
	attrs := []slog.Attr{
		slog.String("request_id", RequestIDFromContext(ctx)),
		slog.String("model", req.Model),
		slog.Bool("stream", stream),
		slog.Duration("duration", d),
	}
	if stream {
		attrs = append(attrs, slog.Int("chunks", chunks))
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		g.logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
	} else {
		g.logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
	}
}
